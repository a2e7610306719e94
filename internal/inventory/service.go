package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Pitonico/trilha-net-tecnico-microservicos-desafio/internal/events"
)

var ErrInvalidProduct = errors.New("invalid product")

// EventPublisher decouples the service from the broker transport.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

type Service struct {
	repo   Repository
	pub    EventPublisher
	logger *log.Logger
}

func NewService(repo Repository, pub EventPublisher, logger *log.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger}
}

func (s *Service) AddProduct(ctx context.Context, p Product) (Product, error) {
	if p.Name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price < 0 || p.Stock < 0 {
		return Product{}, fmt.Errorf("%w: price and stock must not be negative", ErrInvalidProduct)
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		return Product{}, err
	}

	s.logger.Printf("product %d created", p.ID)
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, productID int64) (Product, error) {
	return s.repo.GetByID(ctx, productID)
}

type PagedProducts struct {
	Items      []Product `json:"items"`
	TotalItems int       `json:"totalItems"`
	PageNumber int       `json:"pageNumber"`
	PageSize   int       `json:"pageSize"`
}

func (s *Service) ListProducts(ctx context.Context, page, pageSize int) (PagedProducts, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	products, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return PagedProducts{}, err
	}

	return PagedProducts{
		Items:      products,
		TotalItems: total,
		PageNumber: page,
		PageSize:   pageSize,
	}, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price < 0 || p.Stock < 0 {
		return fmt.Errorf("%w: price and stock must not be negative", ErrInvalidProduct)
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) RemoveProduct(ctx context.Context, productID int64) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		return err
	}
	s.logger.Printf("product %d removed", productID)
	return nil
}

// ReduceStock decrements a product's stock and publishes StockUpdated. The
// repository enforces the non-negative invariant; no event is published when
// the reduction is rejected.
func (s *Service) ReduceStock(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity %d", ErrInvalidProduct, quantity)
	}

	s.logger.Printf("reducing stock of product %d by %d", productID, quantity)

	if err := s.repo.ReduceStock(ctx, productID, quantity); err != nil {
		return err
	}

	ev := events.StockUpdated{ProductID: productID, QuantityDelta: quantity}
	if err := s.pub.Publish(ctx, events.QueueStockUpdated, ev); err != nil {
		return fmt.Errorf("stock reduced for product %d but StockUpdated publish failed: %w", productID, err)
	}

	s.logger.Printf("StockUpdated published for product %d", productID)
	return nil
}
