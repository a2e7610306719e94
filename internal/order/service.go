package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Pitonico/trilha-net-tecnico-microservicos-desafio/internal/events"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidQuantity   = errors.New("item quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductInfo is the order service's view of an inventory product.
type ProductInfo struct {
	ID    int64
	Name  string
	Price float64
	Stock int
}

// StockReader reads current price and stock from the inventory service.
type StockReader interface {
	Product(ctx context.Context, productID int64) (ProductInfo, error)
}

// EventPublisher decouples the saga from the broker transport.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

type CreateOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderRequest struct {
	Status Status            `json:"status,omitempty"`
	Items  []CreateOrderItem `json:"items"`
}

// Service runs the order saga: synchronous stock verification against
// inventory, order persistence, then the OrderCreated event.
type Service struct {
	repo   Repository
	stock  StockReader
	pub    EventPublisher
	logger *log.Logger
	now    func() time.Time
}

func NewService(repo Repository, stock StockReader, pub EventPublisher, logger *log.Logger) *Service {
	return &Service{
		repo:   repo,
		stock:  stock,
		pub:    pub,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates the request, snapshots prices from inventory, persists
// the order and publishes OrderCreated. Persistence and publication are not
// transactional: if the publish exhausts its retries the order stays
// committed and the error is surfaced to the caller so a higher layer can
// react.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	items := make([]LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, it.ProductID)
		}

		p, err := s.stock.Product(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("read product %d: %w", it.ProductID, err)
		}

		if p.Stock < it.Quantity {
			s.logger.Printf("insufficient stock for product %d: have %d, want %d", it.ProductID, p.Stock, it.Quantity)
			return nil, fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, it.ProductID, p.Stock, it.Quantity)
		}

		items = append(items, LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			Subtotal:  float64(it.Quantity) * p.Price,
		})
	}

	o := &Order{
		CreatedAt: s.now(),
		Status:    status,
		Items:     items,
	}
	if err := o.CalculateTotal(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Printf("order %d persisted, total %.2f", o.ID, o.Total)

	ev := events.OrderCreated{OrderID: o.ID}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, events.OrderCreatedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	if err := s.pub.Publish(ctx, events.QueueOrderCreated, ev); err != nil {
		// Known consistency gap: the order is committed but inventory will
		// never see it. Surfaced as a hard error for operator intervention.
		return nil, fmt.Errorf("order %d persisted but OrderCreated publish failed: %w", o.ID, err)
	}

	s.logger.Printf("OrderCreated published for order %d", o.ID)
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		s.logger.Printf("order %d not found", orderID)
		return nil, ErrNotFound
	}
	return o, nil
}

type PagedOrders struct {
	Items      []Order `json:"items"`
	TotalItems int     `json:"totalItems"`
	PageNumber int     `json:"pageNumber"`
	PageSize   int     `json:"pageSize"`
}

func (s *Service) ListOrders(ctx context.Context, page, pageSize int) (PagedOrders, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	orders, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return PagedOrders{}, err
	}

	return PagedOrders{
		Items:      orders,
		TotalItems: total,
		PageNumber: page,
		PageSize:   pageSize,
	}, nil
}

// UpdateStatus moves an order to a new status. Transitions away from a
// terminal status are rejected whatever the target.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, newStatus Status) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}

	if err := ValidateTransition(o.Status, newStatus); err != nil {
		s.logger.Printf("rejected status change for order %d: %v", orderID, err)
		return err
	}

	if err := s.repo.UpdateStatus(ctx, orderID, newStatus); err != nil {
		return err
	}

	s.logger.Printf("order %d status updated to %s", orderID, newStatus)
	return nil
}
