package inventory

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pitonico/trilha-net-tecnico-microservicos-desafio/internal/events"
)

type fakeRepo struct {
	products  map[int64]*Product
	nextID    int64
	createErr error
	deleted   []int64
}

func newFakeRepo(products ...Product) *fakeRepo {
	f := &fakeRepo{products: make(map[int64]*Product)}
	for i := range products {
		p := products[i]
		f.products[p.ID] = &p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakeRepo) Create(_ context.Context, p *Product) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, productID int64) (Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return Product{}, ErrNotFound
	}
	return *p, nil
}

func (f *fakeRepo) List(_ context.Context, _, _ int) ([]Product, int, error) {
	var out []Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(_ context.Context, p Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return ErrNotFound
	}
	f.products[p.ID] = &p
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, productID int64) error {
	if _, ok := f.products[productID]; !ok {
		return ErrNotFound
	}
	delete(f.products, productID)
	f.deleted = append(f.deleted, productID)
	return nil
}

func (f *fakeRepo) ReduceStock(_ context.Context, productID int64, quantity int) error {
	p, ok := f.products[productID]
	if !ok {
		return ErrNotFound
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

type fakePublisher struct {
	queues []string
	events []any
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, queue string, event any) error {
	if f.err != nil {
		return f.err
	}
	f.queues = append(f.queues, queue)
	f.events = append(f.events, event)
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestReduceStock(t *testing.T) {
	repo := newFakeRepo(Product{ID: 1, Name: "Keyboard", Stock: 10})
	pub := &fakePublisher{}
	svc := NewService(repo, pub, testLogger())

	require.NoError(t, svc.ReduceStock(context.Background(), 1, 4))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 6, p.Stock)

	require.Equal(t, []string{events.QueueStockUpdated}, pub.queues)
	require.Equal(t, events.StockUpdated{ProductID: 1, QuantityDelta: 4}, pub.events[0])
}

func TestReduceStockInsufficient(t *testing.T) {
	repo := newFakeRepo(Product{ID: 1, Name: "Keyboard", Stock: 3})
	pub := &fakePublisher{}
	svc := NewService(repo, pub, testLogger())

	err := svc.ReduceStock(context.Background(), 1, 5)
	require.ErrorIs(t, err, ErrInsufficientStock)

	p, _ := repo.GetByID(context.Background(), 1)
	require.Equal(t, 3, p.Stock)
	require.Empty(t, pub.events)
}

func TestReduceStockUnknownProduct(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewService(repo, pub, testLogger())

	require.ErrorIs(t, svc.ReduceStock(context.Background(), 99, 1), ErrNotFound)
	require.Empty(t, pub.events)
}

func TestReduceStockInvalidQuantity(t *testing.T) {
	repo := newFakeRepo(Product{ID: 1, Name: "Keyboard", Stock: 10})
	pub := &fakePublisher{}
	svc := NewService(repo, pub, testLogger())

	require.ErrorIs(t, svc.ReduceStock(context.Background(), 1, 0), ErrInvalidProduct)
	require.ErrorIs(t, svc.ReduceStock(context.Background(), 1, -2), ErrInvalidProduct)

	p, _ := repo.GetByID(context.Background(), 1)
	require.Equal(t, 10, p.Stock)
}

func TestReduceStockPublishFailureSurfaced(t *testing.T) {
	repo := newFakeRepo(Product{ID: 1, Name: "Keyboard", Stock: 10})
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewService(repo, pub, testLogger())

	err := svc.ReduceStock(context.Background(), 1, 2)
	require.ErrorContains(t, err, "StockUpdated publish failed")

	// The decrement is already committed; only the event was lost.
	p, _ := repo.GetByID(context.Background(), 1)
	require.Equal(t, 8, p.Stock)
}

func TestAddProductValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakePublisher{}, testLogger())

	_, err := svc.AddProduct(context.Background(), Product{Price: 10})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.AddProduct(context.Background(), Product{Name: "Keyboard", Price: -1})
	require.ErrorIs(t, err, ErrInvalidProduct)

	p, err := svc.AddProduct(context.Background(), Product{Name: "Keyboard", Price: 120, Stock: 5})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
}

func TestListProductsNormalizesPaging(t *testing.T) {
	repo := newFakeRepo(Product{ID: 1, Name: "Keyboard", Stock: 1})
	svc := NewService(repo, &fakePublisher{}, testLogger())

	page, err := svc.ListProducts(context.Background(), -1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.PageNumber)
	require.Equal(t, 10, page.PageSize)
	require.Equal(t, 1, page.TotalItems)
}
