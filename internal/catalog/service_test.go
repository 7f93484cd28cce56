package catalog

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/clock"
	"github.com/joao-fontenele/storefront/internal/domain"
)

type memStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]domain.Product

	// beforeWrite runs ahead of Update, with the lock released.
	beforeWrite func()
}

func newMemStore() *memStore {
	return &memStore{products: map[int64]domain.Product{}}
}

func (m *memStore) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Product{}
	for _, p := range m.products {
		if p.Deleted() != f.Deleted {
			continue
		}
		if f.OwnerID != nil && !p.OwnedBy(*f.OwnerID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Update(_ context.Context, p *domain.Product, stock *int) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.products[p.ID]
	if !ok || cur.Deleted() {
		return domain.ErrProductNotFound
	}
	if stock != nil {
		p.SetStock(*stock)
	} else {
		p.SetStock(cur.Stock)
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) SetStock(_ context.Context, id int64, stock int, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Deleted() {
		return domain.ErrProductNotFound
	}
	p.SetStock(stock)
	m.products[id] = p
	return nil
}

// sell simulates a checkout committing outside the service.
func (m *memStore) sell(id int64, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.SetStock(p.Stock - qty)
	m.products[id] = p
}

func (m *memStore) SoftDelete(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Deleted() {
		return false, nil
	}
	p.DeletedAt = &at
	m.products[id] = p
	return true, nil
}

func (m *memStore) Restore(_ context.Context, id int64, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || !p.Deleted() {
		return false, nil
	}
	p.DeletedAt = nil
	m.products[id] = p
	return true, nil
}

func (m *memStore) IncrementStock(_ context.Context, id int64, qty int, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.SetStock(p.Stock + qty)
	m.products[id] = p
	return nil
}

var (
	seller      = auth.Principal{UserID: 10, Role: auth.RoleSeller}
	otherSeller = auth.Principal{UserID: 11, Role: auth.RoleSeller}
	admin       = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	clk := clock.NewFake(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC), nil)
	return NewService(store, clk, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func ptr[T any](v T) *T { return &v }

func createProduct(t *testing.T, svc *Service, owner auth.Principal, name string, stock int) *domain.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), owner, ProductInput{
		Name:  ptr(name),
		Price: ptr(decimal.RequireFromString("10.00")),
		Stock: ptr(stock),
	})
	require.NoError(t, err)
	return p
}

func TestCreate_NormalizesName(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(context.Background(), seller, ProductInput{
		Name:        ptr("  dew   berry  "),
		Description: ptr(" sweet\n\tand  tart "),
		Price:       ptr(decimal.RequireFromString("12.50")),
		Stock:       ptr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, "Dew Berry", p.Name)
	assert.Equal(t, "sweet and tart", p.Description)
	assert.Equal(t, domain.ProductStatusOutOfStock, p.Status)
	assert.True(t, p.OwnedBy(seller.UserID))
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name  string
		in    ProductInput
		field string
	}{
		{"missing name", ProductInput{Price: ptr(decimal.NewFromInt(1))}, "name"},
		{"blank name", ProductInput{Name: ptr("   "), Price: ptr(decimal.NewFromInt(1))}, "name"},
		{"zero price", ProductInput{Name: ptr("x"), Price: ptr(decimal.Zero)}, "price"},
		{"sub-cent price", ProductInput{Name: ptr("x"), Price: ptr(decimal.RequireFromString("1.005"))}, "price"},
		{"negative stock", ProductInput{Name: ptr("x"), Price: ptr(decimal.NewFromInt(1)), Stock: ptr(-1)}, "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), seller, tt.in)
			e, ok := domain.AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, domain.KindValidation, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := createProduct(t, svc, seller, "widget", 3)

	already, err := svc.Delete(ctx, seller, p.ID)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = svc.Delete(ctx, seller, p.ID)
	require.NoError(t, err)
	assert.True(t, already, "second delete reports already deleted")

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	active, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	deleted, err := svc.ListDeleted(ctx, seller)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, p.ID, deleted[0].ID)

	restored, err := svc.Restore(ctx, seller, p.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	_, err = svc.Restore(ctx, seller, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotDeleted)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
}

func TestListDeleted_ScopedToOwnerUnlessAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a := createProduct(t, svc, seller, "a", 1)
	b := createProduct(t, svc, otherSeller, "b", 1)
	_, err := svc.Delete(ctx, seller, a.ID)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, otherSeller, b.ID)
	require.NoError(t, err)

	mine, err := svc.ListDeleted(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.ListDeleted(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := createProduct(t, svc, seller, "lamp", 2)

	_, err := svc.Update(ctx, otherSeller, p.ID, ProductInput{Stock: ptr(9)}, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.Update(ctx, admin, p.ID, ProductInput{Stock: ptr(0)}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusOutOfStock, got.Status)

	_, err = svc.Update(ctx, seller, p.ID, ProductInput{Name: ptr("lamp")}, true)
	assert.Error(t, err, "PUT requires every field")
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := createProduct(t, svc, seller, "mug", 0)

	got, err := svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{Restock: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
	assert.Equal(t, domain.ProductStatusAvailable, got.Status)

	got, err = svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{Stock: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusOutOfStock, got.Status)

	_, err = svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{Stock: ptr(-2)})
	assert.Error(t, err)

	_, err = svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{})
	assert.Error(t, err)

	_, err = svc.AdjustStock(ctx, otherSeller, p.ID, StockAdjustment{Restock: ptr(1)})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUpdate_KeepsStockMovedByCheckout(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	p := createProduct(t, svc, seller, "lamp", 5)

	store.beforeWrite = func() { store.sell(p.ID, 3) }
	got, err := svc.Update(ctx, seller, p.ID, ProductInput{Price: ptr(decimal.RequireFromString("12.00"))}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
	assert.Equal(t, "12.00", got.Price.StringFixed(2))

	stored, err := store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stock, "a price edit must not restore sold units")

	store.beforeWrite = func() { store.sell(p.ID, 2) }
	got, err = svc.Update(ctx, seller, p.ID, ProductInput{Stock: ptr(7)}, false)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock, "an explicit stock value is written as given")
}

func TestStockBounds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := createProduct(t, svc, seller, "crate", 10)

	_, err := svc.Update(ctx, seller, p.ID, ProductInput{Stock: ptr(domain.MaxQuantity + 1)}, false)
	assert.ErrorIs(t, err, domain.ErrStockOutOfRange)

	_, err = svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{Stock: ptr(domain.MaxQuantity + 1)})
	assert.ErrorIs(t, err, domain.ErrStockOutOfRange)

	_, err = svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{Restock: ptr(domain.MaxQuantity - 5)})
	assert.ErrorIs(t, err, domain.ErrStockOutOfRange)

	got, err := svc.AdjustStock(ctx, seller, p.ID, StockAdjustment{Restock: ptr(domain.MaxQuantity - 10)})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxQuantity, got.Stock)
}
