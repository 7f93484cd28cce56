// Package orderstest provides an in-memory orders.Store for tests.
package orderstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/orders"
)

// Store keeps products and orders in memory. Transactions are serialized and
// roll back every write when fn fails.
type Store struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	orders   map[string]domain.Order

	// FailOn, when set, is consulted before each write operation of a
	// transaction; a non-nil result fails that operation.
	FailOn func(op string) error
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		products: map[int64]domain.Product{},
		orders:   map[string]domain.Order{},
	}
}

func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.SetStock(p.Stock)
	s.products[p.ID] = p
}

func (s *Store) Product(id int64) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) WithinTx(ctx context.Context, fn func(orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[int64]domain.Product, len(s.products))
	for id, p := range s.products {
		products[id] = p
	}
	saved := make(map[string]domain.Order, len(s.orders))
	for id, o := range s.orders {
		saved[id] = copyOrder(o)
	}

	if err := fn(&tx{s: s}); err != nil {
		s.products = products
		s.orders = saved
		return err
	}
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	c := copyOrder(o)
	return &c, nil
}

func (s *Store) ListByBuyer(_ context.Context, buyerID int64) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, copyOrder(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListBySeller(_ context.Context, sellerID int64) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		c := copyOrder(o)
		c.Items = c.Items[:0]
		for _, item := range o.Items {
			if item.SellerID != nil && *item.SellerID == sellerID {
				c.Items = append(c.Items, item)
			}
		}
		if len(c.Items) > 0 {
			out = append(out, c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ProductOwners(_ context.Context, ids []int64) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok || p.Deleted() || p.OwnerID == nil {
			continue
		}
		out[id] = *p.OwnerID
	}
	return out, nil
}

type tx struct {
	s *Store
}

func (t *tx) fail(op string) error {
	if t.s.FailOn == nil {
		return nil
	}
	return t.s.FailOn(op)
}

func (t *tx) LockProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		p, ok := t.s.products[id]
		if !ok || p.Deleted() {
			continue
		}
		out[id] = &p
	}
	return out, nil
}

func (t *tx) DecrementStock(_ context.Context, productID int64, qty int, at time.Time) error {
	if err := t.fail("decrement_stock"); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok || p.Deleted() || p.Stock < qty {
		return domain.ErrInsufficientStock
	}
	p.SetStock(p.Stock - qty)
	p.UpdatedAt = at
	t.s.products[productID] = p
	return nil
}

func (t *tx) IncrementStock(_ context.Context, productID int64, qty int, at time.Time) error {
	if err := t.fail("increment_stock"); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.SetStock(p.Stock + qty)
	p.UpdatedAt = at
	t.s.products[productID] = p
	return nil
}

func (t *tx) InsertOrder(_ context.Context, o *domain.Order) error {
	if err := t.fail("insert_order"); err != nil {
		return err
	}
	c := copyOrder(*o)
	c.Items = nil
	t.s.orders[o.ID] = c
	return nil
}

func (t *tx) InsertItem(_ context.Context, item *domain.OrderItem) error {
	if err := t.fail("insert_item"); err != nil {
		return err
	}
	o, ok := t.s.orders[item.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Items = append(o.Items, *item)
	t.s.orders[item.OrderID] = o
	return nil
}

func (t *tx) LockOrder(_ context.Context, id string) (*domain.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, nil
	}
	c := copyOrder(o)
	return &c, nil
}

func (t *tx) UpdateOrder(_ context.Context, o *domain.Order) error {
	if err := t.fail("update_order"); err != nil {
		return err
	}
	if _, ok := t.s.orders[o.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	t.s.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id string) error {
	if err := t.fail("delete_order"); err != nil {
		return err
	}
	if _, ok := t.s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(t.s.orders, id)
	return nil
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func sortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
}
