// Package catalog owns products and their soft-delete lifecycle.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/clock"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

const maxNameLength = 255

var maxPrice = decimal.New(1, 8)

type Store interface {
	Create(ctx context.Context, p *domain.Product) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, f ListFilter) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product, stock *int) error
	SetStock(ctx context.Context, id int64, stock int, at time.Time) error
	SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error)
	Restore(ctx context.Context, id int64, at time.Time) (bool, error)
	IncrementStock(ctx context.Context, id int64, qty int, at time.Time) error
}

type Service struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(store Store, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// ProductInput carries the writable product fields. Nil fields are left
// unchanged on update.
type ProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

// Create registers a product owned by the calling seller.
func (s *Service) Create(ctx context.Context, p auth.Principal, in ProductInput) (*domain.Product, error) {
	if in.Name == nil {
		return nil, domain.Validation("required", "name", "name is required")
	}
	if in.Price == nil {
		return nil, domain.Validation("required", "price", "price is required")
	}

	now := s.clock.Now()
	owner := p.UserID
	product := &domain.Product{
		OwnerID:   &owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	product.SetStock(0)
	if err := s.apply(product, in); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created", "product_id", product.ID, "owner_id", owner)
	return product, nil
}

// Get returns an active product.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.Deleted() {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.store.List(ctx, ListFilter{})
}

// ListDeleted returns the caller's soft-deleted products, or every deleted
// product for callers that manage any product.
func (s *Service) ListDeleted(ctx context.Context, p auth.Principal) ([]domain.Product, error) {
	f := ListFilter{Deleted: true}
	if !p.Can(auth.CapManageAnyProduct) {
		f.OwnerID = &p.UserID
	}
	return s.store.List(ctx, f)
}

func (s *Service) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	return s.store.List(ctx, ListFilter{OwnerID: &sellerID})
}

// Update applies in to an active product. With full set, every writable
// field except description must be present. Stock is written only when in
// carries it.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in ProductInput, full bool) (*domain.Product, error) {
	if full {
		switch {
		case in.Name == nil:
			return nil, domain.Validation("required", "name", "name is required")
		case in.Price == nil:
			return nil, domain.Validation("required", "price", "price is required")
		case in.Stock == nil:
			return nil, domain.Validation("required", "stock", "stock is required")
		}
	}

	product, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(product, in); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, product, in.Stock); err != nil {
		return nil, err
	}

	s.logger.Info("product updated", "product_id", id, "stock", product.Stock)
	return product, nil
}

// Delete soft-deletes a product. Deleting an already deleted product is not
// an error; alreadyDeleted reports it.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) (alreadyDeleted bool, err error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if product == nil {
		return false, domain.ErrProductNotFound
	}
	if err := authorize(p, product); err != nil {
		return false, err
	}
	if product.Deleted() {
		return true, nil
	}

	deleted, err := s.store.SoftDelete(ctx, id, s.clock.Now())
	if err != nil {
		return false, err
	}

	s.logger.Info("product soft deleted", "product_id", id)
	return !deleted, nil
}

// Restore clears the soft-delete mark. A product that is not deleted
// yields ErrProductNotDeleted.
func (s *Service) Restore(ctx context.Context, p auth.Principal, id int64) (*domain.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if err := authorize(p, product); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	restored, err := s.store.Restore(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !restored {
		return nil, domain.ErrProductNotDeleted
	}

	product.DeletedAt = nil
	product.UpdatedAt = now
	s.logger.Info("product restored", "product_id", id)
	return product, nil
}

// StockAdjustment either adds Restock units or sets the stock to Stock.
type StockAdjustment struct {
	Restock *int `json:"restock"`
	Stock   *int `json:"stock"`
}

// AdjustStock restocks or overwrites the stock of a product owned by the
// caller.
func (s *Service) AdjustStock(ctx context.Context, p auth.Principal, id int64, adj StockAdjustment) (*domain.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.Deleted() || !product.OwnedBy(p.UserID) {
		return nil, domain.ErrProductNotFound.WithMessagef("product not found or not owned by caller")
	}

	now := s.clock.Now()
	switch {
	case adj.Restock != nil && *adj.Restock > 0:
		if *adj.Restock > domain.MaxQuantity-product.Stock {
			return nil, domain.ErrStockOutOfRange.WithField("restock")
		}
		if err := s.store.IncrementStock(ctx, id, *adj.Restock, now); err != nil {
			return nil, err
		}
	case adj.Stock != nil:
		if err := validStock(*adj.Stock); err != nil {
			return nil, err
		}
		if err := s.store.SetStock(ctx, id, *adj.Stock, now); err != nil {
			return nil, err
		}
	default:
		return nil, domain.Validation("stock_adjustment_required", "restock", `provide either a positive "restock" or a "stock" value`)
	}

	// Checkouts may have moved stock since the first read.
	product, err = s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	s.logger.Info("product stock adjusted", "product_id", id, "stock", product.Stock)
	return product, nil
}

func (s *Service) owned(ctx context.Context, p auth.Principal, id int64) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, product); err != nil {
		return nil, err
	}
	return product, nil
}

func authorize(p auth.Principal, product *domain.Product) error {
	if product.OwnedBy(p.UserID) || p.Can(auth.CapManageAnyProduct) {
		return nil
	}
	return domain.ErrForbidden.WithMessagef("only the product owner can modify it")
}

func (s *Service) apply(product *domain.Product, in ProductInput) error {
	if in.Name != nil {
		name := collapse(*in.Name)
		if name == "" {
			return domain.Validation("invalid_name", "name", "Name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return domain.Validation("invalid_name", "name", "name is too long")
		}
		// Casers carry state and are not safe to share across requests.
		product.Name = cases.Title(language.Und).String(name)
	}
	if in.Description != nil {
		product.Description = collapse(*in.Description)
	}
	if in.Price != nil {
		price := *in.Price
		switch {
		case !price.IsPositive():
			return domain.Validation("invalid_price", "price", "Price must be greater than 0")
		case !price.Equal(price.Round(pricing.CurrencyPlaces)):
			return domain.Validation("invalid_price", "price", "price must have at most 2 decimal places")
		case price.GreaterThanOrEqual(maxPrice):
			return domain.Validation("invalid_price", "price", "price is too large")
		}
		product.Price = price
	}
	if in.Stock != nil {
		if err := validStock(*in.Stock); err != nil {
			return err
		}
		product.SetStock(*in.Stock)
	}
	return nil
}

func validStock(stock int) error {
	switch {
	case stock < 0:
		return domain.Validation("invalid_stock", "stock", "stock must not be negative")
	case stock > domain.MaxQuantity:
		return domain.ErrStockOutOfRange
	}
	return nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
