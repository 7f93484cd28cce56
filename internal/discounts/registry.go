// Package discounts manages seller discount days and answers which discount,
// if any, applies to a seller's products on a given calendar day.
package discounts

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/clock"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

type Store interface {
	Create(ctx context.Context, d *domain.DiscountDay) error
	FindByID(ctx context.Context, id int64) (*domain.DiscountDay, error)
	FindBySellerDate(ctx context.Context, sellerID int64, date time.Time) (*domain.DiscountDay, error)
	List(ctx context.Context, sellerID *int64) ([]domain.DiscountDay, error)
	Update(ctx context.Context, d *domain.DiscountDay) error
	Delete(ctx context.Context, id int64) error
	SoldLines(ctx context.Context, f SalesFilter) ([]SoldLine, error)
}

type Registry struct {
	store  Store
	cache  Cache
	clock  clock.Clock
	logger *slog.Logger
}

// NewRegistry builds a registry. cache may be nil.
func NewRegistry(store Store, cache Cache, clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		cache:  cache,
		clock:  clk,
		logger: logger,
	}
}

// ActiveDiscountFor returns the percentage of the seller's active discount
// day on date. Dates before today never carry a discount. Cache failures
// fall back to the store, and the result is then not cached.
func (r *Registry) ActiveDiscountFor(ctx context.Context, sellerID int64, date time.Time) (decimal.Decimal, bool, error) {
	date = clock.DateOf(date, time.UTC)
	if date.Before(r.clock.Today()) {
		return decimal.Zero, false, nil
	}

	var (
		fill       bool
		generation int64
	)
	if r.cache != nil {
		l, hit, gen, err := r.cache.Get(ctx, sellerID, date)
		switch {
		case err != nil:
			r.logger.Warn("discount cache read failed", "error", err, "seller_id", sellerID)
		case hit:
			return l.Percentage, l.Active, nil
		default:
			fill, generation = true, gen
		}
	}

	day, err := r.store.FindBySellerDate(ctx, sellerID, date)
	if err != nil {
		return decimal.Zero, false, err
	}

	l := Lookup{}
	if day != nil && day.IsActive {
		l = Lookup{Percentage: day.Percentage, Active: true}
	}

	if fill {
		if err := r.cache.Set(ctx, sellerID, date, l, generation); err != nil {
			r.logger.Warn("discount cache write failed", "error", err, "seller_id", sellerID)
		}
	}

	return l.Percentage, l.Active, nil
}

// DiscountDayInput carries writable discount day fields. Nil fields are left
// unchanged on update.
type DiscountDayInput struct {
	Date       *string          `json:"date"`
	Percentage *decimal.Decimal `json:"discount_percentage"`
	IsActive   *bool            `json:"is_active"`
}

func (r *Registry) Create(ctx context.Context, p auth.Principal, in DiscountDayInput) (*domain.DiscountDay, error) {
	if in.Date == nil {
		return nil, domain.Validation("required", "date", "date is required")
	}

	day := &domain.DiscountDay{
		SellerID:  p.UserID,
		IsActive:  true,
		CreatedAt: r.clock.Now(),
	}
	if err := r.apply(day, in); err != nil {
		return nil, err
	}
	if in.Percentage == nil {
		return nil, domain.Validation("required", "discount_percentage", "discount_percentage is required")
	}

	if err := r.store.Create(ctx, day); err != nil {
		return nil, err
	}

	r.invalidate(ctx, day.SellerID, day.Date)
	r.logger.Info("discount day created", "discount_day_id", day.ID, "seller_id", day.SellerID,
		"date", day.Date.Format(domain.DateLayout))
	return day, nil
}

// List returns every discount day, newest date first.
func (r *Registry) List(ctx context.Context) ([]domain.DiscountDay, error) {
	return r.store.List(ctx, nil)
}

// Get returns a discount day owned by the caller.
func (r *Registry) Get(ctx context.Context, p auth.Principal, id int64) (*domain.DiscountDay, error) {
	day, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if day == nil || day.SellerID != p.UserID {
		return nil, domain.ErrDiscountDayNotFound
	}
	return day, nil
}

func (r *Registry) Update(ctx context.Context, p auth.Principal, id int64, in DiscountDayInput) (*domain.DiscountDay, error) {
	day, err := r.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	previous := day.Date
	if err := r.apply(day, in); err != nil {
		return nil, err
	}

	if err := r.store.Update(ctx, day); err != nil {
		return nil, err
	}

	r.invalidate(ctx, day.SellerID, previous, day.Date)
	r.logger.Info("discount day updated", "discount_day_id", day.ID, "seller_id", day.SellerID)
	return day, nil
}

func (r *Registry) Delete(ctx context.Context, p auth.Principal, id int64) error {
	day, err := r.Get(ctx, p, id)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, day.SellerID, day.Date)
	r.logger.Info("discount day deleted", "discount_day_id", id, "seller_id", day.SellerID)
	return nil
}

func (r *Registry) apply(day *domain.DiscountDay, in DiscountDayInput) error {
	if in.Date != nil {
		date, err := domain.ParseDate(*in.Date)
		if err != nil {
			return domain.ErrInvalidField.WithField("date").WithMessagef("date must be formatted as YYYY-MM-DD")
		}
		if date.Before(r.clock.Today()) {
			return domain.ErrDiscountDateInPast
		}
		day.Date = date
	}
	if in.Percentage != nil {
		pct := *in.Percentage
		if !pricing.ValidPercentage(pct) || !pct.Equal(pct.Round(pricing.CurrencyPlaces)) {
			return domain.ErrInvalidPercentage
		}
		day.Percentage = pct
	}
	if in.IsActive != nil {
		day.IsActive = *in.IsActive
	}
	return nil
}

func (r *Registry) invalidate(ctx context.Context, sellerID int64, dates ...time.Time) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, sellerID, dates...); err != nil {
		r.logger.Warn("discount cache invalidation failed", "error", err, "seller_id", sellerID)
	}
}
