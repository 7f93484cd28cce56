package discounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

const uniqueViolation = "23505"

type DiscountDayRepository struct {
	db *sql.DB
}

func NewDiscountDayRepository(db *sql.DB) *DiscountDayRepository {
	return &DiscountDayRepository{db: db}
}

const discountDayColumns = `id, seller_id, date, discount_percentage, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiscountDay(row rowScanner) (*domain.DiscountDay, error) {
	var d domain.DiscountDay
	if err := row.Scan(&d.ID, &d.SellerID, &d.Date, &d.Percentage, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Date = d.Date.UTC()
	return &d, nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *DiscountDayRepository) Create(ctx context.Context, d *domain.DiscountDay) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO discount_days (seller_id, date, discount_percentage, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.SellerID, d.Date.Format(domain.DateLayout), d.Percentage, d.IsActive, d.CreatedAt).Scan(&d.ID)
	if isDuplicateKey(err) {
		return domain.ErrDuplicateDiscountDay
	}
	return err
}

func (r *DiscountDayRepository) FindByID(ctx context.Context, id int64) (*domain.DiscountDay, error) {
	d, err := scanDiscountDay(r.db.QueryRowContext(ctx, `
		SELECT `+discountDayColumns+`
		FROM discount_days
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// FindBySellerDate returns the seller's discount day on date, active or not.
func (r *DiscountDayRepository) FindBySellerDate(ctx context.Context, sellerID int64, date time.Time) (*domain.DiscountDay, error) {
	d, err := scanDiscountDay(r.db.QueryRowContext(ctx, `
		SELECT `+discountDayColumns+`
		FROM discount_days
		WHERE seller_id = $1 AND date = $2
	`, sellerID, date.Format(domain.DateLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// List returns discount days ordered by date descending, optionally
// restricted to one seller.
func (r *DiscountDayRepository) List(ctx context.Context, sellerID *int64) ([]domain.DiscountDay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+discountDayColumns+`
		FROM discount_days
		WHERE $1::bigint IS NULL OR seller_id = $1
		ORDER BY date DESC, id DESC
	`, sellerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	days := []domain.DiscountDay{}
	for rows.Next() {
		d, err := scanDiscountDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

func (r *DiscountDayRepository) Update(ctx context.Context, d *domain.DiscountDay) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE discount_days
		SET date = $2, discount_percentage = $3, is_active = $4
		WHERE id = $1
	`, d.ID, d.Date.Format(domain.DateLayout), d.Percentage, d.IsActive)
	if isDuplicateKey(err) {
		return domain.ErrDuplicateDiscountDay
	}
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrDiscountDayNotFound
	}
	return nil
}

func (r *DiscountDayRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM discount_days WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrDiscountDayNotFound
	}
	return nil
}

// SoldLine is one non-cancelled order item of a seller's product, priced
// with the discount day active on its business date.
type SoldLine struct {
	ProductID          int64
	ProductName        string
	UnitPrice          decimal.Decimal
	Quantity           int
	BusinessDate       time.Time
	IsDiscountDay      bool
	DiscountPercentage decimal.Decimal
}

type SalesFilter struct {
	SellerID   int64
	From       *time.Time
	To         *time.Time
	Discounted *bool
}

func dateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}

func (r *DiscountDayRepository) SoldLines(ctx context.Context, f SalesFilter) ([]SoldLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, p.name, p.price, oi.quantity, oi.business_date, oi.is_discount_day,
		       COALESCE(dd.discount_percentage, 0)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN discount_days dd
		       ON dd.seller_id = p.owner_id AND dd.date = oi.business_date AND dd.is_active
		WHERE p.owner_id = $1
		  AND oi.status <> $2
		  AND ($3::date IS NULL OR oi.business_date >= $3::date)
		  AND ($4::date IS NULL OR oi.business_date <= $4::date)
		  AND ($5::boolean IS NULL OR oi.is_discount_day = $5)
		ORDER BY oi.business_date DESC, oi.product_id
	`, f.SellerID, domain.OrderStatusCancelled, dateParam(f.From), dateParam(f.To), f.Discounted)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []SoldLine
	for rows.Next() {
		var l SoldLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.UnitPrice, &l.Quantity,
			&l.BusinessDate, &l.IsDiscountDay, &l.DiscountPercentage); err != nil {
			return nil, err
		}
		l.BusinessDate = l.BusinessDate.UTC()
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
