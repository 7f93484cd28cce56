package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *ProductRepository) WithTx(tx *sql.Tx) *ProductRepository {
	return &ProductRepository{db: tx}
}

const productColumns = `id, name, description, price, stock, status, owner_id, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		price     decimal.Decimal
		owner     sql.NullInt64
		deletedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.Status,
		&owner, &p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	p.Price = price
	if owner.Valid {
		id := owner.Int64
		p.OwnerID = &id
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, price, stock, status, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`, p.Name, p.Description, p.Price, p.Stock, p.Status, p.OwnerID, p.CreatedAt).Scan(&p.ID)
}

// FindByID returns the product regardless of its soft-delete state, or nil
// when no row exists.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// LockActive row-locks the active products among ids, in ascending id order,
// and returns them keyed by id. Must run inside a transaction.
func (r *ProductRepository) LockActive(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make(map[int64]*domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// Owners maps each active, owned product among ids to its owner id.
func (r *ProductRepository) Owners(ctx context.Context, ids []int64) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id
		FROM products
		WHERE id = ANY($1) AND deleted_at IS NULL AND owner_id IS NOT NULL
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	owners := make(map[int64]int64, len(ids))
	for rows.Next() {
		var id, owner int64
		if err := rows.Scan(&id, &owner); err != nil {
			return nil, err
		}
		owners[id] = owner
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return owners, nil
}

type ListFilter struct {
	OwnerID *int64
	Deleted bool
}

func (r *ProductRepository) List(ctx context.Context, f ListFilter) ([]domain.Product, error) {
	deleted := "deleted_at IS NULL"
	if f.Deleted {
		deleted = "deleted_at IS NOT NULL"
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE `+deleted+` AND ($1::bigint IS NULL OR owner_id = $1)
		ORDER BY id
	`, f.OwnerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// Update writes the name, description and price of an active product. Stock
// and status are written only when stock is non-nil, so a concurrent
// checkout's decrement is never overwritten. p.Stock and p.Status are
// refreshed from the stored row. It reports ErrProductNotFound when the
// product is missing or soft-deleted.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, stock *int) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4,
		    stock = COALESCE($5::integer, stock),
		    status = CASE WHEN COALESCE($5::integer, stock) > 0 THEN $7 ELSE $8 END,
		    updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING stock, status
	`, p.ID, p.Name, p.Description, p.Price, stock, p.UpdatedAt,
		domain.ProductStatusAvailable, domain.ProductStatusOutOfStock).Scan(&p.Stock, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	return stockRange(err)
}

// SetStock overwrites the stock of an active product.
func (r *ProductRepository) SetStock(ctx context.Context, id int64, stock int, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = $2::integer,
		    status = CASE WHEN $2::integer > 0 THEN $4 ELSE $5 END,
		    updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, id, stock, at, domain.ProductStatusAvailable, domain.ProductStatusOutOfStock)
	return expectOne(result, stockRange(err), domain.ErrProductNotFound)
}

// SoftDelete marks an active product deleted. It returns false when no
// active row matched.
func (r *ProductRepository) SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	return affected(result, err)
}

// Restore clears deleted_at. It returns false when the product was not
// deleted.
func (r *ProductRepository) Restore(ctx context.Context, id int64, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET deleted_at = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NOT NULL
	`, id, at)
	return affected(result, err)
}

// DecrementStock removes qty units from an active product, keeping status in
// step with the new stock level. The stock guard makes the update a no-op
// when fewer than qty units remain, reported as ErrInsufficientStock.
func (r *ProductRepository) DecrementStock(ctx context.Context, id int64, qty int, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2,
		    status = CASE WHEN stock - $2 > 0 THEN $4 ELSE $5 END,
		    updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL AND stock >= $2
	`, id, qty, at, domain.ProductStatusAvailable, domain.ProductStatusOutOfStock)
	return expectOne(result, err, domain.ErrInsufficientStock)
}

// IncrementStock returns qty units to a product, deleted or not.
func (r *ProductRepository) IncrementStock(ctx context.Context, id int64, qty int, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    status = CASE WHEN stock + $2 > 0 THEN $4 ELSE $5 END,
		    updated_at = $3
		WHERE id = $1
	`, id, qty, at, domain.ProductStatusAvailable, domain.ProductStatusOutOfStock)
	return expectOne(result, stockRange(err), domain.ErrProductNotFound)
}

// stockRange reports an integer overflow of the stock column as a
// validation error.
func stockRange(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22003" {
		return domain.ErrStockOutOfRange
	}
	return err
}

func affected(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func expectOne(result sql.Result, err error, none error) error {
	ok, err := affected(result, err)
	if err != nil {
		return err
	}
	if !ok {
		return none
	}
	return nil
}
