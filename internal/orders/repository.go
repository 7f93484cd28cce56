package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/domain"
)

// Store persists orders. Writes happen through Tx inside WithinTx.
type Store interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]domain.Order, error)
	// ProductOwners maps each active, owned product among ids to its owner.
	// It reads without locking.
	ProductOwners(ctx context.Context, ids []int64) (map[int64]int64, error)
}

type Tx interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, qty int, at time.Time) error
	IncrementStock(ctx context.Context, productID int64, qty int, at time.Time) error
	InsertOrder(ctx context.Context, o *domain.Order) error
	InsertItem(ctx context.Context, item *domain.OrderItem) error
	LockOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, o *domain.Order) error
	DeleteOrder(ctx context.Context, id string) error
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithinTx runs fn in a transaction, committing only when fn succeeds.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgTx{tx: tx, products: catalog.NewProductRepository(tx)}); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns the order with its items, or nil when it does not exist.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.db, id, false)
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error) {
	return listOrders(ctx, r.db, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`, buyerID, nil)
}

// ListBySeller returns the orders containing at least one of the seller's
// products. Only the seller's own items are attached.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Order, error) {
	return listOrders(ctx, r.db, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id IN (
			SELECT oi.order_id
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE p.owner_id = $1
		)
		ORDER BY created_at DESC
	`, sellerID, &sellerID)
}

func (r *OrderRepository) ProductOwners(ctx context.Context, ids []int64) (map[int64]int64, error) {
	return catalog.NewProductRepository(r.db).Owners(ctx, ids)
}

type pgTx struct {
	tx       *sql.Tx
	products *catalog.ProductRepository
}

func (t *pgTx) LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	return t.products.LockActive(ctx, ids)
}

func (t *pgTx) DecrementStock(ctx context.Context, productID int64, qty int, at time.Time) error {
	return t.products.DecrementStock(ctx, productID, qty, at)
}

func (t *pgTx) IncrementStock(ctx context.Context, productID int64, qty int, at time.Time) error {
	return t.products.IncrementStock(ctx, productID, qty, at)
}

func (t *pgTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, status, payment, is_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, o.ID, o.BuyerID, o.Status, o.Payment, o.IsPaid, o.CreatedAt)
	return err
}

func (t *pgTx) InsertItem(ctx context.Context, item *domain.OrderItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, status, is_discount_day, business_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Status, item.IsDiscountDay,
		item.BusinessDate.Format(domain.DateLayout), item.CreatedAt)
	return err
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, payment = $3, is_paid = $4, updated_at = $5
		WHERE id = $1
	`, o.ID, o.Status, o.Payment, o.IsPaid, o.UpdatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE order_items SET status = $2, updated_at = $3
		WHERE order_id = $1 AND status <> $2
	`, o.ID, o.Status, o.UpdatedAt)
	return err
}

func (t *pgTx) DeleteOrder(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

const orderColumns = `id, buyer_id, status, payment, is_paid, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, o *domain.Order) error {
	return row.Scan(&o.ID, &o.BuyerID, &o.Status, &o.Payment, &o.IsPaid, &o.CreatedAt, &o.UpdatedAt)
}

func getOrder(ctx context.Context, db catalog.DBTX, id string, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	order := &domain.Order{}
	if err := scanOrder(db.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	items, err := loadItems(ctx, db, []string{order.ID}, nil)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

func listOrders(ctx context.Context, db catalog.DBTX, query string, arg any, sellerID *int64) ([]domain.Order, error) {
	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	items, err := loadItems(ctx, db, ids, sellerID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// loadItems returns the items of the given orders keyed by order id. Product
// name, price and owner come from the product; the discount percentage comes
// from the owner's active discount day on the item's business date.
func loadItems(ctx context.Context, db catalog.DBTX, orderIDs []string, sellerID *int64) (map[string][]domain.OrderItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, p.owner_id, p.price, oi.quantity, oi.status,
		       oi.is_discount_day, COALESCE(dd.discount_percentage, 0), oi.business_date,
		       oi.created_at, oi.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN discount_days dd
		       ON dd.seller_id = p.owner_id AND dd.date = oi.business_date AND dd.is_active
		WHERE oi.order_id = ANY($1::uuid[])
		  AND ($2::bigint IS NULL OR p.owner_id = $2)
		ORDER BY oi.seq
	`, pq.Array(orderIDs), sellerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item  domain.OrderItem
			owner sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &owner,
			&item.UnitPrice, &item.Quantity, &item.Status, &item.IsDiscountDay, &item.DiscountPercentage,
			&item.BusinessDate, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if owner.Valid {
			id := owner.Int64
			item.SellerID = &id
		}
		item.BusinessDate = item.BusinessDate.UTC()
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
