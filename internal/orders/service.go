// Package orders implements checkout: stock validation, atomic creation of
// an order with its items, discount-day tagging, and the post-creation
// lifecycle of status and payment changes.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/clock"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

// DiscountLookup answers which discount applies to a seller on a day.
type DiscountLookup interface {
	ActiveDiscountFor(ctx context.Context, sellerID int64, date time.Time) (decimal.Decimal, bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	store     Store
	discounts DiscountLookup
	publisher Publisher
	metrics   *telemetry.ShopMetrics
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService wires the order workflow. publisher and metrics may be nil.
func NewService(store Store, discounts DiscountLookup, publisher Publisher, metrics *telemetry.ShopMetrics, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		discounts: discounts,
		publisher: publisher,
		metrics:   metrics,
		clock:     clk,
		logger:    logger,
	}
}

type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	Payment string        `json:"payment"`
	Items   []LineRequest `json:"items"`
}

// PlaceOrder validates every line against locked stock and creates the order,
// its items and the stock decrements in one transaction. Any line failure
// aborts the whole order.
func (s *Service) PlaceOrder(ctx context.Context, p auth.Principal, req PlaceOrderRequest) (*domain.Order, error) {
	order, err := s.placeOrder(ctx, p, req)
	if err != nil {
		if e, ok := domain.AsError(err); ok {
			s.metrics.OrderRejected(ctx, e.Code)
			s.logger.Info("order rejected", "buyer_id", p.UserID, "code", e.Code, "field", e.Field)
		}
		return nil, err
	}

	s.metrics.OrderCreated(ctx, string(order.Payment), len(order.Items))
	s.publishCreated(ctx, order)

	s.logger.Info("order created", "order_id", order.ID, "buyer_id", order.BuyerID, "items", len(order.Items))
	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, p auth.Principal, req PlaceOrderRequest) (*domain.Order, error) {
	payment, err := domain.ParsePaymentMethod(req.Payment)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, domain.Validation("items_required", "items", "an order needs at least one item")
	}
	for i, line := range req.Items {
		if line.ProductID <= 0 {
			return nil, domain.ErrInvalidField.WithField(fmt.Sprintf("items[%d].product_id", i)).
				WithMessagef("product_id must be a positive integer")
		}
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidField.WithField(fmt.Sprintf("items[%d].quantity", i)).
				WithMessagef("quantity must be greater than 0")
		}
		if line.Quantity > domain.MaxQuantity {
			return nil, domain.ErrInvalidField.WithField(fmt.Sprintf("items[%d].quantity", i)).
				WithMessagef("quantity must not exceed %d", domain.MaxQuantity)
		}
	}

	now := s.clock.Now()
	businessDate := s.clock.Today()
	order := &domain.Order{
		ID:        uuid.NewString(),
		BuyerID:   p.UserID,
		Status:    domain.OrderStatusPending,
		Payment:   payment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ids := productIDs(req.Items)

	// Discount tags are resolved before the transaction so that no lookup
	// competes for a connection while product rows are locked.
	owners, err := s.store.ProductOwners(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load product owners: %w", err)
	}
	tags := s.resolveDiscounts(ctx, owners, businessDate)

	err = s.store.WithinTx(ctx, func(tx Tx) error {
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}

		if err := checkStock(req.Items, products); err != nil {
			return err
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, line := range req.Items {
			product := products[line.ProductID]
			item := domain.OrderItem{
				ID:           uuid.NewString(),
				OrderID:      order.ID,
				ProductID:    product.ID,
				ProductName:  product.Name,
				SellerID:     product.OwnerID,
				UnitPrice:    product.Price,
				Quantity:     line.Quantity,
				Status:       domain.OrderStatusPending,
				BusinessDate: businessDate,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			var tag discountTag
			if product.OwnerID != nil {
				tag = tags[*product.OwnerID]
			}
			item.IsDiscountDay = tag.active
			item.DiscountPercentage = tag.percentage

			if err := tx.InsertItem(ctx, &item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if err := tx.DecrementStock(ctx, product.ID, line.Quantity, now); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return domain.InsufficientStock(fmt.Sprintf("items[%d].quantity", i), product.Name, product.Stock, line.Quantity)
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
			order.Items = append(order.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func productIDs(lines []LineRequest) []int64 {
	seen := make(map[int64]bool, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// checkStock validates lines in request order. Repeated products are checked
// against what earlier lines left.
func checkStock(lines []LineRequest, products map[int64]*domain.Product) error {
	remaining := make(map[int64]int, len(products))
	for id, p := range products {
		remaining[id] = p.Stock
	}

	for i, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return domain.ErrProductNotFound.WithField(fmt.Sprintf("items[%d].product_id", i)).
				WithMessagef("Product with id %d does not exist", line.ProductID)
		}
		if line.Quantity > remaining[line.ProductID] {
			return domain.InsufficientStock(fmt.Sprintf("items[%d].quantity", i), product.Name,
				remaining[line.ProductID], line.Quantity)
		}
		remaining[line.ProductID] -= line.Quantity
	}
	return nil
}

type discountTag struct {
	active     bool
	percentage decimal.Decimal
}

// resolveDiscounts looks up each seller once. Tagging is best-effort: a
// failed lookup leaves the seller's items at full price and never fails the
// order.
func (s *Service) resolveDiscounts(ctx context.Context, owners map[int64]int64, date time.Time) map[int64]discountTag {
	tags := make(map[int64]discountTag)
	if s.discounts == nil {
		return tags
	}

	sellers := make([]int64, 0, len(owners))
	seen := make(map[int64]bool, len(owners))
	for _, sellerID := range owners {
		if !seen[sellerID] {
			seen[sellerID] = true
			sellers = append(sellers, sellerID)
		}
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i] < sellers[j] })

	for _, sellerID := range sellers {
		pct, active, err := s.discounts.ActiveDiscountFor(ctx, sellerID, date)
		if err != nil {
			s.logger.Warn("discount lookup failed, item stays at full price", "error", err, "seller_id", sellerID)
			s.metrics.DiscountTag(ctx, "lookup_failed")
			continue
		}

		if active {
			s.metrics.DiscountTag(ctx, "discounted")
		} else {
			s.metrics.DiscountTag(ctx, "full_price")
		}
		tags[sellerID] = discountTag{active: active, percentage: pct}
	}
	return tags
}

func (s *Service) publishCreated(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}

	items := make([]domain.OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.OrderEventItem{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			IsDiscountDay: item.IsDiscountDay,
			FinalSubtotal: pricing.Format(item.Subtotal().Final),
		})
	}

	event := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		Payment:     order.Payment,
		Items:       items,
		TotalAmount: pricing.Format(order.Totals().Final),
		Timestamp:   order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderCreated, order.ID, event); err != nil {
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

// Get returns one of the caller's orders. Orders of other buyers are
// reported as not found.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrOrderNotFound
	}

	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil || order.BuyerID != p.UserID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]domain.Order, error) {
	return s.store.ListByBuyer(ctx, p.UserID)
}

// ListForSeller returns orders containing the seller's products, each
// carrying only the seller's items.
func (s *Service) ListForSeller(ctx context.Context, p auth.Principal) ([]domain.Order, error) {
	return s.store.ListBySeller(ctx, p.UserID)
}

// UpdateOrderRequest carries the mutable order fields. Items is captured only
// to reject attempts to modify line items.
type UpdateOrderRequest struct {
	Status  *string         `json:"status"`
	Payment *string         `json:"payment"`
	Items   json.RawMessage `json:"items"`
}

// Update changes the status and/or payment method of the caller's order.
// Cancelling a pending order returns its quantities to stock.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, req UpdateOrderRequest, full bool) (*domain.Order, error) {
	if len(req.Items) > 0 && string(req.Items) != "null" {
		return nil, domain.ErrItemsImmutable
	}
	if full && (req.Status == nil || req.Payment == nil) {
		return nil, domain.Validation("required", "status", "status and payment are required")
	}

	var (
		status  domain.OrderStatus
		payment domain.PaymentMethod
		err     error
	)
	if req.Status != nil {
		if status, err = domain.ParseOrderStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.Payment != nil {
		if payment, err = domain.ParsePaymentMethod(*req.Payment); err != nil {
			return nil, err
		}
	}

	var order *domain.Order
	err = s.withOwnedOrder(ctx, p, id, func(tx Tx, o *domain.Order) error {
		now := s.clock.Now()

		if req.Payment != nil && payment != o.Payment {
			if o.IsPaid {
				return domain.ErrPaymentLocked
			}
			o.Payment = payment
		}

		if req.Status != nil && status != o.Status {
			if !o.Status.CanTransitionTo(status) {
				return domain.ErrStatusTransition.WithMessagef("order cannot move from %s to %s", o.Status, status)
			}
			if status == domain.OrderStatusCancelled {
				if err := restock(ctx, tx, o, now); err != nil {
					return err
				}
			}
			o.SetStatus(status, now)
		}

		o.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order updated", "order_id", order.ID, "status", order.Status, "payment", order.Payment)
	return order, nil
}

// Delete hard-deletes the caller's order. A pending order returns its
// quantities to stock first; delivered and cancelled orders do not.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	var restocked bool
	err := s.withOwnedOrder(ctx, p, id, func(tx Tx, o *domain.Order) error {
		if o.Status == domain.OrderStatusPending {
			if err := restock(ctx, tx, o, s.clock.Now()); err != nil {
				return err
			}
			restocked = true
		}
		if err := tx.DeleteOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("order deleted", "order_id", id, "restocked", restocked)
	return nil
}

// Settle runs check against the caller's locked order and, when it passes,
// marks the order paid and advances a pending order to On Delivery.
func (s *Service) Settle(ctx context.Context, p auth.Principal, id string, check func(*domain.Order) error) (*domain.Order, error) {
	var order *domain.Order
	err := s.withOwnedOrder(ctx, p, id, func(tx Tx, o *domain.Order) error {
		if err := check(o); err != nil {
			return err
		}

		now := s.clock.Now()
		o.IsPaid = true
		if o.Status == domain.OrderStatusPending {
			o.SetStatus(domain.OrderStatusOnDelivery, now)
		}
		o.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) withOwnedOrder(ctx context.Context, p auth.Principal, id string, fn func(Tx, *domain.Order) error) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrOrderNotFound
	}

	return s.store.WithinTx(ctx, func(tx Tx) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if order == nil || order.BuyerID != p.UserID {
			return domain.ErrOrderNotFound
		}
		return fn(tx, order)
	})
}

func restock(ctx context.Context, tx Tx, o *domain.Order, at time.Time) error {
	for _, item := range o.Items {
		if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity, at); err != nil {
			return fmt.Errorf("restock product %d: %w", item.ProductID, err)
		}
	}
	return nil
}
