package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/pricing"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusOnDelivery OrderStatus = "On Delivery"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(strings.TrimSpace(s)); status {
	case OrderStatusPending, OrderStatusOnDelivery, OrderStatusCancelled:
		return status, nil
	default:
		return "", ErrInvalidStatus.WithMessagef("%q is not a valid order status", s)
	}
}

// CanTransitionTo reports whether an order in s may move to next. Pending is
// the only non-terminal state; staying in the same state is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	return s == OrderStatusPending && (next == OrderStatusOnDelivery || next == OrderStatusCancelled)
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentPayMaya        PaymentMethod = "Pay Maya"
	PaymentGCash          PaymentMethod = "G-Cash"
	PaymentBPI            PaymentMethod = "B.P.I"
	PaymentGoTyme         PaymentMethod = "Go Tyme"
	PaymentOthers         PaymentMethod = "Others"
)

var paymentMethods = []PaymentMethod{
	PaymentCashOnDelivery,
	PaymentPayMaya,
	PaymentGCash,
	PaymentBPI,
	PaymentGoTyme,
	PaymentOthers,
}

// ParsePaymentMethod accepts one of the enumerated methods. An empty value
// selects cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PaymentCashOnDelivery, nil
	}
	for _, m := range paymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", ErrInvalidPayment.WithMessagef("%q is not a valid payment method", s)
}

// RequiresCard reports whether paying with m needs a card number.
func (m PaymentMethod) RequiresCard() bool {
	return m != PaymentCashOnDelivery
}

// OrderItem is one line of an order. UnitPrice, ProductName, SellerID and
// DiscountPercentage are read from the product and the matching discount day
// when the item is loaded; they are not stored on the item.
type OrderItem struct {
	ID                 string
	OrderID            string
	ProductID          int64
	ProductName        string
	SellerID           *int64
	UnitPrice          decimal.Decimal
	Quantity           int
	Status             OrderStatus
	IsDiscountDay      bool
	DiscountPercentage decimal.Decimal
	BusinessDate       time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (i OrderItem) Subtotal() pricing.Subtotal {
	return pricing.Line(i.UnitPrice, i.Quantity, i.DiscountPercentage, i.IsDiscountDay)
}

type Order struct {
	ID        string
	BuyerID   int64
	Status    OrderStatus
	Payment   PaymentMethod
	IsPaid    bool
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Totals aggregates the current subtotals of every item.
func (o *Order) Totals() pricing.Totals {
	lines := make([]pricing.Subtotal, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, item.Subtotal())
	}
	return pricing.Sum(lines...)
}

// SetStatus moves the order and all of its items to status.
func (o *Order) SetStatus(status OrderStatus, at time.Time) {
	o.Status = status
	o.UpdatedAt = at
	for i := range o.Items {
		o.Items[i].Status = status
		o.Items[i].UpdatedAt = at
	}
}
