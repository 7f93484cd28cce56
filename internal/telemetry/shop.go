package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ShopMetrics holds the business instruments of the shop service.
type ShopMetrics struct {
	ordersCreated     metric.Int64Counter
	ordersRejected    metric.Int64Counter
	orderLines        metric.Int64Histogram
	discountTags      metric.Int64Counter
	paymentsValidated metric.Int64Counter
}

func NewShopMetrics(meter metric.Meter) (*ShopMetrics, error) {
	var m ShopMetrics
	var err, e error

	m.ordersCreated, e = meter.Int64Counter("shop.orders.created",
		metric.WithDescription("Orders committed, by payment method"))
	err = errors.Join(err, e)

	m.ordersRejected, e = meter.Int64Counter("shop.orders.rejected",
		metric.WithDescription("Order placements aborted, by error code"))
	err = errors.Join(err, e)

	m.orderLines, e = meter.Int64Histogram("shop.orders.lines",
		metric.WithDescription("Number of lines per committed order"))
	err = errors.Join(err, e)

	m.discountTags, e = meter.Int64Counter("shop.order_items.discount_tags",
		metric.WithDescription("Discount-day lookups for new order items, by outcome"))
	err = errors.Join(err, e)

	m.paymentsValidated, e = meter.Int64Counter("shop.payments.validated",
		metric.WithDescription("Payment attempts, by outcome"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ShopMetrics) OrderCreated(ctx context.Context, payment string, lines int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("payment", payment))
	m.ordersCreated.Add(ctx, 1, attrs)
	m.orderLines.Record(ctx, int64(lines), attrs)
}

func (m *ShopMetrics) OrderRejected(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// DiscountTag records one lookup outcome: "discounted", "full_price" or
// "lookup_failed".
func (m *ShopMetrics) DiscountTag(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.discountTags.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *ShopMetrics) PaymentValidated(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.paymentsValidated.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
