package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestShopMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewShopMetrics(mp.Meter("test"))
	require.NoError(t, err)

	m.OrderCreated(ctx, "G-Cash", 2)
	m.OrderCreated(ctx, "Cash on Delivery", 1)
	m.OrderRejected(ctx, "insufficient_stock")
	m.DiscountTag(ctx, "discounted")
	m.PaymentValidated(ctx, "accepted")

	assert.Equal(t, int64(2), collectSum(t, reader, "shop.orders.created"))
	assert.Equal(t, int64(1), collectSum(t, reader, "shop.orders.rejected"))
	assert.Equal(t, int64(1), collectSum(t, reader, "shop.order_items.discount_tags"))
	assert.Equal(t, int64(1), collectSum(t, reader, "shop.payments.validated"))
}

func TestShopMetrics_NilIsNoop(t *testing.T) {
	var m *ShopMetrics
	assert.NotPanics(t, func() {
		m.OrderCreated(context.Background(), "Others", 1)
		m.PaymentValidated(context.Background(), "rejected")
	})
}
