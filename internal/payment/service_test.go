package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/clock"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/orders"
	"github.com/joao-fontenele/storefront/internal/orders/orderstest"
)

var buyer = auth.Principal{UserID: 1, Role: auth.RoleCustomer}

type recordingPublisher struct {
	topics []string
	events []any
}

func (r *recordingPublisher) Publish(_ context.Context, topic, _ string, event any) error {
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	orders    *orders.Service
	payments  *Service
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFake(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), time.UTC)

	store := orderstest.New()
	seller := int64(100)
	store.AddProduct(domain.Product{ID: 1, Name: "Dew Berry", Price: decimal.RequireFromString("8.00"), Stock: 10, OwnerID: &seller})

	f := &fixture{publisher: &recordingPublisher{}}
	f.orders = orders.NewService(store, nil, nil, nil, clk, logger)
	f.payments = NewService(f.orders, f.publisher, nil, clk, logger)
	return f
}

// placeOrder creates an order worth 16.00.
func (f *fixture) placeOrder(t *testing.T, payment string) *domain.Order {
	t.Helper()
	order, err := f.orders.PlaceOrder(context.Background(), buyer, orders.PlaceOrderRequest{
		Payment: payment,
		Items:   []orders.LineRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	return order
}

func strp(s string) *string { return &s }

func TestPay_AdvancesPendingOrder(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, "G-Cash")

	_, err := f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("15.00"), CardNumber: strp("4111111111111111")})
	require.ErrorIs(t, err, domain.ErrAmountTooLow)

	_, err = f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00")})
	require.ErrorIs(t, err, domain.ErrCardRequired)

	unpaid, err := f.orders.Get(context.Background(), buyer, order.ID)
	require.NoError(t, err)
	assert.False(t, unpaid.IsPaid)
	assert.Equal(t, domain.OrderStatusPending, unpaid.Status)
	assert.Empty(t, f.publisher.events)

	paid, err := f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00"), CardNumber: strp("4111 1111 1111 1111")})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, domain.OrderStatusOnDelivery, paid.Status)

	require.Equal(t, []string{domain.TopicOrderPaid}, f.publisher.topics)
	event := f.publisher.events[0].(domain.OrderPaidEvent)
	assert.Equal(t, "16.00", event.Amount)
	assert.Equal(t, domain.OrderStatusOnDelivery, event.Status)

	_, err = f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00"), CardNumber: strp("4111111111111111")})
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestPay_CashOnDelivery(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, "")

	_, err := f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00"), CardNumber: strp("4111111111111111")})
	require.ErrorIs(t, err, domain.ErrCardNotAllowed)

	paid, err := f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00"), CardNumber: strp("  ")})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
}

func TestPay_OnlyOwnOrders(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, "")

	stranger := auth.Principal{UserID: 2, Role: auth.RoleCustomer}
	_, err := f.payments.Pay(context.Background(), stranger, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00")})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.payments.Pay(context.Background(), buyer, Request{Amount: decimal.RequireFromString("16.00")})
	assert.ErrorIs(t, err, domain.ErrInvalidField)
}

func TestPay_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, "")
	_, err := f.orders.Update(context.Background(), buyer, order.ID, orders.UpdateOrderRequest{Status: strp("Cancelled")}, false)
	require.NoError(t, err)

	_, err = f.payments.Pay(context.Background(), buyer, Request{OrderNumber: order.ID, Amount: decimal.RequireFromString("16.00")})
	assert.ErrorIs(t, err, domain.ErrOrderCancelled)
}

func TestHandler_Pay(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, "Pay Maya")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := auth.NewGuard(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payment", guard.Require(auth.CapPayOrder, NewHandler(f.payments, logger).HandlePay))
	srv := guard.Authenticate(mux)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payment", strings.NewReader(body))
		req.Header.Set(auth.HeaderUserID, "1")
		req.Header.Set(auth.HeaderUserRole, "customer")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := send(`{"order_number":"` + order.ID + `","amount":"16.00","card_number":"0000111122223333"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Card number cannot start with 0000")

	rec = send(`{"order_number":"` + order.ID + `","amount":16,"card_number":"1234123412341234"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Message string      `json:"message"`
		Order   orders.View `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Payment successful", body.Message)
	assert.True(t, body.Order.IsPaid)
	assert.Equal(t, "On Delivery", string(body.Order.Status))
	assert.Equal(t, "16.00", body.Order.TotalAmount)
}
