package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

func newTestHandler(t *testing.T, status int) (*NotificationHandler, *[]email) {
	t.Helper()
	var sent []email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var msg email
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sent = append(sent, msg)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotificationHandler(srv.URL+"/", "shop.test", srv.Client(), logger), &sent
}

func TestHandle_OrderCreated(t *testing.T) {
	h, sent := newTestHandler(t, http.StatusOK)

	payload, err := json.Marshal(domain.OrderCreatedEvent{
		OrderID: "8f7c",
		BuyerID: 7,
		Payment: domain.PaymentGCash,
		Items: []domain.OrderEventItem{
			{ProductID: 1, ProductName: "Dew Berry", Quantity: 2, IsDiscountDay: true, FinalSubtotal: "16.00"},
		},
		TotalAmount: "16.00",
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), domain.TopicOrderCreated, payload))

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Equal(t, "buyer-7@shop.test", msg.To)
	assert.Equal(t, "Order Confirmation: 8f7c", msg.Subject)
	assert.Contains(t, msg.Body, "Dew Berry x2: 16.00 (discount day)")
	assert.Contains(t, msg.Body, "Total: 16.00")
}

func TestHandle_OrderPaid(t *testing.T) {
	h, sent := newTestHandler(t, http.StatusOK)

	payload, err := json.Marshal(domain.OrderPaidEvent{
		OrderID: "8f7c",
		BuyerID: 7,
		Payment: domain.PaymentCashOnDelivery,
		Amount:  "16.00",
		Status:  domain.OrderStatusOnDelivery,
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), domain.TopicOrderPaid, payload))

	require.Len(t, *sent, 1)
	assert.Equal(t, "Payment Received: 8f7c", (*sent)[0].Subject)
	assert.Contains(t, (*sent)[0].Body, "On Delivery")
}

func TestHandle_Failures(t *testing.T) {
	h, sent := newTestHandler(t, http.StatusInternalServerError)

	err := h.Handle(context.Background(), domain.TopicOrderPaid, []byte(`{"order_id":"1","buyer_id":7}`))
	assert.ErrorContains(t, err, "email service returned status 500")

	err = h.Handle(context.Background(), domain.TopicOrderCreated, []byte(`not json`))
	assert.ErrorContains(t, err, "unmarshal order created event")

	assert.NoError(t, h.Handle(context.Background(), "inventory.updated", []byte(`{}`)))
	assert.Len(t, *sent, 1)
}
