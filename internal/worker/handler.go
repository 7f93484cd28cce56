package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// NotificationHandler turns order events into buyer emails sent through the
// email service.
type NotificationHandler struct {
	emailServiceURL string
	emailDomain     string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL, emailDomain string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		emailDomain:     emailDomain,
		httpClient:      client,
		logger:          logger,
	}
}

type email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handle dispatches one event by topic. Events on other topics are skipped.
func (h *NotificationHandler) Handle(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case domain.TopicOrderCreated:
		return h.handleCreated(ctx, payload)
	case domain.TopicOrderPaid:
		return h.handlePaid(ctx, payload)
	default:
		h.logger.Warn("skipping event on unexpected topic", "topic", topic)
		return nil
	}
}

func (h *NotificationHandler) handleCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "buyer_id", event.BuyerID)

	var body strings.Builder
	fmt.Fprintf(&body, "Your order %s has been placed with %d item(s).\n", event.OrderID, len(event.Items))
	for _, item := range event.Items {
		fmt.Fprintf(&body, "- %s x%d: %s", item.ProductName, item.Quantity, item.FinalSubtotal)
		if item.IsDiscountDay {
			body.WriteString(" (discount day)")
		}
		body.WriteString("\n")
	}
	fmt.Fprintf(&body, "Total: %s\nPayment: %s\n", event.TotalAmount, event.Payment)

	if err := h.sendEmail(ctx, email{
		To:      h.recipient(event.BuyerID),
		Subject: "Order Confirmation: " + event.OrderID,
		Body:    body.String(),
	}); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("order confirmation sent", "order_id", event.OrderID)
	return nil
}

func (h *NotificationHandler) handlePaid(ctx context.Context, payload []byte) error {
	var event domain.OrderPaidEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order paid event: %w", err)
	}

	h.logger.Info("processing order paid event", "order_id", event.OrderID, "buyer_id", event.BuyerID)

	if err := h.sendEmail(ctx, email{
		To:      h.recipient(event.BuyerID),
		Subject: "Payment Received: " + event.OrderID,
		Body: fmt.Sprintf("We received %s via %s for order %s. Current status: %s.",
			event.Amount, event.Payment, event.OrderID, event.Status),
	}); err != nil {
		h.logger.Error("failed to send payment receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send payment receipt: %w", err)
	}

	h.logger.Info("payment receipt sent", "order_id", event.OrderID)
	return nil
}

func (h *NotificationHandler) recipient(buyerID int64) string {
	return fmt.Sprintf("buyer-%d@%s", buyerID, h.emailDomain)
}

func (h *NotificationHandler) sendEmail(ctx context.Context, msg email) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
