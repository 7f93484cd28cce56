package payment

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/clock"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

// Settler locks one of the caller's orders, runs check against it and marks
// it paid when check passes.
type Settler interface {
	Settle(ctx context.Context, p auth.Principal, id string, check func(*domain.Order) error) (*domain.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Request struct {
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	CardNumber  *string         `json:"card_number"`
}

type Service struct {
	orders    Settler
	publisher Publisher
	metrics   *telemetry.ShopMetrics
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService builds the payment workflow. publisher and metrics may be nil.
func NewService(orders Settler, publisher Publisher, metrics *telemetry.ShopMetrics, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		orders:    orders,
		publisher: publisher,
		metrics:   metrics,
		clock:     clk,
		logger:    logger,
	}
}

func (s *Service) Pay(ctx context.Context, p auth.Principal, req Request) (*domain.Order, error) {
	if req.OrderNumber == "" {
		return nil, domain.ErrInvalidField.WithField("order_number").WithMessagef("order_number is required")
	}

	var card string
	if req.CardNumber != nil {
		card = NormalizeCard(*req.CardNumber)
	}

	order, err := s.orders.Settle(ctx, p, req.OrderNumber, func(o *domain.Order) error {
		return Validate(o, req.Amount, card)
	})
	if err != nil {
		if e, ok := domain.AsError(err); ok {
			s.metrics.PaymentValidated(ctx, e.Code)
			s.logger.Info("payment rejected", "order_id", req.OrderNumber, "buyer_id", p.UserID, "code", e.Code)
		}
		return nil, err
	}

	s.metrics.PaymentValidated(ctx, "accepted")
	s.publishPaid(ctx, order, req.Amount)

	s.logger.Info("payment accepted", "order_id", order.ID, "buyer_id", order.BuyerID, "payment", order.Payment)
	return order, nil
}

func (s *Service) publishPaid(ctx context.Context, order *domain.Order, amount decimal.Decimal) {
	if s.publisher == nil {
		return
	}

	event := domain.OrderPaidEvent{
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		Payment:   order.Payment,
		Amount:    pricing.Format(amount),
		Status:    order.Status,
		Timestamp: s.clock.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderPaid, order.ID, event); err != nil {
		s.logger.Error("failed to publish order paid event", "error", err, "order_id", order.ID)
	}
}
