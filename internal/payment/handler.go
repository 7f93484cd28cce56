package payment

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/httpx"
	"github.com/joao-fontenele/storefront/internal/orders"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type response struct {
	Message string      `json:"message"`
	Order   orders.View `json:"order"`
}

// HandlePay serves POST /payment.
func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req Request
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	order, err := h.service.Pay(r.Context(), p, req)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to process payment", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, response{
		Message: "Payment successful",
		Order:   orders.NewView(order),
	})
}
