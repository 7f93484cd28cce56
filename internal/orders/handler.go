package orders

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/httpx"
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

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req PlaceOrderRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), p, req)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to create order", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusCreated, NewView(order))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	orders, err := h.service.ListMine(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to list orders", err)
		return
	}

	h.logger.Info("orders listed", "buyer_id", p.UserID, "count", len(orders))
	httpx.WriteJSON(w, h.logger, http.StatusOK, newViews(orders))
}

// HandleListSeller serves GET /seller/orders.
func (h *Handler) HandleListSeller(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	orders, err := h.service.ListForSeller(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to list seller orders", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newViews(orders))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	order, err := h.service.Get(r.Context(), p, r.PathValue("number"))
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to get order", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, NewView(order))
}

// HandleUpdate serves PUT and PATCH. Only status and payment may change.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req UpdateOrderRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	order, err := h.service.Update(r.Context(), p, r.PathValue("number"), req, r.Method == http.MethodPut)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to update order", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, NewView(order))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	if err := h.service.Delete(r.Context(), p, r.PathValue("number")); err != nil {
		httpx.WriteError(w, h.logger, "failed to delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
