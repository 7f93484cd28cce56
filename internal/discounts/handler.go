package discounts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpx"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

type Handler struct {
	registry *Registry
	logger   *slog.Logger
}

func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

type discountDayView struct {
	ID                 int64     `json:"id"`
	SellerID           int64     `json:"seller"`
	Date               string    `json:"date"`
	DiscountPercentage string    `json:"discount_percentage"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func newDiscountDayView(d *domain.DiscountDay) discountDayView {
	return discountDayView{
		ID:                 d.ID,
		SellerID:           d.SellerID,
		Date:               d.Date.Format(domain.DateLayout),
		DiscountPercentage: pricing.Format(d.Percentage),
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	days, err := h.registry.List(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to list discount days", err)
		return
	}

	views := make([]discountDayView, 0, len(days))
	for i := range days {
		views = append(views, newDiscountDayView(&days[i]))
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, views)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var in DiscountDayInput
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	day, err := h.registry.Create(r.Context(), p, in)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to create discount day", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusCreated, newDiscountDayView(day))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	day, err := h.registry.Get(r.Context(), p, id)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to get discount day", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newDiscountDayView(day))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	var in DiscountDayInput
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	day, err := h.registry.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to update discount day", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newDiscountDayView(day))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	if err := h.registry.Delete(r.Context(), p, id); err != nil {
		httpx.WriteError(w, h.logger, "failed to delete discount day", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStats serves GET /seller/stats.
//
//	type=discount[&date=YYYY-MM-DD][&view=products]
//	type=non-discount[&start_date=YYYY-MM-DD&end_date=YYYY-MM-DD]
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	q := r.URL.Query()

	date, err := queryDate(q.Get("date"), "date")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	var result any
	switch q.Get("type") {
	case "", "discount":
		switch {
		case q.Get("view") == "products":
			result, err = h.registry.ProductStats(r.Context(), p.UserID, date)
		case date != nil:
			result, err = h.registry.DayStats(r.Context(), p.UserID, *date)
		default:
			result, err = h.registry.AllDayStats(r.Context(), p.UserID)
		}
	case "non-discount":
		from, ferr := queryDate(q.Get("start_date"), "start_date")
		to, terr := queryDate(q.Get("end_date"), "end_date")
		if ferr != nil || terr != nil {
			httpx.WriteError(w, h.logger, "", firstErr(ferr, terr))
			return
		}
		result, err = h.registry.NonDiscountStats(r.Context(), p.UserID, from, to)
	default:
		httpx.WriteError(w, h.logger, "", domain.ErrInvalidField.WithField("type").
			WithMessagef(`Invalid type. Use "discount" or "non-discount".`))
		return
	}
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to compute seller stats", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, result)
}

func queryDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return nil, domain.ErrInvalidField.WithField(field).WithMessagef("%s must be formatted as YYYY-MM-DD", field)
	}
	return &t, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
