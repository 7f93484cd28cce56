package catalog

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpx"
	"github.com/joao-fontenele/storefront/internal/pricing"
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

type productView struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       string               `json:"price"`
	Stock       int                  `json:"stock"`
	Status      domain.ProductStatus `json:"status"`
	OwnerID     *int64               `json:"user_id"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   *time.Time           `json:"deleted_at"`
}

func newProductView(p *domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       pricing.Format(p.Price),
		Stock:       p.Stock,
		Status:      p.Status,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		DeletedAt:   p.DeletedAt,
	}
}

func newProductViews(products []domain.Product) []productView {
	views := make([]productView, 0, len(products))
	for i := range products {
		views = append(views, newProductView(&products[i]))
	}
	return views
}

// HandleList serves the active catalog, or the caller's deleted products
// when ?deleted=true.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	deleted, _ := strconv.ParseBool(r.URL.Query().Get("deleted"))
	if !deleted {
		products, err := h.service.List(r.Context())
		if err != nil {
			httpx.WriteError(w, h.logger, "failed to list products", err)
			return
		}
		httpx.WriteJSON(w, h.logger, http.StatusOK, newProductViews(products))
		return
	}

	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, "", domain.ErrUnauthorized)
		return
	}
	products, err := h.service.ListDeleted(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to list deleted products", err)
		return
	}

	h.logger.Info("deleted products listed", "user_id", p.UserID, "count", len(products))
	httpx.WriteJSON(w, h.logger, http.StatusOK, newProductViews(products))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var in ProductInput
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	product, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to create product", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusCreated, newProductView(product))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to get product", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newProductView(product))
}

// HandleUpdate serves both PUT (full) and PATCH (partial) updates.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	var in ProductInput
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	product, err := h.service.Update(r.Context(), p, id, in, r.Method == http.MethodPut)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to update product", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newProductView(product))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	alreadyDeleted, err := h.service.Delete(r.Context(), p, id)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to delete product", err)
		return
	}

	if alreadyDeleted {
		httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{
			"message":         "Product already deleted",
			"already_deleted": true,
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	product, err := h.service.Restore(r.Context(), p, id)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to restore product", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newProductView(product))
}

func (h *Handler) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	var adj StockAdjustment
	if err := httpx.DecodeJSON(r, &adj, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	product, err := h.service.AdjustStock(r.Context(), p, id, adj)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to adjust stock", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{
		"message":       "Product stock updated successfully",
		"current_stock": product.Stock,
		"status":        product.Status,
	})
}

// HandleListMine serves GET /seller/products.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	products, err := h.service.ListBySeller(r.Context(), p.UserID)
	if err != nil {
		httpx.WriteError(w, h.logger, "failed to list seller products", err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, newProductViews(products))
}
