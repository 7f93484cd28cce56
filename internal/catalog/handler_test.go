package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/storefront/internal/auth"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(svc, logger)
	guard := auth.NewGuard(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", h.HandleList)
	mux.HandleFunc("POST /products", guard.Require(auth.CapManageProducts, h.HandleCreate))
	mux.HandleFunc("GET /products/{id}", h.HandleGet)
	mux.HandleFunc("DELETE /products/{id}", guard.Authenticated(h.HandleDelete))
	mux.HandleFunc("POST /products/{id}/restore", guard.Authenticated(h.HandleRestore))
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		req.Header.Set(auth.HeaderUserID, "10")
		req.Header.Set(auth.HeaderUserRole, role)
	}
	rec := httptest.NewRecorder()
	auth.NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil))).Authenticate(h).ServeHTTP(rec, req)
	return rec
}

func TestHandler_ProductLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/products", `{"name":"dew berry","price":"10.00","stock":5}`, "customer")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer create: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}

	rec = do(t, mux, http.MethodPost, "/products", `{"name":"dew berry","price":"10.00","stock":5}`, "seller")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var created productView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Name != "Dew Berry" || created.Price != "10.00" || created.Status != "Available" {
		t.Errorf("unexpected product: %+v", created)
	}

	rec = do(t, mux, http.MethodDelete, "/products/1", "", "seller")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = do(t, mux, http.MethodDelete, "/products/1", "", "seller")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "already_deleted") {
		t.Errorf("second delete: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, "/products/1", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/products?deleted=true", "", "seller")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":1`) {
		t.Errorf("deleted view: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodPost, "/products/1/restore", "", "seller")
	if rec.Code != http.StatusOK {
		t.Errorf("restore: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = do(t, mux, http.MethodPost, "/products/1/restore", "", "seller")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "product_not_deleted") {
		t.Errorf("second restore: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_InvalidID(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/products/abc", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_StockBeyondColumnRange(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/products", `{"name":"crate","price":"1.00","stock":2147483648}`, "seller")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "stock_out_of_range") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
