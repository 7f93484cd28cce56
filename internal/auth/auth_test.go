package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleCustomer, CapPlaceOrder, true},
		{RoleCustomer, CapManageProducts, false},
		{RoleSeller, CapManageDiscounts, true},
		{RoleSeller, CapManageAnyProduct, false},
		{RoleAdmin, CapManageAnyProduct, true},
		{RoleAdmin, CapManageDiscounts, false},
		{Role("guest"), CapPlaceOrder, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Can(tt.role, tt.cap), "%s/%d", tt.role, tt.cap)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Seller ")
	require.NoError(t, err)
	assert.Equal(t, RoleSeller, r)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}

func newTestGuard() *Guard {
	return NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGuard_AuthenticateAndRequire(t *testing.T) {
	g := newTestGuard()
	var seen Principal
	h := g.Authenticate(g.Require(CapManageDiscounts, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		id     string
		role   string
		status int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"malformed id", "abc", "seller", http.StatusUnauthorized},
		{"unknown role", "7", "root", http.StatusUnauthorized},
		{"customer lacks capability", "7", "customer", http.StatusForbidden},
		{"seller allowed", "7", "seller", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/discount-days", nil)
			if tt.id != "" {
				req.Header.Set(HeaderUserID, tt.id)
			}
			if tt.role != "" {
				req.Header.Set(HeaderUserRole, tt.role)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, Principal{UserID: 7, Role: RoleSeller}, seen)
}

func TestGuard_Authenticated(t *testing.T) {
	g := newTestGuard()
	h := g.Authenticate(g.Authenticated(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set(HeaderUserID, "3")
	req.Header.Set(HeaderUserRole, "customer")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
