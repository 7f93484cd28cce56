package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpx"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Guard reads the principal asserted by the identity proxy and enforces
// capabilities per route.
type Guard struct {
	logger *slog.Logger
}

func NewGuard(logger *slog.Logger) *Guard {
	return &Guard{logger: logger}
}

// Authenticate attaches the principal to the request context. Requests
// without identity headers pass through anonymously; malformed ones are
// rejected.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		rawRole := r.Header.Get(HeaderUserRole)
		if rawID == "" && strings.TrimSpace(rawRole) == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			httpx.WriteError(w, g.logger, "", domain.ErrUnauthorized.WithMessagef("invalid %s header", HeaderUserID))
			return
		}
		role, err := ParseRole(rawRole)
		if err != nil {
			httpx.WriteError(w, g.logger, "", err)
			return
		}

		ctx := WithPrincipal(r.Context(), Principal{UserID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects anonymous callers with 401 and callers lacking c with 403.
func (g *Guard) Require(c Capability, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, g.logger, "", domain.ErrUnauthorized)
			return
		}
		if !p.Can(c) {
			g.logger.Warn("capability denied", "user_id", p.UserID, "role", p.Role, "path", r.URL.Path)
			httpx.WriteError(w, g.logger, "", domain.ErrForbidden)
			return
		}
		h(w, r)
	}
}

// Authenticated rejects anonymous callers only.
func (g *Guard) Authenticated(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.WriteError(w, g.logger, "", domain.ErrUnauthorized)
			return
		}
		h(w, r)
	}
}
