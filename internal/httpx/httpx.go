// Package httpx holds the JSON response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type errorResponse struct {
	Error *domain.Error `json:"error"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError renders err as a structured payload. Errors that are not a
// *domain.Error become a bare 500 and are logged with msg.
func WriteError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	if e, ok := domain.AsError(err); ok {
		WriteJSON(w, logger, e.Kind.HTTPStatus(), errorResponse{Error: e})
		return
	}

	logger.Error(msg, "error", err)
	WriteJSON(w, logger, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// DecodeJSON decodes the request body into dst. An empty body is accepted
// when allowEmpty is set.
func DecodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return domain.ErrInvalidRequest
	}
	return nil
}

// PathInt64 parses the named path value as a positive integer id.
func PathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidField.WithField(name).WithMessagef("%s must be a positive integer", name)
	}
	return id, nil
}
