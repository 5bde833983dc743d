package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/logger"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain error kinds to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBalanceExceeded), errors.Is(err, domain.ErrMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStateTransition), errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status of its kind. Internal errors
// are logged and their text is not exposed.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).
			Str("kind", domain.KindName(err)).
			Msg("request failed")
		writeError(w, status, domain.KindName(err), "internal server error")
		return
	}

	writeError(w, status, domain.KindName(err), err.Error())
}

// decodeRequest decodes the JSON body into req and runs its validation tags.
// It writes the error response and returns false on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}

	if err := dto.Validate(req); err != nil {
		writeDomainError(w, r, err)
		return false
	}

	return true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// pagination reads limit and offset, clamping both to sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = parseIntQuery(r, "limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// parseTimeQuery parses an optional date or RFC 3339 query parameter.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.DateOnly, val); err == nil {
		// A bare date includes the whole day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		return &end, nil
	}

	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, domain.NewValidationError("request", key+" must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

// urlParam returns a required path parameter, writing 400 when it is empty.
func urlParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val := chi.URLParam(r, key)
	if val == "" {
		writeError(w, http.StatusBadRequest, "missing "+key, "")
		return "", false
	}
	return val, true
}
