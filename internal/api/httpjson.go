package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexfreight/broker/internal/brokererr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps a sentinel brokererr value (or a plain error) to an HTTP
// status and a uniform {"error": "..."} body.
func writeError(w http.ResponseWriter, fallbackStatus int, err error) {
	status := fallbackStatus
	switch {
	case errors.Is(err, brokererr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, brokererr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, brokererr.ErrAuthenticationRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, brokererr.ErrAuthorizationDenied):
		status = http.StatusForbidden
	case errors.Is(err, brokererr.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, brokererr.ErrInvariantViolation), errors.Is(err, brokererr.ErrSafetyViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, brokererr.ErrCircuitOpen), errors.Is(err, brokererr.ErrSagaFailed):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
