package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleResetBreaker serves POST /admin/breakers/{dep}/reset: an operator
// escape hatch for a breaker stuck open past its recovery timeout (e.g. a
// dependency that recovered but whose half-open probes keep losing a race
// with a slow client timeout).
func (a *API) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	dep := chi.URLParam(r, "dep")
	if !a.breakers.Reset(dep) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown dependency"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dependency": dep, "state": "closed"})
}

// handleBreakerSnapshot serves GET /admin/breakers.
func (a *API) handleBreakerSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.breakers.Snapshot())
}

// handleRecentAudit serves GET /admin/audit?limit=100.
func (a *API) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, a.audit.Recent(limit))
}
