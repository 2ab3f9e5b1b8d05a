package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleGetProfile serves GET /leads/{id}/profile.
func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	profiles, err := a.store.Profiles.ConvertedProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, p := range profiles {
		if p.LeadID == leadID {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no profile assigned"})
}

// handleSimilarProfiles serves GET /leads/{id}/profile/similar?k=5.
func (a *API) handleSimilarProfiles(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	k := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			k = parsed
		}
	}

	profiles, err := a.store.Profiles.ConvertedProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, p := range profiles {
		if p.LeadID == leadID {
			similar, err := a.profiles.Similar(r.Context(), p, k)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, similar)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no profile assigned"})
}
