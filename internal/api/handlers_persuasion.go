package api

import (
	"net/http"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/persuasion"
)

type selectScriptRequest struct {
	Stage       string               `json:"stage"`
	ProfileType domain.ProfileType   `json:"profile_type"`
	Objection   persuasion.Objection `json:"objection"`
}

// handleSelectScript serves POST /persuasion/select.
func (a *API) handleSelectScript(w http.ResponseWriter, r *http.Request) {
	var req selectScriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	script, err := a.persuasion.Select(r.Context(), req.Stage, req.ProfileType, req.Objection)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}
