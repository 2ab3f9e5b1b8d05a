package api

import "net/http"

// handleCommandCenterStream serves GET /command-center/stream, upgrading
// to the websocket connection served by internal/hub's CommandCenterHub.
func (a *API) handleCommandCenterStream(w http.ResponseWriter, r *http.Request) {
	if err := a.hub.ServeWS(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err)
	}
}
