package api

import "net/http"

type analyzeSentimentRequest struct {
	Transcript string `json:"transcript"`
	LeadID     string `json:"lead_id"`
	CallID     string `json:"call_id"`
}

// handleAnalyzeSentiment serves POST /sentiment/analyze. The cascade never
// errors externally; a low-confidence keyword-tier result is still a 200.
func (a *API) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req analyzeSentimentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record := a.sentiment.Analyze(r.Context(), req.Transcript, req.LeadID, req.CallID)
	writeJSON(w, http.StatusOK, record)
}
