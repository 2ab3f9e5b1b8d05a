package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nexfreight/broker/internal/audit"
	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/provisioning"
)

// handleListAgents serves GET /command-center/agents.
func (a *API) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.agents.All())
}

// handleAgentLogs serves GET /command-center/agents/{id}/logs.
func (a *API) handleAgentLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, a.agents.Logs(id, 100))
}

type changeCarrierRequest struct {
	ShipmentID    string `json:"shipment_id"`
	NewCarrierID  string `json:"new_carrier_id"`
	OverrideToken string `json:"override_token"`
}

// handleChangeCarrier serves POST /command/change_carrier: a manual
// override of the automated failover decision, recorded with
// human_override=true. Runs through the same reassignment saga the
// automated sweep uses, so escrow transfer and compensation stay
// consistent; OverrideToken is the operator's bypass for shipments whose
// escrow exceeds the auto-failover limit.
func (a *API) handleChangeCarrier(w http.ResponseWriter, r *http.Request) {
	var req changeCarrierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	shipment, err := a.store.Shipments.Get(r.Context(), req.ShipmentID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	fromCarrierID := shipment.CarrierID

	if err := a.failover.Override(r.Context(), req.ShipmentID, req.NewCarrierID, req.OverrideToken); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	shipment, err = a.store.Shipments.Get(r.Context(), req.ShipmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	a.audit.Append(r.Context(), audit.Record{
		AgentKind: "command_center", ResourceID: shipment.ID, Action: "change_carrier",
		Input:          []byte(fromCarrierID),
		Output:         []byte(req.NewCarrierID),
		Rationale:      "operator manual carrier override",
		HumanOverride:  true,
		OverriddenBy:   claims.UserID,
		RetentionUntil: time.Now().AddDate(1, 0, 0),
	})
	writeJSON(w, http.StatusOK, toShipmentResponse(shipment))
}

// handleEmergencyStop serves POST /command/emergency_stop, halting
// FailoverAgent and DisputeAgent's loops immediately.
func (a *API) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	a.emergencyStop.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "halted"})
}

// handleResume serves POST /command/resume, clearing the emergency stop.
func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.emergencyStop.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

type vetoAgentRequest struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// handleVetoAgent serves POST /command/veto_agent: records a veto warning
// entry in the agent's activity feed. It does not change the agent's state
// and does not stop the agent from acting.
func (a *API) handleVetoAgent(w http.ResponseWriter, r *http.Request) {
	var req vetoAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	a.agents.Record(r.Context(), req.AgentID, "veto", domain.ActivityWarning, "vetoed by "+claims.UserID+": "+req.Reason, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "vetoed"})
}

type forceLevelRequest struct {
	LevelID       string `json:"level_id"`
	OverrideToken string `json:"override_token"`
	MRR           float64 `json:"mrr"`
}

// handleForceLevel serves POST /command/force_level: overrides the
// revenue-driven provisioning ladder, bypassing the safety check only when
// a valid override token accompanies the request.
func (a *API) handleForceLevel(w http.ResponseWriter, r *http.Request) {
	var req forceLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := a.provisioning.ActivateLevel(r.Context(), req.LevelID, provisioning.ActivateLevelOptions{MRR: req.MRR, OverrideToken: req.OverrideToken})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "activated", "level_id": req.LevelID})
}

type togglePromotionModeRequest struct {
	Enabled bool `json:"enabled"`
}

// handleTogglePromotionMode serves POST /command/toggle_promotion_mode:
// stores the promotion-mode flag on the API and echoes it back. Nothing
// reads the flag, so persuasion strategy selection is unaffected by it.
func (a *API) handleTogglePromotionMode(w http.ResponseWriter, r *http.Request) {
	var req togglePromotionModeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.promotionMode.Store(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"promotion_mode": req.Enabled})
}
