package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nexfreight/broker/internal/audit"
	"github.com/nexfreight/broker/internal/eventbus"
)

type openDisputeRequest struct {
	ShipmentID string `json:"shipment_id"`
}

// handleOpenDispute serves POST /disputes: publishes dispute.opened, which
// DisputeAgent "GIULIA" (internal/dispute) picks up asynchronously.
func (a *API) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req openDisputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.bus.Publish(r.Context(), eventbus.Event{Type: "dispute.opened", Source: "api", Payload: req.ShipmentID})
	writeJSON(w, http.StatusAccepted, map[string]string{"shipment_id": req.ShipmentID, "status": "opened"})
}

// handleGetDisputeResolution serves GET /disputes/{shipment_id}.
func (a *API) handleGetDisputeResolution(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipment_id")
	resolution, found, err := a.store.Disputes.ResolutionFor(r.Context(), shipmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "pending_or_unresolved"})
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

type resolveDisputeRequest struct {
	CarrierWins  bool    `json:"carrier_wins"`
	RefundAmount float64 `json:"refund_amount"`
	Rationale    string  `json:"rationale"`
}

// handleResolveDispute serves POST /disputes/{shipment_id}/resolve: a
// human operator's manual resolution, bypassing DisputeAgent's automated
// decide() pipeline entirely. Always recorded with human_override=true.
func (a *API) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipment_id")
	var req resolveDisputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	a.audit.Append(r.Context(), audit.Record{
		AgentKind: "command_center", ResourceID: shipmentID, Action: "resolve_dispute",
		Rationale:      req.Rationale,
		HumanOverride:  true,
		OverriddenBy:   claims.UserID,
		RetentionUntil: time.Now().AddDate(1, 0, 0),
	})

	a.bus.Publish(r.Context(), eventbus.Event{
		Type: "dispute.resolved", Source: "api",
		Payload: map[string]any{"shipment_id": shipmentID, "carrier_wins": req.CarrierWins, "refund_amount": req.RefundAmount, "manual": true},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
