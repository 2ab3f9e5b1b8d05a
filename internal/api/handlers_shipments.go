package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nexfreight/broker/internal/domain"
)

type shipmentResponse struct {
	ID                string               `json:"id"`
	TrackingCode      string               `json:"tracking_code"`
	CarrierID         string               `json:"carrier_id"`
	Origin            string               `json:"origin"`
	Destination       string               `json:"destination"`
	Status            domain.ShipmentStatus `json:"status"`
	PlannedDeliveryAt time.Time            `json:"planned_delivery_at"`
	Position          *domain.GeoPoint     `json:"position,omitempty"`
	Margin            float64              `json:"margin"`
}

func toShipmentResponse(s domain.Shipment) shipmentResponse {
	return shipmentResponse{
		ID: s.ID, TrackingCode: s.TrackingCode, CarrierID: s.CarrierID,
		Origin: s.Origin, Destination: s.Destination, Status: s.Status,
		PlannedDeliveryAt: s.PlannedDeliveryAt, Position: s.Position, Margin: s.Margin(),
	}
}

// handleGetShipment serves GET /shipments/{id}.
func (a *API) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	shipment, err := a.store.Shipments.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(shipment))
}

// handleTrackShipment serves GET /tracking/{code}, the unauthenticated
// customer-facing lookup. The path value goes to Shipments.Get, which
// matches the shipment's internal id; there is no lookup by tracking code.
func (a *API) handleTrackShipment(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	shipment, err := a.store.Shipments.Get(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(shipment))
}

type createShipmentRequest struct {
	CarrierID         string    `json:"carrier_id"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	WeightKg          float64   `json:"weight_kg"`
	DeclaredValue     float64   `json:"declared_value"`
	Cost              float64   `json:"cost"`
	SalePrice         float64   `json:"sale_price"`
	PlannedDeliveryAt time.Time `json:"planned_delivery_at"`
}

// handleCreateShipment serves POST /shipments, enforcing the sale_price >=
// cost invariant before persisting.
func (a *API) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	shipment := domain.Shipment{
		ID: uuid.NewString(), TrackingCode: uuid.NewString()[:8],
		CarrierID: req.CarrierID, Origin: req.Origin, Destination: req.Destination,
		WeightKg: req.WeightKg, DeclaredValue: req.DeclaredValue,
		Status: domain.ShipmentPending, PlannedDeliveryAt: req.PlannedDeliveryAt,
		Cost: req.Cost, SalePrice: req.SalePrice, CreatedAt: now, UpdatedAt: now,
	}
	if err := shipment.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := a.store.Shipments.Save(r.Context(), shipment); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentResponse(shipment))
}
