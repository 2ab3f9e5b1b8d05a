package domain

import (
	"fmt"
	"time"

	"github.com/nexfreight/broker/internal/brokererr"
)

// ShipmentStatus follows a fixed DAG: pending -> confirmed -> in_transit ->
// delivered, with cancelled/disputed reachable from the in-flight states.
type ShipmentStatus string

const (
	ShipmentPending    ShipmentStatus = "pending"
	ShipmentConfirmed  ShipmentStatus = "confirmed"
	ShipmentInTransit  ShipmentStatus = "in_transit"
	ShipmentDelivered  ShipmentStatus = "delivered"
	ShipmentCancelled  ShipmentStatus = "cancelled"
	ShipmentDisputed   ShipmentStatus = "disputed"
)

// shipmentTransitions encodes the allowed status DAG. A transition not
// present here is an InvariantViolation.
var shipmentTransitions = map[ShipmentStatus]map[ShipmentStatus]bool{
	ShipmentPending:   {ShipmentConfirmed: true, ShipmentCancelled: true},
	ShipmentConfirmed: {ShipmentInTransit: true, ShipmentCancelled: true, ShipmentDisputed: true},
	ShipmentInTransit: {ShipmentDelivered: true, ShipmentDisputed: true, ShipmentCancelled: true},
	ShipmentDelivered: {ShipmentDisputed: true},
	ShipmentDisputed:  {ShipmentDelivered: true, ShipmentCancelled: true},
	ShipmentCancelled: {},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to ShipmentStatus) bool {
	if from == to {
		return true
	}
	next, ok := shipmentTransitions[from]
	return ok && next[to]
}

// GeoPoint is a coarse current-position sample.
type GeoPoint struct {
	Lat, Lng  float64
	Timestamp time.Time
}

// Shipment is the unit of work carried by a Carrier for a Lead's order.
// Invariant: SalePrice >= Cost; Margin = SalePrice - Cost.
type Shipment struct {
	ID                string
	TrackingCode      string
	CarrierID         string
	Origin            string
	Destination       string
	WeightKg          float64
	DeclaredValue     float64
	Status            ShipmentStatus
	PlannedDeliveryAt time.Time
	ActualDeliveryAt  *time.Time
	Position          *GeoPoint
	Cost              float64
	SalePrice         float64
	SagaInProgress    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Margin returns SalePrice - Cost.
func (s Shipment) Margin() float64 { return s.SalePrice - s.Cost }

// Validate enforces the pricing invariant: sale price may never undercut cost.
func (s Shipment) Validate() error {
	if s.SalePrice < s.Cost {
		return fmt.Errorf("%w: sale_price %.2f < cost %.2f", brokererr.ErrInvariantViolation, s.SalePrice, s.Cost)
	}
	return nil
}
