package domain

import "time"

// Carrier is a logistics provider the broker can assign shipments to.
type Carrier struct {
	ID               string
	Name             string
	Mode             string // road, air, sea, rail
	OnTimeRatePct    float64
	ReliabilityScore float64
	WalletID         string
	Enabled          bool
	BlacklistedUntil *time.Time
	Regions          []string // coverage predicate input (see internal/rules)
}

// IsAvailable reports whether the carrier is usable right now.
func (c Carrier) IsAvailable(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.BlacklistedUntil != nil && now.Before(*c.BlacklistedUntil) {
		return false
	}
	return true
}

// CarrierChange is an append-only audit entry. The sequence of successful
// entries for a Shipment reconstructs its carrier history (testable
// property 4).
type CarrierChange struct {
	ID                string
	ShipmentID        string
	FromCarrierID     string
	ToCarrierID       string
	ReasonCode        string
	ExecutedBy        string
	LedgerTxID        string
	Success           bool
	CompensatingTxID  *string
	CreatedAt         time.Time
}

// ReplayCarrier folds a shipment's CarrierChange history (in chronological
// order) into the current carrier id, honoring only successful entries.
func ReplayCarrier(initial string, changes []CarrierChange) string {
	current := initial
	for _, c := range changes {
		if c.Success {
			current = c.ToCarrierID
		}
	}
	return current
}
