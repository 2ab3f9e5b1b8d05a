package domain

import "time"

// EscrowStatus mirrors the ledger-held funds lifecycle for a Shipment.
type EscrowStatus string

const (
	EscrowLocked     EscrowStatus = "locked"
	EscrowReleased   EscrowStatus = "released"
	EscrowRefunded   EscrowStatus = "refunded"
	EscrowTransferred EscrowStatus = "transferred"
	EscrowDisputed   EscrowStatus = "disputed"
	EscrowResolved   EscrowStatus = "resolved"
)

// EscrowRecord is one-per-Shipment. OriginalCarrierID is immutable after
// creation; CurrentCarrierID is updatable only via the saga coordinator.
type EscrowRecord struct {
	ID                string
	ShipmentID        string
	Status            EscrowStatus
	Amount            float64
	Deadline          time.Time
	FailoverCount     int
	OriginalCarrierID string
	CurrentCarrierID  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DisputeResolution records the outcome of DisputeAgent's analysis.
type DisputeResolution struct {
	ID             string
	ShipmentID     string
	CarrierWins    bool
	RefundAmount   float64
	EvidenceDigest string
	AIAnalysis     string
	Confidence     float64
	ResolverID     string
	CreatedAt      time.Time
}
