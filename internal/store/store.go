// Package store defines the persistence interfaces shared by every
// component that needs durable state (shipments, carriers, escrows,
// sentiment, profiles, disputes, saga journal), plus a Postgres-backed
// implementation built on jmoiron/sqlx + lib/pq, matching the teacher's
// repository-per-aggregate layout (domain/gasbank, domain/*). Schema
// evolution uses golang-migrate/migrate/v4 (see migrations/).
package store

import (
	"context"

	"github.com/nexfreight/broker/internal/domain"
)

// Shipments is the shipment aggregate's persistence contract.
type Shipments interface {
	Get(ctx context.Context, id string) (domain.Shipment, error)
	Save(ctx context.Context, s domain.Shipment) error
	ByCarrierAndStatus(ctx context.Context, carrierID string, statuses []domain.ShipmentStatus) ([]domain.Shipment, error)
	// LockForSaga marks a shipment with an in-progress saga guard, refusing
	// a second concurrent saga over the same shipment.
	LockForSaga(ctx context.Context, shipmentID, sagaID string) (acquired bool, err error)
	UnlockSaga(ctx context.Context, shipmentID, sagaID string) error
}

// Carriers is the carrier aggregate's persistence contract.
type Carriers interface {
	Get(ctx context.Context, id string) (domain.Carrier, error)
	Save(ctx context.Context, c domain.Carrier) error
	Enabled(ctx context.Context) ([]domain.Carrier, error)
	AppendChange(ctx context.Context, change domain.CarrierChange) error
	ChangesFor(ctx context.Context, shipmentID string) ([]domain.CarrierChange, error)
}

// Escrows is the escrow aggregate's persistence contract.
type Escrows interface {
	Get(ctx context.Context, shipmentID string) (domain.EscrowRecord, error)
	Save(ctx context.Context, e domain.EscrowRecord) error
}

// Disputes persists DisputeResolutions.
type Disputes interface {
	SaveResolution(ctx context.Context, r domain.DisputeResolution) error
	ResolutionFor(ctx context.Context, shipmentID string) (domain.DisputeResolution, bool, error)
}

// Leads is the lead aggregate's persistence contract.
type Leads interface {
	Get(ctx context.Context, id string) (domain.Lead, error)
	Save(ctx context.Context, l domain.Lead) error
	AppendInteraction(ctx context.Context, i domain.Interaction) error
	InteractionsFor(ctx context.Context, leadID string) ([]domain.Interaction, error)
}

// Sentiments persists SentimentRecords (implements sentiment.Store).
type Sentiments interface {
	SaveSentiment(ctx context.Context, rec domain.SentimentRecord) error
	SentimentsFor(ctx context.Context, leadID string) ([]domain.SentimentRecord, error)
}

// Profiles persists PsychProfiles (implements profile.Persistence).
type Profiles interface {
	SaveProfile(ctx context.Context, profile domain.PsychProfile) error
	ConvertedProfiles(ctx context.Context) ([]domain.PsychProfile, error)
	CommunicationPrefFor(profileType domain.ProfileType) string
}

// Store aggregates every repository the runtime needs.
type Store struct {
	Shipments Shipments
	Carriers  Carriers
	Escrows   Escrows
	Disputes  Disputes
	Leads     Leads
	Sentiments Sentiments
	Profiles  Profiles
}
