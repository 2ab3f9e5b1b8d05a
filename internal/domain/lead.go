// Package domain holds the entity types shared across the broker's
// components — the persistence-backed half of the data model.
// These are plain structs; ownership and mutation rules are enforced by the
// components and store that touch them, not by the types themselves.
package domain

import "time"

// LeadStatus is the lifecycle of a prospective customer.
type LeadStatus string

const (
	LeadNew        LeadStatus = "new"
	LeadContacted  LeadStatus = "contacted"
	LeadQualified  LeadStatus = "qualified"
	LeadSuspended  LeadStatus = "suspended"
	LeadRejected   LeadStatus = "rejected"
	LeadConverted  LeadStatus = "converted"
)

// Lead is mutated only by its owning agent (internal/agents), and destroyed
// only via explicit erasure requests, cascading to Sentiment/Profile/Interaction.
type Lead struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Status    LeadStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interaction is an append-only log entry tied to a Lead and an agent.
// SentimentID is nullable-on-delete: history survives sentiment erasure.
type Interaction struct {
	ID          string
	LeadID      string
	AgentName   string
	Kind        string
	Summary     string
	SentimentID *string
	CreatedAt   time.Time
}
