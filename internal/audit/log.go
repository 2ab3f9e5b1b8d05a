// Package audit implements the append-only decision audit trail (C14):
// every agent decision (sentiment escalation, dispute resolution, carrier
// failover, revenue-triggered activation) is recorded with content digests
// of its input and output so the decision can be reproduced and checked
// without re-storing the full payload. Grounded on the teacher's
// internal/app/httpapi auditLog (bounded in-memory ring plus a pluggable
// sink), generalized from HTTP request/response logging to agent decision
// records and from no digest to blake2b-256 input/output digests.
package audit

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Entry is one immutable decision record: which agent or operator made it,
// what it acted on, and whether a human overrode the automated outcome.
type Entry struct {
	ID                     string         `json:"id"`
	Timestamp              time.Time      `json:"timestamp"`
	AgentKind              string         `json:"agent_kind"`
	ResourceID             string         `json:"resource_id"`
	Action                 string         `json:"action"`
	InputDigest            string         `json:"input_digest"`
	OutputDigest           string         `json:"output_digest"`
	FeatureImportanceSummary map[string]float64 `json:"feature_importance_summary,omitempty"`
	Rationale              string         `json:"rationale"`
	HumanOverride          bool           `json:"human_override"`
	OverriddenBy           string         `json:"overridden_by,omitempty"`
	RetentionUntil         time.Time      `json:"retention_until"`
}

// Sink persists an Entry beyond the in-memory ring. Best-effort: Append
// discards a write failure; it is neither logged nor surfaced to the agent
// taking the decision.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Record is the input to Append before digesting; Input/Output are
// marshaled to bytes by the caller (typically json.Marshal of the
// decision's evidence and outcome) so this package never needs to know
// their concrete shape.
type Record struct {
	AgentKind                string
	ResourceID               string
	Action                   string
	Input                    []byte
	Output                   []byte
	FeatureImportanceSummary map[string]float64
	Rationale                string
	HumanOverride            bool
	OverriddenBy             string
	RetentionUntil           time.Time
}

// Log is the append-only, bounded-retention audit trail.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	sink    Sink
	idGen   func() string
	now     func() time.Time
}

// New constructs a Log. max bounds the in-memory ring (older entries are
// still durable via sink, if one is configured); sink may be nil.
func New(max int, sink Sink, idGen func() string) *Log {
	if max <= 0 {
		max = 10000
	}
	return &Log{max: max, sink: sink, idGen: idGen, now: time.Now}
}

// Append digests rec's input/output, stores the resulting Entry, and
// best-effort persists it via the configured sink. Digesting rather than
// storing raw payloads keeps the audit trail small while still letting a
// reviewer verify a later re-run produced byte-identical input/output.
func (l *Log) Append(ctx context.Context, rec Record) Entry {
	entry := Entry{
		ID:                       l.nextID(),
		Timestamp:                l.now().UTC(),
		AgentKind:                rec.AgentKind,
		ResourceID:               rec.ResourceID,
		Action:                   rec.Action,
		InputDigest:              digest(rec.Input),
		OutputDigest:             digest(rec.Output),
		FeatureImportanceSummary: rec.FeatureImportanceSummary,
		Rationale:                rec.Rationale,
		HumanOverride:            rec.HumanOverride,
		OverriddenBy:             rec.OverriddenBy,
		RetentionUntil:           rec.RetentionUntil,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	if l.sink != nil {
		_ = l.sink.Write(ctx, entry)
	}
	return entry
}

// For returns the bounded in-memory entries for a resource, most recent
// last.
func (l *Log) For(resourceID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns up to limit most-recent entries across all resources.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Entry, limit)
	copy(out, l.entries[len(l.entries)-limit:])
	return out
}

func (l *Log) nextID() string {
	if l.idGen != nil {
		return l.idGen()
	}
	return digest([]byte(l.now().String()))
}

func digest(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
