package eventbus

import (
	"context"
	"sync"
	"time"
)

// SwarmOrchestrator subscribes to cross-agent patterns on top of a Bus and
// raises derived events when a pattern is met: three
// carrier.failover_succeeded events for the same carrier within 24h raise
// carrier.fraud_suspect for the DisputeAgent to investigate.
type SwarmOrchestrator struct {
	bus    *Bus
	mu     sync.Mutex
	window time.Duration
	limit  int
	hits   map[string][]time.Time // carrierID -> succeeded-event timestamps
	now    func() time.Time
}

// NewSwarmOrchestrator wires the orchestrator to bus and starts watching.
func NewSwarmOrchestrator(bus *Bus) *SwarmOrchestrator {
	s := &SwarmOrchestrator{
		bus:    bus,
		window: 24 * time.Hour,
		limit:  3,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
	bus.Subscribe("carrier.failover_succeeded", s.onFailoverSucceeded)
	return s
}

// FailoverSucceededEvent is the payload published on
// carrier.failover_succeeded. Kept here rather than in internal/failover so
// publishers and this watcher share one definition without an import cycle.
type FailoverSucceededEvent struct {
	ShipmentID    string
	FromCarrierID string
	ToCarrierID   string
}

func (s *SwarmOrchestrator) onFailoverSucceeded(ctx context.Context, evt Event) {
	payload, ok := evt.Payload.(FailoverSucceededEvent)
	if !ok {
		return
	}
	s.record(ctx, payload.FromCarrierID)
}

func (s *SwarmOrchestrator) record(ctx context.Context, carrierID string) {
	if carrierID == "" {
		return
	}
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	times := s.hits[carrierID]
	fresh := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	fresh = append(fresh, now)
	s.hits[carrierID] = fresh
	count := len(fresh)
	s.mu.Unlock()

	if count >= s.limit {
		s.bus.Publish(ctx, Event{
			Type:   "carrier.fraud_suspect",
			Source: "swarm_orchestrator",
			Payload: FraudSuspectEvent{
				CarrierID:      carrierID,
				IncidentsIn24h: count,
			},
		})
	}
}

// FraudSuspectEvent is the payload published on carrier.fraud_suspect.
type FraudSuspectEvent struct {
	CarrierID      string
	IncidentsIn24h int
}
