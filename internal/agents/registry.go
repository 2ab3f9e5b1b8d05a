// Package agents implements the AgentRegistry & Activity Feed (C6): the
// named agent set with a uniform activate/status/logs contract and an
// append-only, bounded-retention activity log per agent. Grounded on the
// teacher's service-registry pattern (internal/services), generalized from
// a single service kind to the fixed set of eight named broker agents.
package agents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
)

const defaultRetention = 1000

// Agent is the uniform contract every registered agent implements.
type Agent interface {
	ID() string
	Kind() domain.AgentKind
	Activate(ctx context.Context, payload any) error
	Status() domain.AgentStatus
}

// feed is one agent's bounded, append-only activity ring.
type feed struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	cap     int
}

func newFeed(capacity int) *feed {
	if capacity <= 0 {
		capacity = defaultRetention
	}
	return &feed{cap: capacity}
}

func (f *feed) append(entry domain.ActivityEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	if len(f.entries) > f.cap {
		f.entries = f.entries[len(f.entries)-f.cap:]
	}
}

func (f *feed) recent(limit int) []domain.ActivityEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]domain.ActivityEntry, limit)
	copy(out, f.entries[len(f.entries)-limit:])
	return out
}

// Registry holds every registered agent plus its activity feed and
// publishes agent.activity on every recorded entry.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	feeds  map[string]*feed
	bus    *eventbus.Bus
}

// New constructs an empty Registry.
func New(bus *eventbus.Bus) *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		feeds:  make(map[string]*feed),
		bus:    bus,
	}
}

// Register adds agent to the registry, creating its activity feed.
func (r *Registry) Register(agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID()] = agent
	r.feeds[agent.ID()] = newFeed(defaultRetention)
}

// Get returns the agent by id, or false if unknown.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// All returns every registered agent's current status snapshot.
func (r *Registry) All() []domain.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AgentStatus, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Status())
	}
	return out
}

// Activate begins processing a unit of work on the named agent.
func (r *Registry) Activate(ctx context.Context, agentID string, payload any) error {
	agent, ok := r.Get(agentID)
	if !ok {
		return errUnknownAgent(agentID)
	}
	return agent.Activate(ctx, payload)
}

// Logs returns up to limit recent activity entries for agentID, newest last.
func (r *Registry) Logs(agentID string, limit int) []domain.ActivityEntry {
	r.mu.RLock()
	f, ok := r.feeds[agentID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return f.recent(limit)
}

// Record appends an activity entry for agentID and publishes agent.activity.
// Agent implementations call this from within Activate.
func (r *Registry) Record(ctx context.Context, agentID, entryType string, status domain.AgentActivityStatus, description string, metadata map[string]any) {
	entry := domain.ActivityEntry{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Timestamp:   time.Now(),
		Type:        entryType,
		Status:      status,
		Description: description,
		Metadata:    metadata,
	}

	r.mu.RLock()
	f, ok := r.feeds[agentID]
	r.mu.RUnlock()
	if ok {
		f.append(entry)
	}

	if r.bus != nil {
		r.bus.Publish(ctx, eventbus.Event{Type: "agent.activity", Source: agentID, Payload: entry})
	}
}

type errUnknownAgent string

func (e errUnknownAgent) Error() string { return "agents: unknown agent " + string(e) }
