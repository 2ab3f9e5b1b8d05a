package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry maps dependency names to their breakers. A single process-wide
// registry backs every cascade tier and external call site so that admin
// reset and metrics export have one place to look.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults Config
	stateGauge *prometheus.GaugeVec
}

// NewRegistry builds a registry. defaults is used for any dependency name
// first seen without an explicit per-dep Config (see Get).
func NewRegistry(defaults Config, reg prometheus.Registerer) *Registry {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "0=closed 1=open 2=half_open",
	}, []string{"dependency"})
	if reg != nil {
		reg.MustRegister(gauge)
	}
	return &Registry{
		breakers:   make(map[string]*Breaker),
		defaults:   defaults,
		stateGauge: gauge,
	}
}

// Get returns the breaker for dep, creating it with defaults on first use.
func (r *Registry) Get(dep string) *Breaker {
	return r.GetWithConfig(dep, r.defaults)
}

// GetWithConfig returns the breaker for dep, creating it with cfg if it does
// not exist yet. Existing breakers are returned unchanged.
func (r *Registry) GetWithConfig(dep string, cfg Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[dep]; ok {
		return b
	}
	onChange := cfg.OnStateChange
	cfg.OnStateChange = func(dep string, from, to State) {
		if r.stateGauge != nil {
			r.stateGauge.WithLabelValues(dep).Set(float64(to))
		}
		if onChange != nil {
			onChange(dep, from, to)
		}
	}
	b := NewBreaker(dep, cfg)
	r.breakers[dep] = b
	return b
}

// Snapshot lists every known breaker's current state, for admin/API surfaces.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}

// Reset resets a single named breaker. Returns false if unknown.
func (r *Registry) Reset(dep string) bool {
	r.mu.Lock()
	b, ok := r.breakers[dep]
	r.mu.Unlock()
	if !ok {
		return false
	}
	b.Reset()
	return true
}
