// Package quota implements the QuotaLedger (C2): a 5-minute TTL cache over a
// remote provider's minute-consumption counters, with a conservative
// fallback on cache miss + remote failure. Grounded on the teacher's
// infrastructure/cache TTL-entry pattern, specialized to a single
// used/limit pair per dependency instead of arbitrary values.
package quota

import (
	"context"
	"sync"
	"time"
)

// Counter tracks how much of a dependency's usage allowance has been spent
// in the current window.
type Counter struct {
	Dependency string
	Used       int64
	Limit      int64
	UpdatedAt  time.Time
}

// Percent returns used/limit, or the conservative 99.9 sentinel if limit is
// non-positive (treat as exhausted rather than divide by zero).
func (c Counter) Percent() float64 {
	if c.Limit <= 0 {
		return conservativePercent
	}
	return float64(c.Used) / float64(c.Limit) * 100
}

// conservativePercent forces the fallback path (fallback_required := percent
// >= 90%) whenever the remote provider cannot be consulted.
const conservativePercent = 99.9

const defaultTTL = 5 * time.Minute

// Provider fetches authoritative usage from the remote API. Implementations
// wrap whatever SDK the dependency exposes (prosody vendor console, LLM
// provider account API, ...).
type Provider interface {
	FetchUsage(ctx context.Context, dependency string) (used, limit int64, err error)
}

type cacheEntry struct {
	counter    Counter
	expiresAt  time.Time
}

// Ledger is the QuotaLedger. Thread-safe.
type Ledger struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	provider Provider
	ttl      time.Duration
	fallbackThresholdPct float64
}

// New constructs a Ledger. fallbackThresholdPct is the configured
// remote_prosody.fallback_threshold_pct (default 90).
func New(provider Provider, fallbackThresholdPct float64) *Ledger {
	if fallbackThresholdPct <= 0 {
		fallbackThresholdPct = 90
	}
	return &Ledger{
		entries:              make(map[string]cacheEntry),
		provider:             provider,
		ttl:                  defaultTTL,
		fallbackThresholdPct: fallbackThresholdPct,
	}
}

// GetQuota returns (used, limit, percent) for dependency, consulting the
// cache first and falling back to the provider on miss. On provider
// failure (or no provider configured) it returns the conservative sentinel
// rather than erroring, so callers can make a fallback decision immediately.
func (l *Ledger) GetQuota(ctx context.Context, dependency string) Counter {
	l.mu.Lock()
	entry, ok := l.entries[dependency]
	l.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.counter
	}

	if l.provider == nil {
		return l.storeConservative(dependency)
	}

	used, limit, err := l.provider.FetchUsage(ctx, dependency)
	if err != nil {
		return l.storeConservative(dependency)
	}

	counter := Counter{Dependency: dependency, Used: used, Limit: limit, UpdatedAt: time.Now()}
	l.mu.Lock()
	l.entries[dependency] = cacheEntry{counter: counter, expiresAt: time.Now().Add(l.ttl)}
	l.mu.Unlock()
	return counter
}

func (l *Ledger) storeConservative(dependency string) Counter {
	counter := Counter{Dependency: dependency, Used: 999, Limit: 1000, UpdatedAt: time.Now()}
	l.mu.Lock()
	// Cache the conservative value too, but with a short expiry so a
	// transient provider blip doesn't force the fallback path for a full
	// TTL window once the provider recovers.
	l.entries[dependency] = cacheEntry{counter: counter, expiresAt: time.Now().Add(15 * time.Second)}
	l.mu.Unlock()
	return counter
}

// RecordUsage increments the locally-known usage immediately (ahead of the
// next provider refresh) so bursty local callers see up-to-date pressure.
func (l *Ledger) RecordUsage(dependency string, units int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[dependency]
	if !ok {
		return
	}
	entry.counter.Used += units
	entry.counter.UpdatedAt = time.Now()
	l.entries[dependency] = entry
}

// FallbackRequired implements fallback_required(dep) := percent >= 90%.
func (l *Ledger) FallbackRequired(ctx context.Context, dependency string) bool {
	return l.GetQuota(ctx, dependency).Percent() >= l.fallbackThresholdPct
}
