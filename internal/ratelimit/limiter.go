// Package ratelimit implements the per-(endpoint, client-key) token bucket
// limiter (C14) guarding the public API facade. Grounded on the teacher's
// infrastructure/middleware RateLimiter (per-key lazy-allocated
// golang.org/x/time/rate limiters plus a periodic Cleanup sweep),
// generalized from a single per-client key to a composite
// endpoint+client-key so a noisy client on one route cannot exhaust its
// quota on another.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config carries the tunables; RequestsPerSecond/Burst are per composite
// key, MaxKeys bounds total memory use, CleanupInterval drives the
// background sweep that drops idle keys.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	MaxKeys           int
	CleanupInterval   time.Duration
}

// DefaultConfig matches the documented defaults for the public API.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 10, Burst: 20, MaxKeys: 10000, CleanupInterval: 5 * time.Minute}
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter is a per-(endpoint, client-key) token bucket gate.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]*entry
	stop    chan struct{}
}

// New constructs a Limiter and starts its background cleanup goroutine.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	l := &Limiter{cfg: cfg, entries: make(map[string]*entry), stop: make(chan struct{})}
	go l.cleanupLoop()
	return l
}

// Allow reports whether one request for (endpoint, clientKey) may proceed,
// consuming a token from that pair's bucket if so.
func (l *Limiter) Allow(endpoint, clientKey string) bool {
	return l.get(endpoint, clientKey).Allow()
}

func (l *Limiter) get(endpoint, clientKey string) *rate.Limiter {
	key := endpoint + "|" + clientKey

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= l.cfg.MaxKeys {
			l.entries = make(map[string]*entry)
		}
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.entries[key] = e
	}
	e.lastAccess = time.Now()
	return e.limiter
}

// Stop halts the background cleanup goroutine.
func (l *Limiter) Stop() { close(l.stop) }

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.cfg.CleanupInterval)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastAccess.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// KeyCount reports the number of live (endpoint, client-key) buckets.
func (l *Limiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
