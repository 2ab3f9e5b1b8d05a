// Package eventbus implements the in-process publish/subscribe channel
// (C12) that routes events across agents, and the SwarmOrchestrator that
// watches cross-agent patterns on top of it. Grounded on the teacher's
// internal/framework EngineBus fan-out shape, simplified from its
// EventEngine/DataEngine/ComputeEngine surfaces to a single topic-routed
// publish/subscribe primitive since the spec calls for dot-separated topics
// and per-topic FIFO, not a multi-surface engine registry.
package eventbus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is the structured payload every subscriber receives.
type Event struct {
	Type          string // dot-separated topic, e.g. "sentiment.analyzed"
	Source        string
	Payload       any
	Timestamp     time.Time
	CorrelationID string
}

// Handler processes one event. Handlers must be idempotent: delivery is
// at-least-once within the process.
type Handler func(ctx context.Context, evt Event)

// subscription is a pattern ("sentiment.*", "carrier.failover_succeeded",
// or "*" for everything) paired with its handler and a private FIFO queue.
type subscription struct {
	id      string
	pattern string
	handler Handler
	queue   chan Event
}

// Bus is the process-wide pub/sub router. Per-topic delivery order is
// preserved by routing every event matching a given concrete topic through
// a single-goroutine-per-subscriber worker reading from that subscriber's
// own queue; cross-topic ordering is explicitly not guaranteed.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscription
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]*subscription)}
}

// Subscribe registers handler for every topic matching pattern ("x.y",
// "x.*", or "*"). Returns an unsubscribe function.
func (b *Bus) Subscribe(pattern string, handler Handler) (unsubscribe func()) {
	sub := &subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: handler,
		queue:   make(chan Event, 1024),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range sub.queue {
			sub.handler(context.Background(), evt)
		}
	}()

	return func() {
		b.mu.Lock()
		delete(b.subs, sub.id)
		b.mu.Unlock()
		close(sub.queue)
		<-done
	}
}

// Publish fans out evt to every matching subscriber. Evt.Timestamp and
// CorrelationID are filled in if zero/empty. Publish never blocks on a slow
// subscriber for long: each subscriber has its own buffered queue, so one
// slow handler cannot stall delivery to others. A full queue drops the
// oldest-pending event for that subscriber rather than blocking the
// publisher — subscribers needing guaranteed history use the
// CommandCenterHub's replay instead.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.CorrelationID == "" {
		evt.CorrelationID = uuid.NewString()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !matches(sub.pattern, evt.Type) {
			continue
		}
		select {
		case sub.queue <- evt:
		default:
			// Drop-oldest to keep per-subscriber FIFO bounded.
			select {
			case <-sub.queue:
			default:
			}
			select {
			case sub.queue <- evt:
			default:
			}
		}
	}
}

// matches reports whether topic satisfies pattern. "*" matches everything;
// "prefix.*" matches "prefix.anything"; otherwise exact match is required.
func matches(pattern, topic string) bool {
	if pattern == "*" || pattern == topic {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(topic, prefix)
	}
	return false
}
