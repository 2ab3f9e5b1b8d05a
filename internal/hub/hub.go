// Package hub implements the CommandCenterHub (C13): the gorilla/websocket
// fan-out channel that pushes shipment/carrier/agent/revenue/system events
// to connected dashboard clients. Grounded on internal/eventbus's
// per-subscriber buffered-queue-plus-goroutine shape, generalized from an
// in-process Go channel to a websocket wire connection with replay-on-
// connect and heartbeat-driven liveness.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/eventbus"
)

// MessageKind enumerates the realtime message types the command center
// streams to subscribers.
type MessageKind string

const (
	KindShipmentUpdate MessageKind = "shipment_update"
	KindCarrierPosition MessageKind = "carrier_position"
	KindAgentActivity   MessageKind = "agent_activity"
	KindRevenueUpdate   MessageKind = "revenue_update"
	KindSystemAlert     MessageKind = "system_alert"
	kindLagWarning      MessageKind = "stream.lag_warning"
)

// Message is the wire envelope sent to every subscriber.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	Seq       uint64      `json:"seq"`
}

// Config carries the replay buffer size and heartbeat tunables.
type Config struct {
	BufferSize     int
	ReplayCount    int
	HeartbeatEvery time.Duration
	HeartbeatGrace time.Duration
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{BufferSize: 256, ReplayCount: 50, HeartbeatEvery: 15 * time.Second, HeartbeatGrace: 30 * time.Second}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriber owns one websocket connection and its private outbound queue.
type subscriber struct {
	id    string
	conn  *websocket.Conn
	queue chan Message
	done  chan struct{}
}

// Hub is the CommandCenterHub. It maintains a bounded ring of the last
// ReplayCount messages for new-connection replay and fans out every
// Broadcast call to all live subscribers with drop-oldest backpressure.
type Hub struct {
	cfg Config
	log logrus.FieldLogger

	mu      sync.RWMutex
	subs    map[string]*subscriber
	history []Message
	seq     uint64
}

// New constructs a Hub. When bus is non-nil, the hub subscribes to
// "agent.activity" and re-broadcasts it as KindAgentActivity so every
// connected operator sees agent feed activity live.
func New(cfg Config, bus *eventbus.Bus, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Hub{cfg: cfg, log: log, subs: make(map[string]*subscriber)}
	if bus != nil {
		bus.Subscribe("agent.activity", func(ctx context.Context, evt eventbus.Event) {
			h.Broadcast(KindAgentActivity, evt.Payload)
		})
	}
	return h
}

// ServeWS upgrades the request to a websocket connection, replays the last
// ReplayCount messages, and streams every subsequent Broadcast until the
// client disconnects or the heartbeat grace period elapses.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := &subscriber{id: uuid.NewString(), conn: conn, queue: make(chan Message, h.cfg.BufferSize), done: make(chan struct{})}
	h.mu.Lock()
	h.subs[sub.id] = sub
	replay := append([]Message(nil), h.history...)
	h.mu.Unlock()

	for _, msg := range replay {
		sub.queue <- msg
	}

	go h.writePump(sub)
	h.readPump(sub)
	return nil
}

// writePump drains sub.queue onto the wire and sends periodic pings.
func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(h.cfg.HeartbeatEvery)
	defer ticker.Stop()
	defer h.remove(sub)

	for {
		select {
		case msg, ok := <-sub.queue:
			if !ok {
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.HeartbeatGrace))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.done:
			return
		}
	}
}

// readPump discards inbound frames (this hub is broadcast-only from the
// server's side) but keeps the read deadline alive so a dead client's
// connection is reclaimed within HeartbeatGrace of its last pong.
func (h *Hub) readPump(sub *subscriber) {
	defer close(sub.done)
	sub.conn.SetReadDeadline(time.Now().Add(h.cfg.HeartbeatGrace))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(h.cfg.HeartbeatGrace))
		return nil
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	sub.conn.Close()
}

// Broadcast pushes one message of the given kind to every connected
// subscriber and appends it to the replay history. A subscriber whose
// queue is full has its two oldest pending messages dropped, making room
// for the new message followed by a kindLagWarning so the client can
// surface the gap.
func (h *Hub) Broadcast(kind MessageKind, payload any) {
	h.mu.Lock()
	h.seq++
	msg := Message{Kind: kind, Payload: payload, Timestamp: time.Now().UTC(), Seq: h.seq}
	h.history = append(h.history, msg)
	if len(h.history) > h.cfg.ReplayCount {
		h.history = h.history[len(h.history)-h.cfg.ReplayCount:]
	}
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.queue <- msg:
		default:
			for i := 0; i < 2; i++ {
				select {
				case <-sub.queue:
				default:
				}
			}
			select {
			case sub.queue <- msg:
			default:
			}
			lagMsg := Message{Kind: kindLagWarning, Payload: json.RawMessage(`{"reason":"backpressure_drop_oldest"}`), Timestamp: time.Now().UTC()}
			select {
			case sub.queue <- lagMsg:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of live connections.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
