package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
)

type stubAgent struct {
	id       string
	kind     domain.AgentKind
	registry *Registry
	calls    int
}

func (a *stubAgent) ID() string             { return a.id }
func (a *stubAgent) Kind() domain.AgentKind { return a.kind }

func (a *stubAgent) Activate(ctx context.Context, payload any) error {
	a.calls++
	a.registry.Record(ctx, a.id, "work", domain.ActivitySuccess, "did a thing", nil)
	return nil
}

func (a *stubAgent) Status() domain.AgentStatus {
	return domain.AgentStatus{ID: a.id, Kind: a.kind, State: domain.AgentStateActive}
}

func TestActivateRecordsActivityAndPublishesEvent(t *testing.T) {
	bus := eventbus.New()
	r := New(bus)
	a := &stubAgent{id: "closing-1", kind: domain.AgentClosing, registry: r}
	r.Register(a)

	received := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("agent.activity", func(ctx context.Context, evt eventbus.Event) { received <- evt })
	defer unsub()

	require.NoError(t, r.Activate(context.Background(), "closing-1", nil))
	require.Equal(t, 1, a.calls)

	logs := r.Logs("closing-1", 10)
	require.Len(t, logs, 1)
	require.Equal(t, domain.ActivitySuccess, logs[0].Status)

	select {
	case evt := <-received:
		entry := evt.Payload.(domain.ActivityEntry)
		require.Equal(t, "closing-1", entry.AgentID)
	case <-time.After(time.Second):
		t.Fatal("expected agent.activity event")
	}
}

func TestActivateUnknownAgentErrors(t *testing.T) {
	r := New(nil)
	err := r.Activate(context.Background(), "ghost", nil)
	require.Error(t, err)
}

func TestLogsRetentionIsBounded(t *testing.T) {
	r := New(nil)
	a := &stubAgent{id: "sourcing-1", kind: domain.AgentSourcing, registry: r}
	r.Register(a)

	for i := 0; i < defaultRetention+50; i++ {
		r.Record(context.Background(), "sourcing-1", "tick", domain.ActivityInfo, "tick", nil)
	}
	require.Len(t, r.Logs("sourcing-1", 0), defaultRetention)
}

func TestAllReturnsEveryRegisteredAgentStatus(t *testing.T) {
	r := New(nil)
	r.Register(&stubAgent{id: "a", kind: domain.AgentAcquisition, registry: r})
	r.Register(&stubAgent{id: "b", kind: domain.AgentRetention, registry: r})

	statuses := r.All()
	require.Len(t, statuses, 2)
}
