package agents

import (
	"context"
	"sync"
	"time"

	"github.com/nexfreight/broker/internal/domain"
)

// FunnelAgent adapts a named pipeline stage (acquisition, qualification,
// sourcing, closing, operations, retention) to the uniform Agent contract.
// FailoverAgent and DisputeAgent run their own specialized loops
// (internal/failover, internal/dispute) and are registered via
// NewDelegateAgent instead, since they already own real activate/status
// semantics; FunnelAgent exists for the remaining named funnel stages,
// which this corpus has no dedicated worker package for.
type FunnelAgent struct {
	id   string
	kind domain.AgentKind
	name string

	mu      sync.Mutex
	state   domain.AgentState
	task    *string
	lastRun time.Time

	work func(ctx context.Context, payload any) error
}

// NewFunnelAgent constructs a FunnelAgent. work may be nil, in which case
// Activate only updates the agent's state and last-run time; it writes no
// activity entry and has no other side effects.
func NewFunnelAgent(id string, kind domain.AgentKind, name string, work func(ctx context.Context, payload any) error) *FunnelAgent {
	return &FunnelAgent{id: id, kind: kind, name: name, state: domain.AgentStateStandby, work: work}
}

func (a *FunnelAgent) ID() string            { return a.id }
func (a *FunnelAgent) Kind() domain.AgentKind { return a.kind }

func (a *FunnelAgent) Activate(ctx context.Context, payload any) error {
	a.mu.Lock()
	a.state = domain.AgentStateProcessing
	a.lastRun = time.Now()
	a.mu.Unlock()

	var err error
	if a.work != nil {
		err = a.work(ctx, payload)
	}

	a.mu.Lock()
	if err != nil {
		a.state = domain.AgentStateError
	} else {
		a.state = domain.AgentStateActive
	}
	a.mu.Unlock()
	return err
}

func (a *FunnelAgent) Status() domain.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.AgentStatus{
		ID: a.id, Name: a.name, Kind: a.kind, State: a.state,
		CurrentTask: a.task, LastActivityAt: a.lastRun,
	}
}

// DelegateAgent adapts an already-running specialized worker (FailoverAgent,
// DisputeAgent) to the uniform Agent contract for registry listing/logs,
// without duplicating its control loop.
type DelegateAgent struct {
	id      string
	kind    domain.AgentKind
	name    string
	invoke  func(ctx context.Context, payload any) error
	mu      sync.Mutex
	state   domain.AgentState
	lastRun time.Time
}

// NewDelegateAgent constructs a DelegateAgent whose Activate calls invoke
// (e.g. DisputeAgent.Handle, or a no-op for FailoverAgent which runs on its
// own cron schedule rather than an on-demand activation).
func NewDelegateAgent(id string, kind domain.AgentKind, name string, invoke func(ctx context.Context, payload any) error) *DelegateAgent {
	return &DelegateAgent{id: id, kind: kind, name: name, invoke: invoke, state: domain.AgentStateActive}
}

func (a *DelegateAgent) ID() string            { return a.id }
func (a *DelegateAgent) Kind() domain.AgentKind { return a.kind }

func (a *DelegateAgent) Activate(ctx context.Context, payload any) error {
	a.mu.Lock()
	a.state = domain.AgentStateProcessing
	a.lastRun = time.Now()
	a.mu.Unlock()

	var err error
	if a.invoke != nil {
		err = a.invoke(ctx, payload)
	}

	a.mu.Lock()
	if err != nil {
		a.state = domain.AgentStateError
	} else {
		a.state = domain.AgentStateActive
	}
	a.mu.Unlock()
	return err
}

func (a *DelegateAgent) Status() domain.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.AgentStatus{ID: a.id, Name: a.name, Kind: a.kind, State: a.state, LastActivityAt: a.lastRun}
}
