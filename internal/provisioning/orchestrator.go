// Package provisioning implements the ProvisioningOrchestrator (C8):
// applies economic-level transitions, walking component dependency order
// through the cold/warming/warm/activating/hot/deactivating lifecycle,
// enforcing the safety ratio, and pre-warming the next level's resources.
// Grounded on the teacher's two-phase state-machine shape in
// infrastructure/resilience (closed/open/half_open), generalized from a
// 3-state breaker to a 6-state component lifecycle.
package provisioning

import (
	"context"
	"sync"

	"github.com/nexfreight/broker/internal/brokererr"
	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/resourcemonitor"
)

// ComponentActivator performs the actual side effect of bringing one named
// component to a target lifecycle state (start workers, size a pool, ...).
// Implementations must be idempotent: calling Apply twice for the same
// target state is a no-op the second time.
type ComponentActivator interface {
	Apply(ctx context.Context, component string, target domain.ComponentLifecycleState) error
}

// LevelCatalog resolves level configuration and dependency order.
type LevelCatalog interface {
	Level(levelID string) (domain.EconomicLevel, bool)
	NextLevel(levelID string) (domain.EconomicLevel, bool)
	ComponentsInDependencyOrder(level domain.EconomicLevel) []string
}

// Orchestrator is the ProvisioningOrchestrator.
type Orchestrator struct {
	mu         sync.Mutex
	catalog    LevelCatalog
	activator  ComponentActivator
	sampler    resourcemonitor.Sampler
	bus        *eventbus.Bus
	safetyMax  float64
	componentState map[string]domain.ComponentLifecycleState
}

// New constructs an Orchestrator. safetyMax is the configured
// level.safety_ratio_max (default 0.90).
func New(catalog LevelCatalog, activator ComponentActivator, sampler resourcemonitor.Sampler, bus *eventbus.Bus, safetyMax float64) *Orchestrator {
	if safetyMax <= 0 {
		safetyMax = 0.90
	}
	return &Orchestrator{
		catalog:        catalog,
		activator:      activator,
		sampler:        sampler,
		bus:            bus,
		safetyMax:      safetyMax,
		componentState: make(map[string]domain.ComponentLifecycleState),
	}
}

// SafetyPasses implements the revenue.SafetyChecker interface: max_burn(level)
// <= safetyMax * mrr.
func (o *Orchestrator) SafetyPasses(level domain.EconomicLevel, mrr float64) bool {
	return level.MaxBurn <= o.safetyMax*mrr
}

// ActivateLevelOptions configures one activate_level call.
type ActivateLevelOptions struct {
	DryRun          bool
	MRR             float64
	OverrideToken   string // non-empty bypasses the safety check
}

// ActivateLevel transitions the system to level levelID. Walks components
// in dependency order cold->warming->warm->activating->hot;
// each step is idempotent and resumable, so a crash mid-walk can simply be
// retried. On success it pre-warms the next level's components to warm.
func (o *Orchestrator) ActivateLevel(ctx context.Context, levelID string, opts ActivateLevelOptions) error {
	level, ok := o.catalog.Level(levelID)
	if !ok {
		return brokererr.ErrNotFound
	}

	if opts.OverrideToken == "" && !o.SafetyPasses(level, opts.MRR) {
		return brokererr.ErrSafetyViolation
	}

	if opts.DryRun {
		return nil
	}

	components := o.catalog.ComponentsInDependencyOrder(level)
	for _, component := range components {
		if err := o.walk(ctx, component, []domain.ComponentLifecycleState{
			domain.ComponentWarming, domain.ComponentWarm, domain.ComponentActivating, domain.ComponentHot,
		}); err != nil {
			return err
		}
	}

	if o.bus != nil {
		o.bus.Publish(ctx, eventbus.Event{Type: "level.activated", Source: "provisioning_orchestrator", Payload: levelID})
	}

	o.preWarmNext(ctx, levelID)
	return nil
}

// DeactivateLevel reverses activation on revenue drop: hot -> deactivating
// -> warm -> cold, in reverse dependency order.
func (o *Orchestrator) DeactivateLevel(ctx context.Context, levelID string) error {
	level, ok := o.catalog.Level(levelID)
	if !ok {
		return brokererr.ErrNotFound
	}

	components := o.catalog.ComponentsInDependencyOrder(level)
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]
		if err := o.walk(ctx, component, []domain.ComponentLifecycleState{
			domain.ComponentDeactivating, domain.ComponentWarm, domain.ComponentCold,
		}); err != nil {
			return err
		}
	}
	return nil
}

// preWarmNext moves the next level's components from cold to warm
// (provisioned, zero-replica) to cut activation latency later.
func (o *Orchestrator) preWarmNext(ctx context.Context, currentLevelID string) {
	next, ok := o.catalog.NextLevel(currentLevelID)
	if !ok {
		return
	}
	for _, component := range o.catalog.ComponentsInDependencyOrder(next) {
		if o.ComponentState(component) != domain.ComponentCold {
			continue
		}
		_ = o.walk(ctx, component, []domain.ComponentLifecycleState{domain.ComponentWarm})
	}
}

// walk applies each target state in order, skipping any state the component
// is already at or past (idempotence).
func (o *Orchestrator) walk(ctx context.Context, component string, targets []domain.ComponentLifecycleState) error {
	o.mu.Lock()
	current := o.componentState[component]
	o.mu.Unlock()
	start := 0
	for i, target := range targets {
		if target == current {
			start = i + 1
		}
	}
	for _, target := range targets[start:] {
		if err := o.activator.Apply(ctx, component, target); err != nil {
			return err
		}
		o.mu.Lock()
		o.componentState[component] = target
		o.mu.Unlock()
	}
	return nil
}

// ComponentState returns the last-applied lifecycle state for component.
func (o *Orchestrator) ComponentState(component string) domain.ComponentLifecycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.componentState[component]
	if !ok {
		return domain.ComponentCold
	}
	return state
}

// CostRatio samples host pressure and fires cost.alert_critical/_warning
// against the configured safety-mode thresholds.
func (o *Orchestrator) CostRatio(ctx context.Context) (float64, error) {
	if o.sampler == nil {
		return 0, nil
	}
	snapshot, err := o.sampler.Sample(ctx)
	if err != nil {
		return 0, err
	}
	ratio := snapshot.MemoryPercent / 100
	if o.bus != nil {
		switch {
		case ratio > 0.90:
			o.bus.Publish(ctx, eventbus.Event{Type: "cost.alert_critical", Source: "provisioning_orchestrator", Payload: ratio})
		case ratio > 0.80:
			o.bus.Publish(ctx, eventbus.Event{Type: "cost.alert_warning", Source: "provisioning_orchestrator", Payload: ratio})
		}
	}
	return ratio, nil
}
