// Package revenue implements the RevenueMonitor (C7): rolling MRR
// calculation and level-trigger evaluation with debounce confidence.
// Grounded on the teacher's gasbank balance-accounting queries
// (domain/gasbank/model.go), generalized from GAS balance deltas to trailing
// payment sums.
package revenue

import (
	"context"
	"time"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
)

// PaymentSource supplies completed payments for MRR calculation.
type PaymentSource interface {
	CompletedPaymentsSince(ctx context.Context, since time.Time) ([]domain.Payment, error)
}

// LevelLadder supplies the immutable configured levels above a given level,
// in ascending order.
type LevelLadder interface {
	LevelsAbove(currentLevelID string) []domain.EconomicLevel
}

// TriggerResult is one level's evaluated confidence for check_triggers().
type TriggerResult struct {
	Level      domain.EconomicLevel
	Confidence float64
	ShouldFire bool
}

// Monitor is the RevenueMonitor.
type Monitor struct {
	payments PaymentSource
	ladder   LevelLadder
	bus      *eventbus.Bus
	safety   SafetyChecker
	now      func() time.Time
}

// SafetyChecker is satisfied by ProvisioningOrchestrator's safety check:
// max_burn(level) <= 0.90 * mrr.
type SafetyChecker interface {
	SafetyPasses(level domain.EconomicLevel, mrr float64) bool
}

// New constructs a Monitor.
func New(payments PaymentSource, ladder LevelLadder, safety SafetyChecker, bus *eventbus.Bus) *Monitor {
	return &Monitor{payments: payments, ladder: ladder, bus: bus, safety: safety, now: time.Now}
}

// CalculateMRR sums completed payments in the trailing 30 days.
func (m *Monitor) CalculateMRR(ctx context.Context) (float64, error) {
	since := m.now().AddDate(0, 0, -30)
	payments, err := m.payments.CompletedPaymentsSince(ctx, since)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range payments {
		total += p.AmountCents
	}
	mrr := float64(total) / 100
	if m.bus != nil {
		m.bus.Publish(ctx, eventbus.Event{Type: "revenue.metrics", Source: "revenue_monitor", Payload: mrr})
	}
	return mrr, nil
}

// CheckTriggers evaluates every level above state.CurrentLevel. confidence =
// (consecutive_months_meeting_threshold / debounce_months) capped at 1; a
// level fires when confidence reaches 1 and the safety check passes.
func (m *Monitor) CheckTriggers(ctx context.Context, state domain.LevelState, mrr float64) []TriggerResult {
	levels := m.ladder.LevelsAbove(state.CurrentLevel)
	results := make([]TriggerResult, 0, len(levels))

	for _, level := range levels {
		confidence := float64(state.ConsecutiveMonthsOverNextThreshold) / float64(level.DebounceMonths)
		if confidence > 1 {
			confidence = 1
		}
		shouldFire := confidence >= 1 && m.safety.SafetyPasses(level, mrr)
		result := TriggerResult{Level: level, Confidence: confidence, ShouldFire: shouldFire}
		results = append(results, result)

		if m.bus != nil {
			m.bus.Publish(ctx, eventbus.Event{Type: "revenue.trigger", Source: "revenue_monitor", Payload: result})
		}
	}
	return results
}
