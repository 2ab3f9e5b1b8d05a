package revenue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/domain"
)

type stubPayments struct {
	payments []domain.Payment
}

func (s stubPayments) CompletedPaymentsSince(ctx context.Context, since time.Time) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range s.payments {
		if p.CompletedAt.After(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubLadder struct {
	levels []domain.EconomicLevel
}

func (s stubLadder) LevelsAbove(currentLevelID string) []domain.EconomicLevel {
	return s.levels
}

type stubSafety struct {
	pass bool
}

func (s stubSafety) SafetyPasses(level domain.EconomicLevel, mrr float64) bool {
	return s.pass
}

func TestCalculateMRRSumsTrailing30Days(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	payments := stubPayments{payments: []domain.Payment{
		{AmountCents: 10000, CompletedAt: now.AddDate(0, 0, -5)},
		{AmountCents: 5000, CompletedAt: now.AddDate(0, 0, -29)},
		{AmountCents: 99999, CompletedAt: now.AddDate(0, 0, -40)}, // outside window
	}}
	m := New(payments, stubLadder{}, stubSafety{}, nil)
	m.now = func() time.Time { return now }

	mrr, err := m.CalculateMRR(context.Background())
	require.NoError(t, err)
	require.Equal(t, 150.0, mrr)
}

func TestCheckTriggersFiresWhenConfidenceFullAndSafetyPasses(t *testing.T) {
	ladder := stubLadder{levels: []domain.EconomicLevel{
		{LevelID: "L1", DebounceMonths: 2},
	}}
	m := New(stubPayments{}, ladder, stubSafety{pass: true}, nil)

	results := m.CheckTriggers(context.Background(), domain.LevelState{CurrentLevel: "L0", ConsecutiveMonthsOverNextThreshold: 2}, 5000)
	require.Len(t, results, 1)
	require.Equal(t, 1.0, results[0].Confidence)
	require.True(t, results[0].ShouldFire)
}

func TestCheckTriggersDoesNotFireWhenSafetyFails(t *testing.T) {
	ladder := stubLadder{levels: []domain.EconomicLevel{
		{LevelID: "L1", DebounceMonths: 1},
	}}
	m := New(stubPayments{}, ladder, stubSafety{pass: false}, nil)

	results := m.CheckTriggers(context.Background(), domain.LevelState{CurrentLevel: "L0", ConsecutiveMonthsOverNextThreshold: 1}, 5000)
	require.False(t, results[0].ShouldFire)
}

func TestCheckTriggersConfidenceCapsAtOne(t *testing.T) {
	ladder := stubLadder{levels: []domain.EconomicLevel{
		{LevelID: "L2", DebounceMonths: 2},
	}}
	m := New(stubPayments{}, ladder, stubSafety{pass: true}, nil)

	results := m.CheckTriggers(context.Background(), domain.LevelState{CurrentLevel: "L1", ConsecutiveMonthsOverNextThreshold: 10}, 5000)
	require.Equal(t, 1.0, results[0].Confidence)
}

func TestCheckTriggersPartialConfidenceDoesNotFire(t *testing.T) {
	ladder := stubLadder{levels: []domain.EconomicLevel{
		{LevelID: "L1", DebounceMonths: 3},
	}}
	m := New(stubPayments{}, ladder, stubSafety{pass: true}, nil)

	results := m.CheckTriggers(context.Background(), domain.LevelState{CurrentLevel: "L0", ConsecutiveMonthsOverNextThreshold: 1}, 5000)
	require.InDelta(t, 1.0/3.0, results[0].Confidence, 0.0001)
	require.False(t, results[0].ShouldFire)
}
