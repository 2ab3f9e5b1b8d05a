package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/brokererr"
)

type memJournal struct {
	entries []JournalEntry
}

func (m *memJournal) AppendEntry(ctx context.Context, entry JournalEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memJournal) EntriesFor(ctx context.Context, sagaID string) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range m.entries {
		if e.SagaID == sagaID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRunAllStepsSucceed(t *testing.T) {
	j := &memJournal{}
	c := New(j, nil)
	var order []string

	steps := []Step{
		{Name: "a", Forward: func(ctx context.Context) error { order = append(order, "a-fwd"); return nil }},
		{Name: "b", Forward: func(ctx context.Context) error { order = append(order, "b-fwd"); return nil }},
	}

	err := c.Run(context.Background(), "saga-1", steps)
	require.NoError(t, err)
	require.Equal(t, []string{"a-fwd", "b-fwd"}, order)
}

func TestRunCompensatesPreviousStepsOnFailure(t *testing.T) {
	j := &memJournal{}
	c := New(j, nil)
	var order []string

	steps := []Step{
		{
			Name:       "a",
			Forward:    func(ctx context.Context) error { order = append(order, "a-fwd"); return nil },
			Compensate: func(ctx context.Context) error { order = append(order, "a-comp"); return nil },
		},
		{
			Name:    "b",
			Forward: func(ctx context.Context) error { return errors.New("ledger unreachable") },
		},
	}

	err := c.Run(context.Background(), "saga-2", steps)
	require.ErrorIs(t, err, brokererr.ErrSagaFailed)
	require.Equal(t, []string{"a-fwd", "a-comp"}, order)
}

func TestResumeSkipsAlreadyCompletedSteps(t *testing.T) {
	j := &memJournal{}
	c := New(j, nil)
	aCalls := 0

	steps := func() []Step {
		return []Step{
			{Name: "a", Forward: func(ctx context.Context) error { aCalls++; return nil }},
			{Name: "b", Forward: func(ctx context.Context) error { return nil }},
		}
	}

	require.NoError(t, c.Run(context.Background(), "saga-3", steps()))
	require.Equal(t, 1, aCalls)

	require.NoError(t, c.Resume(context.Background(), "saga-3", steps()))
	require.Equal(t, 1, aCalls, "resume must not re-run a step already recorded forward_ok")
}

func TestRunRecordsRolledBackOnFailure(t *testing.T) {
	j := &memJournal{}
	c := New(j, nil)

	steps := []Step{
		{Name: "a", Forward: func(ctx context.Context) error { return errors.New("boom") }},
	}
	_ = c.Run(context.Background(), "saga-4", steps)

	entries, err := j.EntriesFor(context.Background(), "saga-4")
	require.NoError(t, err)

	var sawRolledBack bool
	for _, e := range entries {
		if e.Outcome == "rolled_back" {
			sawRolledBack = true
		}
	}
	require.True(t, sawRolledBack)
}
