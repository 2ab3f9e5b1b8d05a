// Package saga implements the SagaCoordinator (C11): two-phase atomic
// commits across the persistent store and the external ledger, with a
// crash-resumable journal. Grounded on the teacher's transaction-monitor
// retry/backoff shape (infrastructure/blockchain tx monitor), generalized
// from single-transaction retries to a multi-step forward/compensate chain.
package saga

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/brokererr"
)

// Step is one forward/compensate pair. Name must be stable and unique within
// a saga so the journal can key idempotent resumption on it.
type Step struct {
	Name       string
	Forward    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// JournalEntry is one persisted record of a step's outcome.
type JournalEntry struct {
	SagaID    string
	StepName  string
	Outcome   string // "forward_ok", "forward_failed", "compensated", "rolled_back"
	Sequence  int
}

// Journal persists saga progress so Resume can skip completed forward
// actions after a crash. Implementations must make AppendEntry idempotent
// for (SagaID, StepName, Outcome) to tolerate retries.
type Journal interface {
	AppendEntry(ctx context.Context, entry JournalEntry) error
	EntriesFor(ctx context.Context, sagaID string) ([]JournalEntry, error)
}

// Coordinator is the SagaCoordinator.
type Coordinator struct {
	journal Journal
	log     logrus.FieldLogger
}

// New constructs a Coordinator.
func New(journal Journal, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{journal: journal, log: log}
}

// Run executes steps sequentially. On any forward failure, previously
// successful steps are compensated in reverse order. Saga succeeds iff every
// step's forward action succeeds; otherwise the journal records
// rolled_back and Run returns brokererr.ErrSagaFailed wrapping the cause.
func (c *Coordinator) Run(ctx context.Context, sagaID string, steps []Step) error {
	completed, err := c.alreadyCompleted(ctx, sagaID)
	if err != nil {
		return fmt.Errorf("saga: loading journal: %w", err)
	}

	var succeeded []Step
	var forwardErr error

	for i, step := range steps {
		if completed[step.Name] {
			succeeded = append(succeeded, step)
			continue
		}
		if err := step.Forward(ctx); err != nil {
			forwardErr = fmt.Errorf("saga: step %q failed: %w", step.Name, err)
			c.record(ctx, sagaID, step.Name, "forward_failed", i)
			break
		}
		c.record(ctx, sagaID, step.Name, "forward_ok", i)
		succeeded = append(succeeded, step)
	}

	if forwardErr == nil {
		return nil
	}

	for i := len(succeeded) - 1; i >= 0; i-- {
		step := succeeded[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			c.log.WithError(err).WithField("saga_id", sagaID).WithField("step", step.Name).
				Error("compensation failed, manual intervention required")
			continue
		}
		c.record(ctx, sagaID, step.Name, "compensated", -1)
	}

	c.record(ctx, sagaID, "", "rolled_back", -1)
	return fmt.Errorf("%w: %v", brokererr.ErrSagaFailed, forwardErr)
}

// Resume re-invokes Run for a saga that may have crashed mid-flight; steps
// already recorded forward_ok in the journal are skipped.
func (c *Coordinator) Resume(ctx context.Context, sagaID string, steps []Step) error {
	return c.Run(ctx, sagaID, steps)
}

func (c *Coordinator) alreadyCompleted(ctx context.Context, sagaID string) (map[string]bool, error) {
	done := make(map[string]bool)
	if c.journal == nil {
		return done, nil
	}
	entries, err := c.journal.EntriesFor(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Outcome == "forward_ok" {
			done[e.StepName] = true
		}
	}
	return done, nil
}

func (c *Coordinator) record(ctx context.Context, sagaID, stepName, outcome string, sequence int) {
	if c.journal == nil {
		return
	}
	entry := JournalEntry{SagaID: sagaID, StepName: stepName, Outcome: outcome, Sequence: sequence}
	if err := c.journal.AppendEntry(ctx, entry); err != nil {
		c.log.WithError(err).WithField("saga_id", sagaID).Error("failed to append saga journal entry")
	}
}
