package saga

import (
	"context"
	"sync"
)

// MemoryJournal is an in-process Journal, used when no Postgres DSN is
// configured. A crash loses its contents, which is acceptable only for the
// in-memory store deployment mode (§9 ambient-stack defaults).
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string][]JournalEntry
}

// NewMemoryJournal constructs an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string][]JournalEntry)}
}

func (j *MemoryJournal) AppendEntry(ctx context.Context, entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[entry.SagaID] = append(j.entries[entry.SagaID], entry)
	return nil
}

func (j *MemoryJournal) EntriesFor(ctx context.Context, sagaID string) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]JournalEntry, len(j.entries[sagaID]))
	copy(out, j.entries[sagaID])
	return out, nil
}
