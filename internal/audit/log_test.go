package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSink struct {
	entries []Entry
}

func (s *stubSink) Write(ctx context.Context, entry Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func TestAppendDigestsInputAndOutputDeterministically(t *testing.T) {
	log := New(100, nil, func() string { return "entry-1" })
	entry := log.Append(context.Background(), Record{
		AgentKind: "dispute_resolution", ResourceID: "ship-1", Action: "auto_resolve",
		Input: []byte(`{"confidence":85}`), Output: []byte(`{"carrier_wins":true}`),
		Rationale: "confidence above auto-resolve threshold",
	})

	require.NotEmpty(t, entry.InputDigest)
	require.NotEmpty(t, entry.OutputDigest)
	require.NotEqual(t, entry.InputDigest, entry.OutputDigest)

	again := log.Append(context.Background(), Record{
		AgentKind: "dispute_resolution", ResourceID: "ship-1", Action: "auto_resolve",
		Input: []byte(`{"confidence":85}`),
	})
	require.Equal(t, entry.InputDigest, again.InputDigest, "identical input must digest identically")
}

func TestAppendWritesThroughToSink(t *testing.T) {
	sink := &stubSink{}
	log := New(100, sink, nil)
	log.Append(context.Background(), Record{AgentKind: "failover", ResourceID: "ship-2", Action: "reassign_carrier"})

	require.Len(t, sink.entries, 1)
	require.Equal(t, "ship-2", sink.entries[0].ResourceID)
}

func TestForFiltersByResource(t *testing.T) {
	log := New(100, nil, nil)
	log.Append(context.Background(), Record{ResourceID: "ship-1", Action: "a"})
	log.Append(context.Background(), Record{ResourceID: "ship-2", Action: "b"})
	log.Append(context.Background(), Record{ResourceID: "ship-1", Action: "c"})

	entries := log.For("ship-1")
	require.Len(t, entries, 2)
}

func TestRecentIsBoundedByMax(t *testing.T) {
	log := New(2, nil, nil)
	log.Append(context.Background(), Record{ResourceID: "a"})
	log.Append(context.Background(), Record{ResourceID: "b"})
	log.Append(context.Background(), Record{ResourceID: "c"})

	entries := log.Recent(10)
	require.Len(t, entries, 2)
	require.Equal(t, "b", entries[0].ResourceID)
	require.Equal(t, "c", entries[1].ResourceID)
}

func TestRetentionUntilIsPreserved(t *testing.T) {
	log := New(10, nil, nil)
	until := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := log.Append(context.Background(), Record{ResourceID: "a", RetentionUntil: until})
	require.Equal(t, until, entry.RetentionUntil)
}
