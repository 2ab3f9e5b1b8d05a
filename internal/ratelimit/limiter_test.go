package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBucketThenRejects(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 2, MaxKeys: 100, CleanupInterval: time.Minute})
	defer l.Stop()

	require.True(t, l.Allow("POST /shipments", "client-a"))
	require.True(t, l.Allow("POST /shipments", "client-a"))
	require.False(t, l.Allow("POST /shipments", "client-a"))
}

func TestAllowIsPerEndpointAndClient(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1, MaxKeys: 100, CleanupInterval: time.Minute})
	defer l.Stop()

	require.True(t, l.Allow("POST /shipments", "client-a"))
	require.False(t, l.Allow("POST /shipments", "client-a"))
	require.True(t, l.Allow("GET /shipments", "client-a"), "different endpoint must have its own bucket")
	require.True(t, l.Allow("POST /shipments", "client-b"), "different client must have its own bucket")
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1, MaxKeys: 100, CleanupInterval: time.Minute})
	defer l.Stop()

	l.Allow("POST /shipments", "client-a")
	require.Equal(t, 1, l.KeyCount())

	l.entries["POST /shipments|client-a"].lastAccess = time.Now().Add(-time.Hour)
	l.cleanup()
	require.Equal(t, 0, l.KeyCount())
}
