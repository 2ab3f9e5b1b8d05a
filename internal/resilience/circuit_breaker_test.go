package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/brokererr"
)

func TestClosedToOpenRequiresConsecutiveFailures(t *testing.T) {
	b := NewBreaker("dep", Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenProbes: 2})
	fail := func(context.Context) error { return errors.New("boom") }

	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	require.Equal(t, StateClosed, b.State())

	_ = b.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("dep", Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenProbes: 2})
	fail := func(context.Context) error { return errors.New("boom") }
	ok := func(context.Context) error { return nil }

	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), ok)
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	require.Equal(t, StateClosed, b.State(), "success should have reset the streak")
}

func TestOpenFailsFastUnderTenMillis(t *testing.T) {
	b := NewBreaker("dep", Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenProbes: 2})
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })
	require.Equal(t, StateOpen, b.State())

	start := time.Now()
	err := b.Execute(context.Background(), func(context.Context) error {
		t.Fatal("fn must not run while open")
		return nil
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, brokererr.ErrCircuitOpen)
	require.Less(t, elapsed, 10*time.Millisecond)
}

func TestHalfOpenAllowsBoundedParallelProbesThenCloses(t *testing.T) {
	b := NewBreaker("dep", Config{FailureThreshold: 1, RecoveryTimeout: time.Millisecond, HalfOpenProbes: 2})
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })
	time.Sleep(5 * time.Millisecond)

	var wg sync.WaitGroup
	results := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = b.Execute(context.Background(), func(context.Context) error { return nil })
		}(i)
	}
	wg.Wait()

	rejected := 0
	for _, err := range results {
		if errors.Is(err, brokererr.ErrCircuitOpen) {
			rejected++
		}
	}
	require.Equal(t, 1, rejected, "third concurrent probe beyond HalfOpenProbes should be rejected")
	require.Equal(t, StateClosed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("dep", Config{FailureThreshold: 1, RecoveryTimeout: time.Millisecond, HalfOpenProbes: 2})
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })
	time.Sleep(5 * time.Millisecond)

	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("still broken") })
	require.Equal(t, StateOpen, b.State())
}

func TestManualReset(t *testing.T) {
	b := NewBreaker("dep", Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenProbes: 2})
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	require.Equal(t, StateClosed, b.State())
}

func TestRegistryGetIsStableAcrossCalls(t *testing.T) {
	r := NewRegistry(DefaultConfig(), nil)
	a := r.Get("remote_prosody")
	b := r.Get("remote_prosody")
	require.Same(t, a, b)
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenProbes: 1}, nil)
	b := r.Get("dep")
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })
	require.Equal(t, StateOpen, b.State())

	require.True(t, r.Reset("dep"))
	require.Equal(t, StateClosed, b.State())
	require.False(t, r.Reset("unknown"))
}
