package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	used, limit int64
	err         error
	calls       int
}

func (s *stubProvider) FetchUsage(ctx context.Context, dependency string) (int64, int64, error) {
	s.calls++
	return s.used, s.limit, s.err
}

func TestGetQuotaCachesAcrossCalls(t *testing.T) {
	p := &stubProvider{used: 10, limit: 100}
	l := New(p, 90)

	c1 := l.GetQuota(context.Background(), "remote_prosody")
	c2 := l.GetQuota(context.Background(), "remote_prosody")

	require.Equal(t, 1, p.calls, "second call should hit the TTL cache")
	require.Equal(t, c1, c2)
	require.InDelta(t, 10.0, c1.Percent(), 0.001)
}

func TestProviderFailureReturnsConservativeValue(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	l := New(p, 90)

	c := l.GetQuota(context.Background(), "remote_prosody")
	require.GreaterOrEqual(t, c.Percent(), 90.0)
}

func TestNoProviderConfiguredIsConservative(t *testing.T) {
	l := New(nil, 90)
	require.True(t, l.FallbackRequired(context.Background(), "remote_prosody"))
}

func TestFallbackRequiredThreshold(t *testing.T) {
	p := &stubProvider{used: 95, limit: 100}
	l := New(p, 90)
	require.True(t, l.FallbackRequired(context.Background(), "remote_prosody"))

	p2 := &stubProvider{used: 10, limit: 100}
	l2 := New(p2, 90)
	require.False(t, l2.FallbackRequired(context.Background(), "remote_prosody"))
}

func TestRecordUsageUpdatesCachedCounterImmediately(t *testing.T) {
	p := &stubProvider{used: 10, limit: 100}
	l := New(p, 90)
	_ = l.GetQuota(context.Background(), "remote_prosody")

	l.RecordUsage("remote_prosody", 5)
	c := l.GetQuota(context.Background(), "remote_prosody")
	require.Equal(t, int64(15), c.Used)
}
