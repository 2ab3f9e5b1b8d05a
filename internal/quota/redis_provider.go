package quota

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v8"
)

// RedisUsageProvider reads used/limit counters that a usage-tracking sidecar
// maintains in Redis via INCR, the same key shape as the teacher pack's
// login rate limiter (internal/auth.RateLimiter): "quota:{dep}:used" and
// "quota:{dep}:limit". This lets several broker instances share one
// authoritative view of a dependency's consumption instead of each Ledger
// only ever seeing its own process's local cache.
type RedisUsageProvider struct {
	client *redis.Client
}

// NewRedisUsageProvider constructs a Provider backed by client.
func NewRedisUsageProvider(client *redis.Client) *RedisUsageProvider {
	return &RedisUsageProvider{client: client}
}

// FetchUsage implements Provider. A missing limit key is not an error: it
// means the dependency has no configured cap, so the ledger should treat it
// as unbounded rather than falling back.
func (p *RedisUsageProvider) FetchUsage(ctx context.Context, dependency string) (used, limit int64, err error) {
	usedVal, err := p.client.Get(ctx, usageKey(dependency)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			usedVal = "0"
		} else {
			return 0, 0, fmt.Errorf("fetch quota usage for %s: %w", dependency, err)
		}
	}
	used, err = strconv.ParseInt(usedVal, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse quota usage for %s: %w", dependency, err)
	}

	limitVal, err := p.client.Get(ctx, limitKey(dependency)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return used, math.MaxInt64, nil
		}
		return 0, 0, fmt.Errorf("fetch quota limit for %s: %w", dependency, err)
	}
	limit, err = strconv.ParseInt(limitVal, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse quota limit for %s: %w", dependency, err)
	}
	return used, limit, nil
}

func usageKey(dependency string) string { return "quota:" + dependency + ":used" }
func limitKey(dependency string) string { return "quota:" + dependency + ":limit" }
