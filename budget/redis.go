package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageforge-dev/pageforge/model"
)

// Redis enforces the same per-minute/per-hour budget across processes using
// shared INCR counters with window expiry, the scheme the original
// generation gateway used. When the budget is exhausted it polls until a
// window rolls over or MaxWait elapses.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	limits    Limits

	// pollInterval controls how often a queued caller re-checks; swappable
	// for tests.
	pollInterval time.Duration
}

// NewRedis constructs a Redis-backed budget. keyPrefix namespaces the
// counters (e.g. "pageforge:budget").
func NewRedis(client redis.UniversalClient, keyPrefix string, limits Limits) *Redis {
	if keyPrefix == "" {
		keyPrefix = "pageforge:budget"
	}
	return &Redis{
		client:       client,
		keyPrefix:    keyPrefix,
		limits:       limits,
		pollInterval: 250 * time.Millisecond,
	}
}

// Acquire implements core.RateBudget. Redis unavailability degrades open:
// the call is allowed rather than failed, matching the original service's
// fallback when its limiter store was down.
func (b *Redis) Acquire(ctx context.Context) error {
	deadline := time.Now().Add(b.limits.MaxWait)
	for {
		ok, err := b.tryAcquire(ctx)
		if err != nil {
			return nil // degrade open on store errors
		}
		if ok {
			return nil
		}
		if !time.Now().Add(b.pollInterval).Before(deadline) {
			return &model.RateLimitedError{}
		}
		timer := time.NewTimer(b.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire increments both window counters, setting the expiry when a
// window opens. When a limit is exceeded the increment is rolled back so
// queued callers do not consume budget while waiting.
func (b *Redis) tryAcquire(ctx context.Context) (bool, error) {
	if b.limits.PerMinute > 0 {
		ok, err := b.incrWindow(ctx, b.key("minute"), time.Minute, b.limits.PerMinute)
		if err != nil || !ok {
			return ok, err
		}
	}
	if b.limits.PerHour > 0 {
		ok, err := b.incrWindow(ctx, b.key("hour"), time.Hour, b.limits.PerHour)
		if err != nil || !ok {
			if !ok && err == nil {
				// refund the minute slot taken above
				_ = b.client.Decr(ctx, b.key("minute")).Err()
			}
			return ok, err
		}
	}
	return true, nil
}

func (b *Redis) incrWindow(ctx context.Context, key string, window time.Duration, limit int) (bool, error) {
	count, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		_ = b.client.Expire(ctx, key, window).Err()
	}
	if count > int64(limit) {
		_ = b.client.Decr(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (b *Redis) key(window string) string {
	return fmt.Sprintf("%s:%s", b.keyPrefix, window)
}
