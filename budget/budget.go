// Package budget implements the process-wide model-call budget enforced
// before every dispatch. Calls that would exceed the per-minute or per-hour
// limit are queued up to a bounded wait, then fail with a retryable rate
// limit error so the shared retry policy decides escalation.
//
// InMemory serves a single process; Redis coordinates the same limits
// across workers, mirroring the keys the upstream gateway uses.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/pageforge-dev/pageforge/model"
)

// Limits bounds the request rate and how long a caller may be queued.
type Limits struct {
	PerMinute int
	PerHour   int
	MaxWait   time.Duration
}

// DefaultLimits allows a generous local budget with short queueing.
func DefaultLimits() Limits {
	return Limits{PerMinute: 20, PerHour: 300, MaxWait: 10 * time.Second}
}

// InMemory is a sliding-window budget for a single process. Safe for
// concurrent use. The zero limit on either window disables that window.
type InMemory struct {
	limits Limits

	mu     sync.Mutex
	minute []time.Time
	hour   []time.Time

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewInMemory constructs an InMemory budget.
func NewInMemory(limits Limits) *InMemory {
	return &InMemory{limits: limits, now: time.Now}
}

// Acquire implements core.RateBudget. It blocks until a slot frees in both
// windows or MaxWait elapses, whichever comes first.
func (b *InMemory) Acquire(ctx context.Context) error {
	deadline := b.now().Add(b.limits.MaxWait)
	for {
		wait, ok := b.tryAcquire()
		if ok {
			return nil
		}
		if !b.now().Add(wait).Before(deadline) {
			return &model.RateLimitedError{RetryAfter: wait}
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire records a slot when both windows have room, else returns how
// long until the nearest slot frees.
func (b *InMemory) tryAcquire() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.minute = prune(b.minute, now.Add(-time.Minute))
	b.hour = prune(b.hour, now.Add(-time.Hour))

	var wait time.Duration
	if b.limits.PerMinute > 0 && len(b.minute) >= b.limits.PerMinute {
		wait = maxDur(wait, b.minute[0].Add(time.Minute).Sub(now))
	}
	if b.limits.PerHour > 0 && len(b.hour) >= b.limits.PerHour {
		wait = maxDur(wait, b.hour[0].Add(time.Hour).Sub(now))
	}
	if wait > 0 {
		return wait, false
	}

	b.minute = append(b.minute, now)
	b.hour = append(b.hour, now)
	return 0, true
}

// prune drops timestamps at or before the cutoff; input is ordered.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func maxDur(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
