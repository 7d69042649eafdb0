// Package retry centralizes the backoff policy applied to every model call
// site, so failure-escalation rules stay uniform and independently
// testable. It wraps any model.Invoker; retryable errors (rate limits,
// timeouts) are retried with exponential backoff up to an attempt ceiling,
// everything else fails immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pageforge-dev/pageforge/model"
)

// Policy parameterizes the shared retry behavior.
type Policy struct {
	// MaxAttempts is the total attempt ceiling including the first call.
	MaxAttempts uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the growing delay.
	MaxInterval time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
}

// DefaultPolicy mirrors the pacing the pipeline needs against throttled
// model providers: three attempts, half-second initial delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// Invoker decorates an inner model.Invoker with the retry policy.
// Cancellation during a backoff wait aborts immediately with the context
// error rather than exhausting the attempt ceiling.
type Invoker struct {
	inner  model.Invoker
	policy Policy

	// Notify, when set, observes each retryable failure before the wait.
	Notify func(err error, wait time.Duration)
}

// NewInvoker wraps inner with the given policy.
func NewInvoker(inner model.Invoker, policy Policy) *Invoker {
	if policy.MaxAttempts == 0 {
		policy = DefaultPolicy()
	}
	return &Invoker{inner: inner, policy: policy}
}

// Invoke implements model.Invoker.
func (r *Invoker) Invoke(ctx context.Context, req model.Request) (*model.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.policy.InitialInterval
	bo.MaxInterval = r.policy.MaxInterval
	bo.Multiplier = r.policy.Multiplier
	bo.MaxElapsedTime = 0 // attempts are bounded by count, not wall clock

	var resp *model.Response
	op := func() error {
		out, err := r.inner.Invoke(ctx, req)
		if err != nil {
			if model.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = out
		return nil
	}

	notify := func(err error, wait time.Duration) {
		if r.Notify != nil {
			r.Notify(err, wait)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(bo, r.policy.MaxAttempts-1), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}
