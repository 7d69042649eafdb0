package core

import "context"

// RateBudget is a process-wide request budget checked before every model
// call. Acquire blocks while the budget is exhausted, up to the
// implementation's bounded wait; past that it returns a retryable error so
// the caller's retry policy decides escalation. It never rejects eagerly.
//
// Implementations must be safe for concurrent use and are injected into the
// coordinator rather than held as ambient state, so tests can substitute a
// deterministic fake.
type RateBudget interface {
	Acquire(ctx context.Context) error
}

// UnlimitedBudget never blocks. Useful for tests and offline runs.
type UnlimitedBudget struct{}

// Acquire implements RateBudget.
func (UnlimitedBudget) Acquire(context.Context) error { return nil }
