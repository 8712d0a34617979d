package reconcile

import "time"

// RetryPolicy bounds how often a transiently failing upstream call is
// reattempted before the operation is recorded as failed.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; it doubles on each
	// subsequent retry up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the per-retry delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy is the retry budget applied to target mutations.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    30 * time.Second,
}

// backoff is the explicit retry state machine: attempt count and next
// delay, advanced one step per failed attempt. Expressing it as state
// rather than recursion lets tests drive N failures deterministically.
type backoff struct {
	policy  RetryPolicy
	attempt int
	delay   time.Duration
}

// newBackoff starts the state machine at attempt zero.
func (p RetryPolicy) newBackoff() *backoff {
	return &backoff{policy: p, delay: p.BaseDelay}
}

// Next consumes one failed attempt. It returns the delay to wait before
// the next attempt, and false once the retry budget is exhausted.
func (b *backoff) Next() (time.Duration, bool) {
	b.attempt++
	if b.attempt >= b.policy.MaxAttempts {
		return 0, false
	}
	d := b.delay
	b.delay *= 2
	if b.policy.MaxDelay > 0 && b.delay > b.policy.MaxDelay {
		b.delay = b.policy.MaxDelay
	}
	return d, true
}
