package visualping

import (
	"time"

	internalbackoff "github.com/ambiyansyah-risyal/visualping/internal/backoff"
)

// RetryPolicy decides whether a failed attempt of an authenticated request is
// tried again, and after how long. attempt is 1-indexed.
type RetryPolicy interface {
	ShouldRetry(err error, attempt, maxRetries int) (time.Duration, bool)
}

// DefaultRetryPolicy retries transient failures (no response, 429, 5xx) with
// deterministic doubling backoff: initialBackoff, 2x, 4x, ...
type DefaultRetryPolicy struct {
	backoff *internalbackoff.Calculator
}

// NewDefaultRetryPolicy creates the default policy. A maxBackoff of zero
// leaves the delay uncapped.
func NewDefaultRetryPolicy(initialBackoff, maxBackoff time.Duration) *DefaultRetryPolicy {
	if maxBackoff <= 0 {
		return &DefaultRetryPolicy{backoff: internalbackoff.NewDoubling(initialBackoff)}
	}
	return &DefaultRetryPolicy{
		backoff: internalbackoff.NewCalculator(internalbackoff.ExponentialStrategy{}, initialBackoff, maxBackoff, 2.0, 0),
	}
}

// ShouldRetry implements the RetryPolicy interface.
func (p *DefaultRetryPolicy) ShouldRetry(err error, attempt, maxRetries int) (time.Duration, bool) {
	if err == nil || attempt > maxRetries {
		return 0, false
	}
	if !IsTransient(err) {
		return 0, false
	}
	return p.Delay(attempt), true
}

// Delay exposes the wait after the given failed attempt.
func (p *DefaultRetryPolicy) Delay(attempt int) time.Duration {
	return p.backoff.Delay(attempt)
}
