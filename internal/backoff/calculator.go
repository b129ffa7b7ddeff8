package backoff

import (
	"time"
)

// Calculator binds a Strategy to a fixed set of parameters so callers only
// pass the attempt number.
type Calculator struct {
	strategy       Strategy
	initialBackoff time.Duration
	maxBackoff     time.Duration
	multiplier     float64
	jitter         float64
}

// NewCalculator creates a calculator for the given strategy and parameters.
func NewCalculator(strategy Strategy, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) *Calculator {
	if strategy == nil {
		strategy = ExponentialStrategy{}
	}
	return &Calculator{
		strategy:       strategy,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		multiplier:     multiplier,
		jitter:         jitter,
	}
}

// NewDoubling returns a deterministic calculator that starts at base and
// doubles on every attempt, without jitter or cap.
func NewDoubling(base time.Duration) *Calculator {
	return NewCalculator(ExponentialStrategy{}, base, 0, 2.0, 0)
}

// Delay returns the wait before retrying after the given 1-indexed failed attempt.
// Attempt 1 yields the initial backoff.
func (c *Calculator) Delay(attempt int) time.Duration {
	return c.strategy.Calculate(attempt-1, c.initialBackoff, c.maxBackoff, c.multiplier, c.jitter)
}
