package backoff

import (
	"math/rand"
	"time"
)

// Strategy defines the interface for backoff calculation algorithms.
type Strategy interface {
	// Calculate returns the delay to wait after the given zero-based failed attempt.
	// A maxBackoff of zero or less means the delay is not capped.
	Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialStrategy grows the delay by multiplier on every attempt:
// initialBackoff * multiplier^attempt. With jitter 0 it is fully deterministic.
type ExponentialStrategy struct{}

// Calculate implements the Strategy interface.
func (s ExponentialStrategy) Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// Prevent overflow by limiting attempt
	if attempt > 30 {
		attempt = 30
	}

	scaled := float64(initialBackoff) * pow(multiplier, attempt)
	backoff := maxDuration
	if scaled < float64(maxDuration) {
		backoff = time.Duration(scaled)
	}
	if maxBackoff > 0 && backoff > maxBackoff {
		backoff = maxBackoff
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		jitterAmount := time.Duration(float64(backoff) * jitter * rand.Float64())
		switch {
		case backoff > maxDuration-jitterAmount:
			backoff = maxDuration
		case maxBackoff > 0 && backoff+jitterAmount > maxBackoff:
			backoff = maxBackoff
		default:
			backoff += jitterAmount
		}
	}
	return backoff
}

const maxDuration = time.Duration(1<<63 - 1)

// clampJitter ensures jitter is within valid bounds [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
