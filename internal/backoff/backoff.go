// Package backoff provides retry delay strategies for the executor.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

const (
	maxAttempts = 63 // Prevent overflow in delay calculation
)

// Strategy computes the delay before a retry. attempt is 0-indexed
// (0 = first retry, 1 = second retry, and so on).
type Strategy interface {
	NextDelay(attempt int) time.Duration
}

// exponential doubles the delay with each attempt, capped at maxDelay.
// For example, with initialDelay=1s: 1s, 2s, 4s, 8s, ...
type exponential struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initialDelay, maxDelay time.Duration) Strategy {
	return &exponential{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

func (eb *exponential) NextDelay(attempt int) time.Duration {
	return calcExponentialDelay(attempt, eb.initialDelay, eb.maxDelay)
}

// jittered adds randomization to exponential backoff to prevent the
// thundering-herd pattern where many failed tasks retry at the same
// instant. Delay formula: exponentialDelay * (1 ± jitterFactor).
//
// Example with jitterFactor=0.1: a base delay of 1s becomes a random
// value between 900ms and 1100ms.
type jittered struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	jitterFactor float64 // 0.0 to 1.0 (e.g., 0.1 = ±10% jitter)
	rng          *rand.Rand
	mu           sync.Mutex // Protect RNG access for thread-safety
}

// NewJittered creates a jittered exponential backoff strategy.
// jitterFactor should be between 0.0 and 1.0 (typical values: 0.1 to 0.3).
func NewJittered(initialDelay, maxDelay time.Duration, jitterFactor float64) Strategy {
	return &jittered{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- crypto rand not needed for backoff jitter
	}
}

func (jb *jittered) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}

	baseDelay := calcExponentialDelay(attempt, jb.initialDelay, jb.maxDelay)

	jb.mu.Lock()
	jitterMultiplier := 1.0 + (jb.rng.Float64()*2-1)*jb.jitterFactor
	jb.mu.Unlock()

	actualDelay := time.Duration(float64(baseDelay) * jitterMultiplier)
	return min(actualDelay, jb.maxDelay)
}

// calcExponentialDelay computes initialDelay * 2^attempt, capped at maxDelay.
func calcExponentialDelay(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}

	if attempt > maxAttempts {
		return maxDelay
	}

	delay := initialDelay << uint(attempt)
	if delay <= 0 || delay > maxDelay {
		return maxDelay
	}
	return delay
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
