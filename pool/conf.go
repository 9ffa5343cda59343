package pool

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/arjunguha/batchkit/internal/backoff"
)

// defaultMaxDelay caps retry backoff growth.
const defaultMaxDelay = 5 * time.Second

// Option is a functional option for configuring a RunBounded call.
type Option func(*config)

type config struct {
	maxAttempts  int
	initialDelay time.Duration
	jitterFactor float64
	rateLimiter  *rate.Limiter
	backoff      backoff.Strategy
}

// WithRetryPolicy enables retries for failed tasks.
// maxAttempts specifies the maximum number of attempts for each task.
// initialDelay specifies the delay before the first retry; subsequent
// retries use exponential backoff. If not specified, no retries are
// performed.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}

		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithJitter randomizes retry delays by the given factor (0.0 to 1.0) to
// prevent synchronized retries across tasks. Only meaningful together
// with WithRetryPolicy.
func WithJitter(factor float64) Option {
	return func(cfg *config) {
		if factor > 0 {
			cfg.jitterFactor = factor
		}
	}
}

// WithRateLimit throttles how often workers may start tasks.
// tasksPerSecond specifies the maximum number of tasks to start per second.
// burst specifies the maximum number of tasks that can start in a burst.
// This is useful when tasks call an external service that must not be
// overwhelmed. If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		maxAttempts:  1,
		initialDelay: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.maxAttempts > 1 {
		if cfg.jitterFactor > 0 {
			cfg.backoff = backoff.NewJittered(cfg.initialDelay, defaultMaxDelay, cfg.jitterFactor)
		} else {
			cfg.backoff = backoff.NewExponential(cfg.initialDelay, defaultMaxDelay)
		}
	}

	return cfg
}
