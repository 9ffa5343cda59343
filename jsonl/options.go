package jsonl

import (
	"os"

	"github.com/rs/zerolog"
)

// defaultConcurrency bounds generation work when the caller does not
// choose a limit.
const defaultConcurrency = 16

// PipelineOption is a functional option for configuring a pipeline run.
type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	logger      zerolog.Logger
	concurrency int
}

// WithLogger replaces the pipeline's logger. The logger receives one
// event per skipped, failed, or planned item; the default writes to
// stderr with timestamps.
func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(cfg *pipelineConfig) {
		cfg.logger = logger
	}
}

// WithConcurrency sets the generation concurrency bound for
// CreateOrResume. If not specified, defaults to 16. MapByKey takes its
// bound as a parameter and ignores this option.
func WithConcurrency(n int) PipelineOption {
	return func(cfg *pipelineConfig) {
		if n > 0 {
			cfg.concurrency = n
		}
	}
}

func newPipelineConfig(opts ...PipelineOption) *pipelineConfig {
	cfg := &pipelineConfig{
		logger:      zerolog.New(os.Stderr).With().Timestamp().Logger(),
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}
