package job

import (
	"github.com/okian/rescore/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithBatchSize sets the number of rows fetched and written per batch.
func WithBatchSize(size int) Option {
	return func(r *Runner) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithMaxConcurrency caps the number of batches in flight per wave.
func WithMaxConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxConcurrency = n
		}
	}
}

// WithTransformFanout caps concurrent row transforms within one batch.
func WithTransformFanout(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.transformFanout = n
		}
	}
}

// WithContinueOnError makes the scheduler advance past waves that had
// failed batches instead of aborting the run. Failures stay visible in the
// result's outcomes either way.
func WithContinueOnError(continueOnError bool) Option {
	return func(r *Runner) {
		r.continueOnError = continueOnError
	}
}

// WithLogger sets a custom logger for the run.
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}
