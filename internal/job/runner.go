// Package job implements the batch score-update engine: batch partitioning,
// the two-level bounded fan-out, per-batch transactional writes, and run
// statistics.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rescore/internal/adapters/repository"
	"github.com/okian/rescore/internal/domain/transform"
	"github.com/okian/rescore/pkg/logger"
	"github.com/okian/rescore/pkg/metrics"
)

// Default run configuration constants.
const (
	defaultBatchSize       = 500
	defaultMaxConcurrency  = 8
	defaultTransformFanout = 4
)

// Runner coordinates one end-to-end update run over the whole table.
type Runner struct {
	store       repository.Store
	transformer transform.Transformer

	// Configuration
	batchSize       int
	maxConcurrency  int
	transformFanout int
	continueOnError bool

	// Logging
	log logger.Logger
}

// New creates a Runner with configuration options.
func New(store repository.Store, transformer transform.Transformer, opts ...Option) *Runner {
	r := &Runner{
		store:           store,
		transformer:     transformer,
		batchSize:       defaultBatchSize,
		maxConcurrency:  defaultMaxConcurrency,
		transformFanout: defaultTransformFanout,
		log:             nil, // resolved from the global logger on Run
	}

	// Apply all options
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run updates every row of the table and returns the aggregate result.
// There is no checkpointing: a run either completes or its progress beyond
// committed batches is discarded.
//
// Batch failures do not make Run fail by themselves; they are surfaced via
// Result.Outcomes (and ErrRunAborted when a wave's failures stop the run).
// Run returns a bare error only for failures outside the batch boundary,
// such as the initial row count.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.store == nil {
		return Result{}, ErrMissingStore
	}
	if r.transformer == nil {
		return Result{}, ErrMissingTransformer
	}
	if r.log == nil {
		r.log = logger.Get().Named("rescore")
	}

	start := time.Now()
	metrics.RecordRunStarted()
	r.log.Info(ctx, "score update run starting",
		logger.String("started_at", start.UTC().Truncate(time.Second).Format(time.RFC3339)),
	)

	total, err := r.store.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count rows: %w", err)
	}
	metrics.UpdateTotalRows(total)

	numBatches := int((total + int64(r.batchSize) - 1) / int64(r.batchSize))

	var outcomes []BatchOutcome
	var runErr error
	if numBatches > 0 {
		sched := &scheduler{
			builder: &builder{
				store:       r.store,
				transformer: r.transformer,
				batchSize:   r.batchSize,
				fanout:      r.transformFanout,
			},
			writer:          &writer{store: r.store},
			maxConcurrency:  r.maxConcurrency,
			continueOnError: r.continueOnError,
			log:             r.log,
		}
		outcomes, runErr = sched.run(ctx, numBatches)
	}

	elapsed := time.Since(start)
	metrics.ObserveRunDuration(elapsed.Seconds())

	res := Result{
		TotalRows:      total,
		Batches:        numBatches,
		ElapsedSeconds: int64(elapsed / time.Second),
		Outcomes:       outcomes,
	}

	r.log.Info(ctx, "score update run finished",
		logger.Int64("total_rows", res.TotalRows),
		logger.Int("batches", res.Batches),
		logger.Int("failed_batches", res.Failed()),
		logger.Int64("elapsed_seconds", res.ElapsedSeconds),
	)

	return res, runErr
}
