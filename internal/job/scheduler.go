package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rescore/pkg/logger"
	"github.com/okian/rescore/pkg/metrics"
)

// scheduler partitions the batch index space into waves of at most
// maxConcurrency batches and drives build+write for every batch. Waves run
// strictly in sequence; batches within a wave run concurrently.
type scheduler struct {
	builder         *builder
	writer          *writer
	maxConcurrency  int
	continueOnError bool
	log             logger.Logger
}

// run processes batches [0, numBatches). It returns one outcome per
// attempted batch. A batch failure never halts siblings already in flight
// in the same wave; by default the scheduler stops before the next wave
// when the current one had failures, returning ErrRunAborted wrapping the
// per-batch errors.
func (s *scheduler) run(ctx context.Context, numBatches int) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, 0, numBatches)

	for waveStart := 0; waveStart < numBatches; waveStart += s.maxConcurrency {
		waveEnd := min(waveStart+s.maxConcurrency, numBatches)

		wave := make([]BatchOutcome, waveEnd-waveStart)
		var wg sync.WaitGroup
		for batch := waveStart; batch < waveEnd; batch++ {
			wg.Add(1)
			go func(batch int) {
				defer wg.Done()
				wave[batch-waveStart] = s.runBatch(ctx, batch)
			}(batch)
		}
		wg.Wait()

		outcomes = append(outcomes, wave...)

		var waveErrs []error
		for _, o := range wave {
			if o.Err != nil {
				waveErrs = append(waveErrs, o.Err)
			}
		}
		if len(waveErrs) == 0 {
			continue
		}

		s.log.Warn(ctx, "wave finished with failed batches",
			logger.Int("wave_start", waveStart),
			logger.Int("failed", len(waveErrs)),
		)
		if !s.continueOnError {
			return outcomes, fmt.Errorf("%w: %w", ErrRunAborted, errors.Join(waveErrs...))
		}
	}

	return outcomes, nil
}

// runBatch builds and writes one batch, converting any failure into the
// batch's outcome rather than propagating it.
func (s *scheduler) runBatch(ctx context.Context, batch int) BatchOutcome {
	start := time.Now()
	defer func() {
		metrics.ObserveBatchDuration(time.Since(start).Seconds())
	}()

	updates, err := s.builder.build(ctx, batch)
	if err != nil {
		metrics.RecordBatchFailed()
		return BatchOutcome{Batch: batch, Err: err}
	}

	if err := s.writer.write(ctx, batch, updates); err != nil {
		metrics.RecordBatchFailed()
		return BatchOutcome{Batch: batch, Err: err}
	}

	metrics.RecordBatchCompleted()
	metrics.RecordRowsProcessed(len(updates))
	return BatchOutcome{Batch: batch, Rows: len(updates)}
}
