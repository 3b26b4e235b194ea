// Package transform defines the contract for producing a row's updated form.
package transform

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/rescore/internal/domain/model"
)

// Default transformer configuration constants.
const (
	defaultMaxIncrement = 100
)

// Transformer produces the updated form of a single record. Implementations
// must be safe for concurrent use across distinct records.
type Transformer interface {
	// Transform computes the updated projection, honoring ctx for cancellation.
	Transform(ctx context.Context, rec model.Record) (model.ScoreUpdate, error)
}

// DeltaTransformer implements Transformer by adding a bounded random
// increment to the score and refreshing the modification timestamp.
type DeltaTransformer struct {
	maxIncrement int64
	now          func() time.Time

	// rand.Rand is not safe for concurrent use; transforms run fanned out.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDeltaTransformer creates a transformer with configuration options.
func NewDeltaTransformer(opts ...Option) *DeltaTransformer {
	t := &DeltaTransformer{
		maxIncrement: defaultMaxIncrement,
		now:          time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // score jitter, not crypto
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Transform returns the record's writable projection with the score bumped
// by a delta drawn uniformly from [0, maxIncrement] inclusive.
func (t *DeltaTransformer) Transform(ctx context.Context, rec model.Record) (model.ScoreUpdate, error) {
	if err := ctx.Err(); err != nil {
		return model.ScoreUpdate{}, fmt.Errorf("transform cancelled: %w", err)
	}

	return rec.Update(rec.Score+t.delta(), t.now()), nil
}

// delta draws one increment. Int63n's half-open bound is widened by one to
// keep maxIncrement itself reachable.
func (t *DeltaTransformer) delta() int64 {
	if t.maxIncrement == 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rng.Int63n(t.maxIncrement + 1)
}
