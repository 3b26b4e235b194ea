package transform

import (
	"math/rand"
	"time"
)

// Option applies a configuration option to the DeltaTransformer.
type Option func(*DeltaTransformer)

// WithMaxIncrement sets the inclusive upper bound of the score delta.
func WithMaxIncrement(maxIncrement int) Option {
	return func(t *DeltaTransformer) {
		if maxIncrement >= 0 {
			t.maxIncrement = int64(maxIncrement)
		}
	}
}

// WithRandSource sets the random source used for delta generation so tests
// can inject a deterministic sequence.
func WithRandSource(src rand.Source) Option {
	return func(t *DeltaTransformer) {
		if src != nil {
			t.rng = rand.New(src) //nolint:gosec // caller-provided source
		}
	}
}

// WithClock sets the time source used for the refreshed timestamp.
func WithClock(now func() time.Time) Option {
	return func(t *DeltaTransformer) {
		if now != nil {
			t.now = now
		}
	}
}
