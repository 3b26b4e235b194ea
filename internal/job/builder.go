package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rescore/internal/adapters/repository"
	"github.com/okian/rescore/internal/domain/model"
	"github.com/okian/rescore/internal/domain/transform"
	"github.com/okian/rescore/pkg/metrics"
)

// builder assembles one batch's payload: it fetches the batch's page and
// applies the transformer to every row with bounded fan-out.
type builder struct {
	store       repository.Store
	transformer transform.Transformer
	batchSize   int
	fanout      int
}

// build returns the transformed payload for the given batch index. Result
// order is unspecified; the bulk write does not care. An empty page yields
// an empty payload.
func (b *builder) build(ctx context.Context, batch int) ([]model.ScoreUpdate, error) {
	offset := batch * b.batchSize

	fetchStart := time.Now()
	page, err := b.store.FetchPage(ctx, offset, b.batchSize)
	metrics.ObserveFetchLatency(float64(time.Since(fetchStart).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("batch %d: %w", batch, err)
	}

	updates := make([]model.ScoreUpdate, 0, len(page))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.fanout)
	for _, rec := range page {
		rec := rec
		g.Go(func() error {
			start := time.Now()
			upd, err := b.transformer.Transform(gctx, rec)
			metrics.ObserveTransformLatency(float64(time.Since(start).Milliseconds()))
			if err != nil {
				return fmt.Errorf("batch %d: transform row %s: %w", batch, rec.ID, err)
			}
			mu.Lock()
			updates = append(updates, upd)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return updates, nil
}
