package job

import (
	"context"
	"fmt"

	"github.com/okian/rescore/internal/adapters/repository"
	"github.com/okian/rescore/internal/domain/model"
	"github.com/okian/rescore/pkg/metrics"
)

// writer persists one batch's payload inside a single transaction.
// Success or failure is all-or-nothing per batch; a failed batch is not
// retried here.
type writer struct {
	store repository.Store
}

// write upserts the payload in one transaction scope. An empty payload
// never opens a transaction.
func (w *writer) write(ctx context.Context, batch int, updates []model.ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	metrics.IncOpenTransactions()
	defer metrics.DecOpenTransactions()

	err := w.store.WithTx(ctx, func(scope repository.Scope) error {
		return w.store.UpsertBatch(ctx, scope, updates)
	})
	if err != nil {
		return fmt.Errorf("batch %d: write: %w", batch, err)
	}
	return nil
}
