// Package repository defines the score-table gateway interface and errors.
package repository

import (
	"context"

	"github.com/okian/rescore/internal/domain/model"
)

// Scope is an opaque transaction handle. WithTx creates one and passes it to
// the callback; UpsertBatch accepts it back so all writes of one batch share
// a single transaction. Each Store implementation supplies its own concrete
// type and rejects foreign scopes.
type Scope interface{}

// Store provides read/write access to the score table.
type Store interface {
	// Count returns the total live row count. No side effects.
	Count(ctx context.Context) (int64, error)

	// FetchPage returns up to limit rows starting at offset, in the
	// store's stable id order. Offset pagination is not snapshot-isolated
	// against concurrent writers; callers accept skipped or duplicated
	// rows when the table is resized mid-run.
	FetchPage(ctx context.Context, offset, limit int) ([]model.Record, error)

	// WithTx runs fn inside one transaction. The transaction commits when
	// fn returns nil and rolls back when it returns an error or panics.
	WithTx(ctx context.Context, fn func(scope Scope) error) error

	// UpsertBatch inserts or replaces rows matched by identifier inside
	// the supplied transaction scope, touching only the score and
	// updated_at columns on conflict.
	UpsertBatch(ctx context.Context, scope Scope, updates []model.ScoreUpdate) error
}
