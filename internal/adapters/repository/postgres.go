package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/rescore/internal/domain/model"
)

// tableName is fixed: the job updates exactly one table.
const tableName = "talent_scores"

const (
	countQuery = `SELECT COUNT(*) FROM ` + tableName

	fetchPageQuery = `
		SELECT id, score, inserted_at, updated_at
		FROM ` + tableName + `
		ORDER BY id
		LIMIT $1 OFFSET $2`

	upsertQuery = `
		INSERT INTO ` + tableName + ` (id, score, inserted_at, updated_at)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (id) DO UPDATE
		SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// pgxScope is the concrete Scope produced by PostgresStore.WithTx.
type pgxScope struct {
	tx pgx.Tx
}

// NewPostgresStore creates a store backed by a pgx pool for the given DSN.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	// Apply all options
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Count returns the total live row count.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// FetchPage returns up to limit rows starting at offset, ordered by id.
func (s *PostgresStore) FetchPage(ctx context.Context, offset, limit int) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx, fetchPageQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}
	defer rows.Close()

	records := make([]model.Record, 0, limit)
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.ID, &rec.Score, &rec.InsertedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}
	return records, nil
}

// WithTx runs fn inside one transaction, committing on nil and rolling back
// on error or panic.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(scope Scope) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(pgxScope{tx: tx})
	return err
}

// UpsertBatch queues one upsert per row on the scope's transaction and sends
// them as a single pgx batch. An empty update set is a no-op.
func (s *PostgresStore) UpsertBatch(ctx context.Context, scope Scope, updates []model.ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	ps, ok := scope.(pgxScope)
	if !ok {
		return ErrInvalidScope
	}

	batch := &pgx.Batch{}
	for _, upd := range updates {
		batch.Queue(upsertQuery, upd.ID, upd.Score, upd.UpdatedAt)
	}

	results := ps.tx.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for i := range updates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert row %s: %w", updates[i].ID, err)
		}
	}
	return nil
}
