// Command seed populates the talent_scores table with random rows so a
// rescore run can be exercised locally. It owns the table DDL; the job
// itself never provisions schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Default configuration constants.
const (
	defaultNumRows  = 10_000
	defaultMaxScore = 1000
	defaultTimeout  = 2 * time.Minute
	insertChunkSize = 500
)

const createTableDDL = `
CREATE TABLE IF NOT EXISTS talent_scores (
	id          TEXT PRIMARY KEY,
	score       BIGINT NOT NULL DEFAULT 0,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS talent_scores_score_idx ON talent_scores (score);`

const insertQuery = `
INSERT INTO talent_scores (id, score)
VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING`

func main() {
	var (
		dsn      = flag.String("dsn", os.Getenv("RESCORE_DATABASE_URL"), "Postgres DSN (default: RESCORE_DATABASE_URL)")
		numRows  = flag.Int("rows", defaultNumRows, "Number of rows to insert")
		maxScore = flag.Int("max-score", defaultMaxScore, "Upper bound for random starting scores")
	)
	flag.Parse()

	if *dsn == "" {
		os.Stderr.WriteString("no DSN: pass -dsn or set RESCORE_DATABASE_URL\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		os.Stderr.WriteString("failed to connect: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, createTableDDL); err != nil {
		os.Stderr.WriteString("failed to create table: " + err.Error() + "\n")
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // test data

	inserted := 0
	for inserted < *numRows {
		chunk := min(insertChunkSize, *numRows-inserted)

		batch := &pgx.Batch{}
		for i := 0; i < chunk; i++ {
			batch.Queue(insertQuery, uuid.New().String(), rng.Int63n(int64(*maxScore)+1))
		}

		results := pool.SendBatch(ctx, batch)
		for i := 0; i < chunk; i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				os.Stderr.WriteString("failed to insert rows: " + err.Error() + "\n")
				os.Exit(1)
			}
		}
		_ = results.Close()

		inserted += chunk
	}

	fmt.Printf("seeded %d rows\n", inserted)
}
