package job_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okian/rescore/internal/adapters/repository"
	"github.com/okian/rescore/internal/domain/model"
	"github.com/okian/rescore/internal/domain/transform"
	"github.com/okian/rescore/internal/job"
	"github.com/okian/rescore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeStore is an in-memory Store with per-transaction staging so commits
// and rollbacks behave like the real gateway.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]model.Record

	countErr      error
	countOverride int64 // when > 0, Count lies, simulating a resized table

	failIDs map[string]bool // upserts touching these ids fail mid-batch

	open    int
	maxOpen int
	writes  int
	fetches []int // offsets requested, in call order
}

type fakeScope struct {
	staged []model.ScoreUpdate
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{rows: make(map[string]model.Record, n)}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("talent-%04d", i)
		s.rows[id] = model.Record{
			ID:         id,
			Score:      int64(i),
			InsertedAt: base,
			UpdatedAt:  base,
		}
	}
	return s
}

func (s *fakeStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *fakeStore) Count(_ context.Context) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countOverride > 0 {
		return s.countOverride, nil
	}
	return int64(len(s.rows)), nil
}

func (s *fakeStore) FetchPage(_ context.Context, offset, limit int) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, offset)

	ids := s.sortedIDs()
	if offset >= len(ids) {
		return nil, nil
	}
	end := min(offset+limit, len(ids))
	page := make([]model.Record, 0, end-offset)
	for _, id := range ids[offset:end] {
		page = append(page, s.rows[id])
	}
	return page, nil
}

func (s *fakeStore) WithTx(_ context.Context, fn func(scope repository.Scope) error) error {
	s.mu.Lock()
	s.open++
	if s.open > s.maxOpen {
		s.maxOpen = s.open
	}
	s.writes++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.open--
		s.mu.Unlock()
	}()

	scope := &fakeScope{}
	if err := fn(scope); err != nil {
		// Rollback: staged updates are discarded.
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, upd := range scope.staged {
		rec := s.rows[upd.ID]
		rec.Score = upd.Score
		rec.UpdatedAt = upd.UpdatedAt
		s.rows[upd.ID] = rec
	}
	return nil
}

func (s *fakeStore) UpsertBatch(_ context.Context, scope repository.Scope, updates []model.ScoreUpdate) error {
	fs, ok := scope.(*fakeScope)
	if !ok {
		return repository.ErrInvalidScope
	}
	for _, upd := range updates {
		if s.failIDs[upd.ID] {
			return fmt.Errorf("constraint violation on %s", upd.ID)
		}
		fs.staged = append(fs.staged, upd)
	}
	return nil
}

func newTransformer() transform.Transformer {
	return transform.NewDeltaTransformer(
		transform.WithMaxIncrement(100),
		transform.WithRandSource(rand.NewSource(42)),
	)
}

func discardLogger() logger.Logger {
	return logger.New(&bytes.Buffer{}, slog.LevelInfo)
}

func TestRun(t *testing.T) {
	Convey("Given a table with 1200 rows and batch size 500", t, func() {
		store := newFakeStore(1200)
		start := time.Now().UTC().Truncate(time.Second)

		runner := job.New(store, newTransformer(),
			job.WithBatchSize(500),
			job.WithLogger(discardLogger()),
		)

		Convey("When the run completes", func() {
			res, err := runner.Run(context.Background())

			Convey("Then the result tuple should be (1200, 3)", func() {
				So(err, ShouldBeNil)
				So(res.TotalRows, ShouldEqual, 1200)
				So(res.Batches, ShouldEqual, 3)
				So(res.ElapsedSeconds, ShouldBeGreaterThanOrEqualTo, 0)
			})

			Convey("Then every batch should succeed with the expected row counts", func() {
				So(res.Outcomes, ShouldHaveLength, 3)
				rowsByBatch := map[int]int{}
				for _, o := range res.Outcomes {
					So(o.Err, ShouldBeNil)
					rowsByBatch[o.Batch] = o.Rows
				}
				So(rowsByBatch[0], ShouldEqual, 500)
				So(rowsByBatch[1], ShouldEqual, 500)
				So(rowsByBatch[2], ShouldEqual, 200)
			})

			Convey("Then the batches should partition the table by offset", func() {
				offsets := append([]int(nil), store.fetches...)
				sort.Ints(offsets)
				So(offsets, ShouldResemble, []int{0, 500, 1000})
			})

			Convey("Then every row's score should grow by at most the max increment", func() {
				for i, id := range store.sortedIDs() {
					delta := store.rows[id].Score - int64(i)
					So(delta, ShouldBeGreaterThanOrEqualTo, 0)
					So(delta, ShouldBeLessThanOrEqualTo, 100)
				}
			})

			Convey("Then every row's timestamp should be refreshed", func() {
				for _, id := range store.sortedIDs() {
					So(store.rows[id].UpdatedAt, ShouldHappenOnOrAfter, start)
				}
			})

			Convey("Then one transaction per batch should have been opened", func() {
				So(store.writes, ShouldEqual, 3)
			})
		})
	})
}

func TestRunEmptyTable(t *testing.T) {
	Convey("Given an empty table", t, func() {
		store := newFakeStore(0)
		runner := job.New(store, newTransformer(), job.WithLogger(discardLogger()))

		Convey("When the run completes", func() {
			res, err := runner.Run(context.Background())

			Convey("Then the result should be the explicit no-op tuple", func() {
				So(err, ShouldBeNil)
				So(res.TotalRows, ShouldEqual, 0)
				So(res.Batches, ShouldEqual, 0)
				So(res.Outcomes, ShouldBeEmpty)
			})

			Convey("Then neither the read nor the write path should be touched", func() {
				So(store.fetches, ShouldBeEmpty)
				So(store.writes, ShouldEqual, 0)
			})
		})
	})
}

func TestRunConcurrencyBound(t *testing.T) {
	Convey("Given 10 batches and a wave concurrency of 3", t, func() {
		store := newFakeStore(1000)
		runner := job.New(store, newTransformer(),
			job.WithBatchSize(100),
			job.WithMaxConcurrency(3),
			job.WithTransformFanout(2),
			job.WithLogger(discardLogger()),
		)

		Convey("When the run completes", func() {
			res, err := runner.Run(context.Background())

			Convey("Then all batches should succeed", func() {
				So(err, ShouldBeNil)
				So(res.Batches, ShouldEqual, 10)
				So(res.Failed(), ShouldEqual, 0)
			})

			Convey("Then open transactions should never exceed the wave cap", func() {
				So(store.maxOpen, ShouldBeLessThanOrEqualTo, 3)
			})
		})
	})
}

func TestRunBatchFailure(t *testing.T) {
	Convey("Given a mid-batch failure in the second batch", t, func() {
		store := newFakeStore(1200)
		// talent-0700 sits in batch 1 (offsets 500-999).
		store.failIDs = map[string]bool{"talent-0700": true}

		runner := job.New(store, newTransformer(),
			job.WithBatchSize(500),
			job.WithLogger(discardLogger()),
		)

		Convey("When the run finishes", func() {
			res, err := runner.Run(context.Background())

			Convey("Then the run should report the aborted wave", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, job.ErrRunAborted), ShouldBeTrue)
			})

			Convey("Then exactly one batch outcome should carry the failure", func() {
				So(res.Outcomes, ShouldHaveLength, 3)
				So(res.Failed(), ShouldEqual, 1)
				for _, o := range res.Outcomes {
					if o.Batch == 1 {
						So(o.Err, ShouldNotBeNil)
					} else {
						So(o.Err, ShouldBeNil)
					}
				}
			})

			Convey("Then the failed batch's rows should be left unmodified", func() {
				ids := store.sortedIDs()
				for i := 500; i < 1000; i++ {
					So(store.rows[ids[i]].Score, ShouldEqual, int64(i))
				}
			})

			Convey("Then sibling batches' committed writes should survive", func() {
				ids := store.sortedIDs()
				changed := 0
				for i := 0; i < 500; i++ {
					if store.rows[ids[i]].UpdatedAt.After(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
						changed++
					}
				}
				So(changed, ShouldEqual, 500)
			})
		})
	})
}

func TestRunContinueOnError(t *testing.T) {
	Convey("Given four single-batch waves with a failure in the first", t, func() {
		store := newFakeStore(400)
		store.failIDs = map[string]bool{"talent-0000": true}

		Convey("When continue-on-error is enabled", func() {
			runner := job.New(store, newTransformer(),
				job.WithBatchSize(100),
				job.WithMaxConcurrency(1),
				job.WithContinueOnError(true),
				job.WithLogger(discardLogger()),
			)
			res, err := runner.Run(context.Background())

			Convey("Then all batches should still be attempted", func() {
				So(err, ShouldBeNil)
				So(res.Outcomes, ShouldHaveLength, 4)
				So(res.Failed(), ShouldEqual, 1)
			})
		})

		Convey("When continue-on-error is disabled", func() {
			runner := job.New(store, newTransformer(),
				job.WithBatchSize(100),
				job.WithMaxConcurrency(1),
				job.WithLogger(discardLogger()),
			)
			res, err := runner.Run(context.Background())

			Convey("Then the scheduler should stop after the failing wave", func() {
				So(errors.Is(err, job.ErrRunAborted), ShouldBeTrue)
				So(res.Outcomes, ShouldHaveLength, 1)
			})
		})
	})
}

func TestRunCountFailure(t *testing.T) {
	Convey("Given a store whose count query fails", t, func() {
		store := newFakeStore(10)
		store.countErr = errors.New("connection refused")

		runner := job.New(store, newTransformer(), job.WithLogger(discardLogger()))

		Convey("When running", func() {
			res, err := runner.Run(context.Background())

			Convey("Then the run should fail outright", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "count rows")
				So(res.Outcomes, ShouldBeEmpty)
				So(store.writes, ShouldEqual, 0)
			})
		})
	})
}

func TestRunShrunkenTable(t *testing.T) {
	Convey("Given a count that exceeds the actual rows", t, func() {
		store := newFakeStore(1000)
		store.countOverride = 1500 // conceptually-last batch fetches an empty page

		runner := job.New(store, newTransformer(),
			job.WithBatchSize(500),
			job.WithLogger(discardLogger()),
		)

		Convey("When the run completes", func() {
			res, err := runner.Run(context.Background())

			Convey("Then the phantom batch should succeed as an empty no-op", func() {
				So(err, ShouldBeNil)
				So(res.Batches, ShouldEqual, 3)
				rowsByBatch := map[int]int{}
				for _, o := range res.Outcomes {
					So(o.Err, ShouldBeNil)
					rowsByBatch[o.Batch] = o.Rows
				}
				So(rowsByBatch[2], ShouldEqual, 0)
			})

			Convey("Then the empty payload should never open a transaction", func() {
				So(store.writes, ShouldEqual, 2)
			})
		})
	})
}

func TestRunLogging(t *testing.T) {
	Convey("Given a runner with a captured logger", t, func() {
		var buf bytes.Buffer
		store := newFakeStore(120)

		runner := job.New(store, newTransformer(),
			job.WithBatchSize(50),
			job.WithLogger(logger.New(&buf, slog.LevelInfo)),
		)

		Convey("When the run completes", func() {
			_, err := runner.Run(context.Background())

			Convey("Then the start and summary lines should be emitted", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldContainSubstring, "score update run starting")
				So(out, ShouldContainSubstring, "started_at=")
				So(out, ShouldContainSubstring, "score update run finished")
				So(out, ShouldContainSubstring, "total_rows=120")
				So(out, ShouldContainSubstring, "batches=3")
				So(out, ShouldContainSubstring, "elapsed_seconds=")
			})
		})
	})
}

func TestRunValidation(t *testing.T) {
	Convey("Given misconfigured runners", t, func() {
		Convey("When the store is missing", func() {
			runner := job.New(nil, newTransformer(), job.WithLogger(discardLogger()))
			_, err := runner.Run(context.Background())

			Convey("Then the run should fail with the sentinel", func() {
				So(errors.Is(err, job.ErrMissingStore), ShouldBeTrue)
			})
		})

		Convey("When the transformer is missing", func() {
			runner := job.New(newFakeStore(1), nil, job.WithLogger(discardLogger()))
			_, err := runner.Run(context.Background())

			Convey("Then the run should fail with the sentinel", func() {
				So(errors.Is(err, job.ErrMissingTransformer), ShouldBeTrue)
			})
		})
	})
}
