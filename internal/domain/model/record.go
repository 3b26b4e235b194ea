// Package model contains domain models passed between layers.
package model

import "time"

// Record represents one row of the score table as read from the store.
// The job only ever holds transient copies; the store owns the rows.
type Record struct {
	ID         string    // unique identifier, upsert conflict key
	Score      int64     // current score value
	InsertedAt time.Time // row creation time, never touched by the job
	UpdatedAt  time.Time // last modification time, second precision
}

// ScoreUpdate is the writable projection of a Record: exactly the fields
// the bulk upsert accepts. The full Record type is never handed to the
// write path so the write contract stays explicit.
type ScoreUpdate struct {
	ID        string
	Score     int64
	UpdatedAt time.Time
}

// Update projects the record into its writable form with a new score and
// timestamp. The identifier is carried over unchanged.
func (r Record) Update(score int64, at time.Time) ScoreUpdate {
	return ScoreUpdate{
		ID:        r.ID,
		Score:     score,
		UpdatedAt: at.UTC().Truncate(time.Second),
	}
}
