package job

// Result is the aggregate outcome of one run, computed once per invocation.
type Result struct {
	// TotalRows is the row count observed at run start.
	TotalRows int64
	// Batches is ceil(TotalRows / batchSize).
	Batches int
	// ElapsedSeconds is the whole-second duration of the run.
	ElapsedSeconds int64
	// Outcomes holds one entry per attempted batch, in batch-index order.
	Outcomes []BatchOutcome
}

// BatchOutcome records how one batch fared.
type BatchOutcome struct {
	// Batch is the batch index in [0, Batches).
	Batch int
	// Rows is the number of rows written, zero when the batch failed or
	// its page was empty.
	Rows int
	// Err is non-nil when the batch's transaction rolled back.
	Err error
}

// Failed counts the attempted batches whose transaction rolled back.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
