package job

import "errors"

// Sentinel kinds for run errors.
var (
	ErrMissingStore       = errors.New("store is required")
	ErrMissingTransformer = errors.New("transformer is required")
	ErrRunAborted         = errors.New("run aborted after wave failures")
)
