package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidScope = errors.New("transaction scope from a different store")
	ErrConnect      = errors.New("store connection failed")
)
