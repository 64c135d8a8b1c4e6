package repository

import "errors"

// Sentinel kinds for configuration store errors.
var (
	ErrUnavailable     = errors.New("configuration store unavailable")
	ErrInvalidDocument = errors.New("invalid configuration document")
	ErrNilDB           = errors.New("nil database handle")
)
