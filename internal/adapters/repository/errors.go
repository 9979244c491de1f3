package repository

import "errors"

var (
	// ErrBackendUnavailable wraps every failure to reach or use the backend.
	ErrBackendUnavailable = errors.New("backing store unavailable")
	// ErrUnknownTable means a table is not part of the schema.
	ErrUnknownTable = errors.New("unknown table")
	// ErrInvalidRow means a row or filter names a column the table lacks, or a
	// mutation came without filters.
	ErrInvalidRow = errors.New("invalid row")
)
