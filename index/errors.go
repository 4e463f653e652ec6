package index

import "errors"

var (
	// ErrNotFound is returned by Get when no payload exists for the
	// requested paper identifier.
	ErrNotFound = errors.New("paper not found")

	// ErrLengthMismatch is returned by Upsert when the papers and
	// vectors slices differ in length.
	ErrLengthMismatch = errors.New("papers and vectors length mismatch")

	// ErrDimensionMismatch indicates a vector whose dimension differs
	// from the collection's. This is a configuration error: the online
	// embedding model does not match the ingestion-time model.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
