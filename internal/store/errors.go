package store

import "errors"

// Sentinel errors for the store package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrNotFound is returned when no record exists for a key, or when the
	// record on disk is malformed and therefore treated as absent.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyID is returned when an operation is attempted with an empty ID.
	ErrEmptyID = errors.New("entity ID is required")

	// ErrIDInvalidChars is returned when an ID contains path-unsafe characters.
	ErrIDInvalidChars = errors.New("entity ID contains invalid characters")
)
