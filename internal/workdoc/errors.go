package workdoc

import "errors"

// Sentinel errors for the workdoc package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrInvalidSeverity is returned when a severity string is not S0..S5.
	ErrInvalidSeverity = errors.New("invalid severity (want S0..S5)")

	// ErrInvalidStatus is returned when a status string is not a known state.
	ErrInvalidStatus = errors.New("invalid work document status")

	// ErrNotFound is returned when no Work Document exists for an identity.
	ErrNotFound = errors.New("work document not found")
)
