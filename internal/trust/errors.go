package trust

import "errors"

// Sentinel errors for the trust package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrInvalidOutcome is returned for a merge outcome other than
	// accepted, modified, or rejected.
	ErrInvalidOutcome = errors.New("invalid merge outcome (want accepted, modified, or rejected)")

	// ErrEmptyAgent is returned when an operation is attempted without an agent name.
	ErrEmptyAgent = errors.New("agent name is required")

	// ErrNoRepos is returned when an aggregate is requested over zero repositories.
	ErrNoRepos = errors.New("at least one repository is required")
)
