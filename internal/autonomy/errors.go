package autonomy

import "errors"

// Sentinel errors for the autonomy package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrEmptyAgent is returned when a grant or revoke names no agent.
	ErrEmptyAgent = errors.New("agent name is required")

	// ErrNoRule is returned when a revoke targets an agent with no rule.
	ErrNoRule = errors.New("no autonomy rule for agent")

	// ErrEmptyReason is returned when a revoke gives no reason.
	ErrEmptyReason = errors.New("revocation reason is required")

	// ErrInvalidCapMode is returned for an unknown severity cap mode.
	ErrInvalidCapMode = errors.New("invalid severity cap mode (want at-most or legacy-at-least)")
)
