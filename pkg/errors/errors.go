package errors

import "errors"

// Error taxonomy for the engine. Every failing operation wraps exactly one of
// these sentinels so handlers can map it to an HTTP status with errors.Is.
var (
	// ErrValidation covers malformed input rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition covers well-formed requests refused by current engine
	// state: insufficient funds or reputation, already voted, deadline passed,
	// rate limit exceeded, target blacklisted.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotFound covers unknown ids.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict covers duplicate registration and lost compare-and-swap
	// races (attempted double finalize, concurrent modification).
	ErrConflict = errors.New("conflict")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
