package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	// ErrInvalid marks input that fails validation (HTTP 422).
	ErrInvalid = errors.New("invalid")
)
