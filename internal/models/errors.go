package models

import "errors"

// Error taxonomy for the decision core.
// Callers check with errors.Is: errors.Is(err, models.ErrState)
var (
	// ErrValidation indicates malformed or missing caller input.
	ErrValidation = errors.New("validation error")

	// ErrState indicates an operation invalid for the current session or
	// model lifecycle state.
	ErrState = errors.New("state error")

	// ErrNotFound indicates an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrNumerical indicates a degenerate regression fit.
	ErrNumerical = errors.New("numerical error")

	// ErrIncompatibleVersion indicates a snapshot schema mismatch.
	// Loaders fail closed on it rather than guessing field layout.
	ErrIncompatibleVersion = errors.New("incompatible snapshot version")
)
