package genfx

import "errors"

// Sentinel errors returned by the engine and its operators.
// Callers should match them with errors.Is; most are wrapped with context.
var (
	ErrEmptyPopulation    = errors.New("population contains no entities")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingComponent   = errors.New("required component is not configured")
	ErrNotInitialized     = errors.New("algorithm has not been initialized")
	ErrAlreadyInitialized = errors.New("algorithm is already initialized")
	ErrAlgorithmCompleted = errors.New("algorithm has already completed")
	ErrStateMismatch      = errors.New("saved state does not match engine configuration")
	ErrNoOffspring        = errors.New("reproduction produced no offspring")
)
