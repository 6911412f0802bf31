package core

import "errors"

// Error categories for the mix pipeline. Each failure surfaced by a component
// wraps exactly one of these sentinels so that transport layers can map it to
// a response status with errors.Is.
var (
	// ErrValidation indicates malformed or out-of-range request input.
	ErrValidation = errors.New("invalid mix request")
	// ErrSynthesis indicates a speech-provider or storage-write failure.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrFetch indicates a network or decode failure retrieving an audio reference.
	ErrFetch = errors.New("failed to fetch audio reference")
	// ErrPlan indicates degenerate numeric inputs to the mix planner.
	ErrPlan = errors.New("invalid mix plan parameters")
	// ErrEngine indicates a non-zero exit from the external processing engine.
	ErrEngine = errors.New("audio engine execution failed")
	// ErrEngineUnavailable indicates the engine binary cannot be invoked at all.
	ErrEngineUnavailable = errors.New("audio engine unavailable")
	// ErrEngineTimeout indicates the engine did not finish within the configured deadline.
	ErrEngineTimeout = errors.New("audio engine timed out")
	// ErrJobNotFound indicates that no status is recorded for the given job ID.
	ErrJobNotFound = errors.New("job not found")
)
