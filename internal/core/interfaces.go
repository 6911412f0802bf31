// Package core defines the shared types, collaborator interfaces, and error
// taxonomy for the mix service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SpeechSynthesizer turns text into one or more persisted audio artifacts and
// returns their ordered references joined with commas.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// MediaFetcher resolves an audio reference (inline-encoded data, an object
// store key, or a fetchable URL) into a local temporary file. The caller owns
// the returned path and is responsible for deleting it.
type MediaFetcher interface {
	Fetch(ctx context.Context, ref, prefix string) (string, error)
}

// MediaEngine is the port to the external audio-processing engine. Each call
// runs one engine process to completion.
type MediaEngine interface {
	// Available verifies the engine binary can be invoked.
	Available(ctx context.Context) error
	// Mix renders the two inputs through the filter graph derived from the
	// plan into a single duration-bounded output file.
	Mix(ctx context.Context, speechPath, backingPath, outputPath string, plan MixPlan) error
	// Silence generates a stereo silent audio file of the given duration.
	Silence(ctx context.Context, outputPath string, durationSeconds float64) error
	// Concat joins multiple audio files into one, preserving order.
	Concat(ctx context.Context, inputPaths []string, outputPath string) error
}

// JobStore records and retrieves the status of mix jobs.
type JobStore interface {
	Set(ctx context.Context, jobID, status string) error
	Get(ctx context.Context, jobID string) (string, error)
}
