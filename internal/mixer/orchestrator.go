// Package mixer orchestrates the full affirmation mixing pipeline: it
// validates the request, acquires the speech and backing audio, computes the
// mix plan, and drives the media engine to produce the final MP3. Every
// temporary artifact it allocates is removed before Mix returns, on success
// and on failure alike.
package mixer

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/affirmix/mix-service/internal/core"
	"github.com/affirmix/mix-service/internal/fsutil"
	"github.com/affirmix/mix-service/internal/mixplan"
)

// DefaultSafetyFloorSeconds is the minimum amount of narrated audio the
// pipeline requests from the synthesizer. Repeating the text past this
// floor keeps a short recording loopable across long backing tracks without
// audible seams from over-short synthesis units.
const DefaultSafetyFloorSeconds = 900.0

// Temp artifact name prefixes.
const (
	speechPrefix       = "speech"
	speechJoinedPrefix = "speech-joined"
	backingPrefix      = "backing"
	outputPrefix       = "mixed"
)

// Error message formats.
const (
	errFmtSilenceFailed = "failed to synthesize silent backing track: %w"
	errFmtConcatFailed  = "failed to join speech segments: %w"
	errFmtMixFailed     = "failed to render mix: %w"
	errFmtReadOutput    = "%w: failed to read mix output: %v"
)

// Options tunes the orchestrator.
type Options struct {
	// TempDir is where intermediate audio files are created.
	TempDir string
	// SafetyFloorSeconds overrides DefaultSafetyFloorSeconds when positive.
	SafetyFloorSeconds float64
	// EngineTimeout bounds each media engine invocation. Zero means the
	// caller's context deadline is the only bound.
	EngineTimeout time.Duration
}

// Orchestrator wires the pipeline stages together behind a single Mix call.
type Orchestrator struct {
	synthesizer core.SpeechSynthesizer
	fetcher     core.MediaFetcher
	engine      core.MediaEngine
	options     Options
	log         *logger.Logger
}

// New creates an Orchestrator. Unset options fall back to defaults.
func New(
	synthesizer core.SpeechSynthesizer,
	fetcher core.MediaFetcher,
	engine core.MediaEngine,
	options Options,
	log *logger.Logger,
) *Orchestrator {
	if options.TempDir == "" {
		options.TempDir = os.TempDir()
	}

	if options.SafetyFloorSeconds <= 0 {
		options.SafetyFloorSeconds = DefaultSafetyFloorSeconds
	}

	return &Orchestrator{
		synthesizer: synthesizer,
		fetcher:     fetcher,
		engine:      engine,
		options:     options,
		log:         log,
	}
}

// Mix runs the full pipeline for one request and returns the rendered MP3
// bytes. Validation failures surface as core.ErrValidation before any
// external call is made.
func (o *Orchestrator) Mix(ctx context.Context, req core.MixRequest) ([]byte, error) {
	validationErr := req.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	artifacts := newArtifactSet(o.log)
	defer artifacts.removeAll()

	speechPath, speechErr := o.acquireSpeech(ctx, req, artifacts)
	if speechErr != nil {
		return nil, speechErr
	}

	backingPath, backingErr := o.acquireBacking(ctx, req, artifacts)
	if backingErr != nil {
		return nil, backingErr
	}

	plan, planErr := mixplan.Compute(req)
	if planErr != nil {
		return nil, planErr
	}

	outputPath := fsutil.TempFileName(o.options.TempDir, outputPrefix, ".mp3")
	artifacts.track(outputPath)

	engineCtx, cancel := o.engineContext(ctx)
	defer cancel()

	mixErr := o.engine.Mix(engineCtx, speechPath, backingPath, outputPath, plan)
	if mixErr != nil {
		return nil, fmt.Errorf(errFmtMixFailed, mixErr)
	}

	data, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return nil, fmt.Errorf(errFmtReadOutput, core.ErrEngine, readErr)
	}

	o.log.Info(
		"Mixed %.1fs track (speech speed %.2f, loops %d): %d bytes",
		req.TrackDuration,
		req.TTSSpeed,
		plan.LoopCount,
		len(data),
	)

	return data, nil
}

// acquireSpeech resolves the request's speech audio to a single local file.
// Inline audio is fetched directly as one reference; it is never split on
// commas, since a data URI contains one by construction. Otherwise the text
// is padded past the safety floor and handed to the synthesizer, and the
// returned references are fetched and, when there is more than one, joined.
func (o *Orchestrator) acquireSpeech(
	ctx context.Context,
	req core.MixRequest,
	artifacts *artifactSet,
) (string, error) {
	if req.HasInlineAudio() {
		localPath, fetchErr := o.fetcher.Fetch(ctx, req.Text, speechPrefix)
		if fetchErr != nil {
			return "", fetchErr
		}

		artifacts.track(localPath)

		return localPath, nil
	}

	synthesizedRef, synthErr := o.synthesizer.Synthesize(
		ctx,
		o.padToSafetyFloor(req.Text, req.TTSDuration),
	)
	if synthErr != nil {
		return "", synthErr
	}

	refs := strings.Split(synthesizedRef, core.RefSeparator)
	localPaths := make([]string, 0, len(refs))

	for _, ref := range refs {
		localPath, fetchErr := o.fetcher.Fetch(ctx, strings.TrimSpace(ref), speechPrefix)
		if fetchErr != nil {
			return "", fetchErr
		}

		artifacts.track(localPath)
		localPaths = append(localPaths, localPath)
	}

	if len(localPaths) == 1 {
		return localPaths[0], nil
	}

	joinedPath := fsutil.TempFileName(o.options.TempDir, speechJoinedPrefix, ".mp3")
	artifacts.track(joinedPath)

	engineCtx, cancel := o.engineContext(ctx)
	defer cancel()

	concatErr := o.engine.Concat(engineCtx, localPaths, joinedPath)
	if concatErr != nil {
		return "", fmt.Errorf(errFmtConcatFailed, concatErr)
	}

	return joinedPath, nil
}

// acquireBacking resolves the backing track to a local file. The sentinel
// value for "no backing track selected" produces synthesized silence of the
// full target duration so the downstream mix graph never needs a special
// case.
func (o *Orchestrator) acquireBacking(
	ctx context.Context,
	req core.MixRequest,
	artifacts *artifactSet,
) (string, error) {
	if req.SelectedBackingTrack == core.NoBackingTrack {
		silencePath := fsutil.TempFileName(o.options.TempDir, backingPrefix, ".mp3")
		artifacts.track(silencePath)

		engineCtx, cancel := o.engineContext(ctx)
		defer cancel()

		silenceErr := o.engine.Silence(engineCtx, silencePath, req.TrackDuration)
		if silenceErr != nil {
			return "", fmt.Errorf(errFmtSilenceFailed, silenceErr)
		}

		return silencePath, nil
	}

	backingPath, fetchErr := o.fetcher.Fetch(ctx, req.SelectedBackingTrack, backingPrefix)
	if fetchErr != nil {
		return "", fetchErr
	}

	artifacts.track(backingPath)

	return backingPath, nil
}

// padToSafetyFloor repeats the text enough times for the synthesized audio
// to exceed the safety floor, given the expected duration of one reading.
func (o *Orchestrator) padToSafetyFloor(text string, unitSeconds float64) string {
	if unitSeconds <= 0 {
		return text
	}

	repetitions := int(math.Ceil(o.options.SafetyFloorSeconds / unitSeconds))
	if float64(repetitions)*unitSeconds <= o.options.SafetyFloorSeconds {
		repetitions++
	}

	if repetitions <= 1 {
		return text
	}

	parts := make([]string, repetitions)
	for i := range parts {
		parts[i] = text
	}

	return strings.Join(parts, " ")
}

func (o *Orchestrator) engineContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.options.EngineTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, o.options.EngineTimeout)
}
