// Package ffmpeg implements the MediaEngine port by invoking the ffmpeg
// binary as a separate process per operation. The service never performs
// signal processing in-process; it only constructs filter graphs and
// validates the engine's exit status.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/book-expert/logger"

	"github.com/affirmix/mix-service/internal/core"
)

// Default output normalization applied to every rendered file.
const (
	DefaultBinaryPath = "ffmpeg"
	DefaultSampleRate = 48000
	DefaultBitrate    = "192k"
)

// stereoChannelLayout is the channel layout used for generated silence.
const stereoChannelLayout = "stereo"

// Error message formats.
const (
	errFmtEngineFailed  = "%w: %s: %s"
	errFmtProbeFailed   = "%w: %v"
	errFmtTooFewInputs  = "%w: concat requires at least two inputs, got %d"
	errFmtSilenceLength = "%w: silence duration must be positive, got %g"
)

// commandRunner executes a binary and returns its combined output. It exists
// so tests can observe the exact argument list without spawning processes.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- the binary path comes from validated configuration and
	// every numeric argument is checked for finiteness before formatting.
	cmd := exec.CommandContext(ctx, name, args...)

	return cmd.CombinedOutput()
}

// Engine invokes the ffmpeg binary for mixing, silence generation, and
// segment concatenation.
type Engine struct {
	binaryPath string
	sampleRate int
	bitrate    string
	run        commandRunner
	log        *logger.Logger
}

// Config holds the engine invocation settings.
type Config struct {
	BinaryPath string
	SampleRate int
	Bitrate    string
}

// New creates an Engine. Zero-valued config fields fall back to the
// package defaults.
func New(cfg Config, log *logger.Logger) *Engine {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = DefaultBinaryPath
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if cfg.Bitrate == "" {
		cfg.Bitrate = DefaultBitrate
	}

	return &Engine{
		binaryPath: cfg.BinaryPath,
		sampleRate: cfg.SampleRate,
		bitrate:    cfg.Bitrate,
		run:        runCommand,
		log:        log,
	}
}

// NewWithRunner creates an Engine with a custom command runner. This
// constructor is primarily for testing.
func NewWithRunner(cfg Config, log *logger.Logger, run commandRunner) *Engine {
	engine := New(cfg, log)
	engine.run = run

	return engine
}

// Available probes the engine binary by asking for its version string.
// Absence fails fast with ErrEngineUnavailable instead of surfacing later as
// a generic mix failure.
func (e *Engine) Available(ctx context.Context) error {
	_, err := e.run(ctx, e.binaryPath, "-version")
	if err != nil {
		return fmt.Errorf(errFmtProbeFailed, core.ErrEngineUnavailable, err)
	}

	return nil
}

// Mix renders the speech and backing inputs through the plan's filter graph
// into outputPath, resampled and encoded to the configured output format.
// The call blocks until the engine process terminates.
func (e *Engine) Mix(
	ctx context.Context,
	speechPath, backingPath, outputPath string,
	plan core.MixPlan,
) error {
	filterGraph, err := BuildMixFilter(plan)
	if err != nil {
		return err
	}

	args := []string{
		"-y",
		"-i", speechPath,
		"-i", backingPath,
		"-filter_complex", filterGraph,
		"-map", "[mix]",
		"-ar", fmt.Sprintf("%d", e.sampleRate),
		"-b:a", e.bitrate,
		outputPath,
	}

	return e.execute(ctx, args)
}

// Silence generates a stereo silent audio file of the given duration at the
// configured sample rate, encoded in the same codec as the final mix.
func (e *Engine) Silence(ctx context.Context, outputPath string, durationSeconds float64) error {
	if durationSeconds <= 0 {
		return fmt.Errorf(errFmtSilenceLength, core.ErrPlan, durationSeconds)
	}

	source := fmt.Sprintf(
		"anullsrc=channel_layout=%s:sample_rate=%d",
		stereoChannelLayout,
		e.sampleRate,
	)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", source,
		"-t", fmt.Sprintf("%.3f", durationSeconds),
		"-b:a", e.bitrate,
		outputPath,
	}

	return e.execute(ctx, args)
}

// Concat joins the input files into one audio file, preserving order.
func (e *Engine) Concat(ctx context.Context, inputPaths []string, outputPath string) error {
	if len(inputPaths) < 2 {
		return fmt.Errorf(errFmtTooFewInputs, core.ErrEngine, len(inputPaths))
	}

	args := []string{"-y"}
	for _, path := range inputPaths {
		args = append(args, "-i", path)
	}

	var graph string
	for i := range inputPaths {
		graph += fmt.Sprintf("[%d:a]", i)
	}

	graph += fmt.Sprintf("concat=n=%d:v=0:a=1[joined]", len(inputPaths))

	args = append(args,
		"-filter_complex", graph,
		"-map", "[joined]",
		"-ar", fmt.Sprintf("%d", e.sampleRate),
		"-b:a", e.bitrate,
		outputPath,
	)

	return e.execute(ctx, args)
}

// execute runs one engine process to completion and classifies its failure.
func (e *Engine) execute(ctx context.Context, args []string) error {
	output, err := e.run(ctx, e.binaryPath, args...)
	if err == nil {
		return nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf(errFmtProbeFailed, core.ErrEngineUnavailable, err)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf(errFmtProbeFailed, core.ErrEngineTimeout, err)
	}

	e.log.Error("Engine invocation failed: %v - output: %s", err, string(output))

	return fmt.Errorf(errFmtEngineFailed, core.ErrEngine, err, string(output))
}
