// Package mixplan derives the engine parameters for one mix operation from a
// validated request. All functions are pure and perform no I/O.
package mixplan

import (
	"fmt"
	"math"

	"github.com/affirmix/mix-service/internal/core"
)

// The engine rejects a single tempo step outside this range, so requested
// factors beyond it are decomposed into a chain of in-range steps.
const (
	minTempoStep = 0.5
	maxTempoStep = 2.0
)

// decibelsPerDecade converts a linear amplitude ratio to decibels.
const decibelsPerDecade = 20.0

// identityTolerance is the threshold below which a trailing tempo step is
// considered a no-op and omitted from the chain.
const identityTolerance = 1e-9

// Error message formats.
const (
	errFmtSpeechDuration = "%w: speech duration must be positive, got %g"
	errFmtSpeedRange     = "%w: speech speed must be within [%g, %g], got %g"
)

// Compute derives the MixPlan for the given request.
//
// The loop count is the number of times the speed-adjusted speech segment
// must repeat, rounding up, to guarantee coverage of the full target
// duration. The output is always trimmed to exactly the requested duration
// regardless of how much looped material was produced.
func Compute(req core.MixRequest) (core.MixPlan, error) {
	if req.TTSDuration <= 0 {
		return core.MixPlan{}, fmt.Errorf(
			errFmtSpeechDuration, core.ErrPlan, req.TTSDuration,
		)
	}

	if req.TTSSpeed < core.MinSpeechSpeed || req.TTSSpeed > core.MaxSpeechSpeed {
		return core.MixPlan{}, fmt.Errorf(
			errFmtSpeedRange,
			core.ErrPlan,
			core.MinSpeechSpeed,
			core.MaxSpeechSpeed,
			req.TTSSpeed,
		)
	}

	adjustedSegmentSeconds := req.TTSDuration / req.TTSSpeed

	loopCount := int(math.Ceil(req.TrackDuration / adjustedSegmentSeconds))
	if loopCount < 1 {
		loopCount = 1
	}

	return core.MixPlan{
		TempoChain:     DecomposeTempo(req.TTSSpeed),
		LoopCount:      loopCount,
		SpeechGainDb:   LinearToDb(req.TTSVolume),
		BackingGainDb:  LinearToDb(req.BackingTrackVolume),
		SpeechWeight:   req.TTSVolume,
		BackingWeight:  req.BackingTrackVolume,
		TrimEndSeconds: req.TrackDuration,
	}, nil
}

// LinearToDb converts a linear gain to decibels. A linear gain of 0 yields
// -Inf, which the filter builder renders as effective silence.
func LinearToDb(linear float64) float64 {
	return decibelsPerDecade * math.Log10(linear)
}

// DecomposeTempo splits the requested stretch factor into a chain of steps
// each within the engine's single-step range, whose product equals the
// requested factor. A factor of 3.0 becomes [2.0, 1.5].
func DecomposeTempo(factor float64) []float64 {
	var chain []float64

	remaining := factor

	for remaining > maxTempoStep {
		chain = append(chain, maxTempoStep)
		remaining /= maxTempoStep
	}

	for remaining < minTempoStep {
		chain = append(chain, minTempoStep)
		remaining /= minTempoStep
	}

	if len(chain) == 0 || math.Abs(remaining-1.0) > identityTolerance {
		chain = append(chain, remaining)
	}

	return chain
}
