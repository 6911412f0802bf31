package ffmpeg

import (
	"fmt"
	"math"
	"strings"

	"github.com/affirmix/mix-service/internal/core"
)

// maxLoopBuffer is the per-loop sample buffer passed to the engine's loop
// filter; it must exceed the longest speech segment at 48 kHz.
const maxLoopBuffer = 2147483647

// unboundedLoop instructs the engine to loop an input indefinitely. The
// composed duration is bounded by the speech loop count and the final trim.
const unboundedLoop = -1

// Error message formats.
const (
	errFmtNonFiniteValue = "%w: non-finite value %q in filter graph"
	errFmtLoopCount      = "%w: loop count must be positive, got %d"
)

// BuildMixFilter renders the filter graph for one mix operation: speech
// tempo chain, speech gain, speech loop expansion, backing gain, a
// two-input mix with explicit per-input weights, time-base reset, and a
// trim to the target duration.
//
// Every numeric embedded in the graph is checked for finiteness first, so a
// value that slipped past request validation can never corrupt the engine
// command line.
func BuildMixFilter(plan core.MixPlan) (string, error) {
	err := validatePlanValues(plan)
	if err != nil {
		return "", err
	}

	var graph strings.Builder

	graph.WriteString("[0:a]")

	for _, step := range plan.TempoChain {
		fmt.Fprintf(&graph, "atempo=%.6f,", step)
	}

	fmt.Fprintf(
		&graph,
		"%s,aloop=loop=%d:size=%d[voice];",
		volumeExpr(plan.SpeechGainDb),
		plan.LoopCount,
		maxLoopBuffer,
	)

	fmt.Fprintf(
		&graph,
		"[1:a]aloop=loop=%d:size=%d,%s[bed];",
		unboundedLoop,
		maxLoopBuffer,
		volumeExpr(plan.BackingGainDb),
	)

	fmt.Fprintf(
		&graph,
		"[voice][bed]amix=inputs=2:duration=first:weights=%.6f %.6f,"+
			"asetpts=N/SR/TB,atrim=0:%.6f[mix]",
		plan.SpeechWeight,
		plan.BackingWeight,
		plan.TrimEndSeconds,
	)

	return graph.String(), nil
}

// volumeExpr renders a gain filter term. A gain of -Inf dB (linear 0) is not
// expressible in decibels, so it is rendered as a zero linear multiplier,
// which the engine treats as silence.
func volumeExpr(gainDb float64) string {
	if math.IsInf(gainDb, -1) {
		return "volume=0"
	}

	return fmt.Sprintf("volume=%.3fdB", gainDb)
}

// validatePlanValues rejects any plan value that cannot be embedded in a
// textual engine command. Gains are exempt from the finiteness check because
// -Inf is a documented representation of silence.
func validatePlanValues(plan core.MixPlan) error {
	if plan.LoopCount < 1 {
		return fmt.Errorf(errFmtLoopCount, core.ErrPlan, plan.LoopCount)
	}

	values := map[string]float64{
		"speechWeight":  plan.SpeechWeight,
		"backingWeight": plan.BackingWeight,
		"trimEnd":       plan.TrimEndSeconds,
	}

	for name, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf(errFmtNonFiniteValue, core.ErrPlan, name)
		}
	}

	for _, step := range plan.TempoChain {
		if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
			return fmt.Errorf(errFmtNonFiniteValue, core.ErrPlan, "tempoStep")
		}
	}

	if math.IsNaN(plan.SpeechGainDb) || math.IsInf(plan.SpeechGainDb, 1) {
		return fmt.Errorf(errFmtNonFiniteValue, core.ErrPlan, "speechGainDb")
	}

	if math.IsNaN(plan.BackingGainDb) || math.IsInf(plan.BackingGainDb, 1) {
		return fmt.Errorf(errFmtNonFiniteValue, core.ErrPlan, "backingGainDb")
	}

	return nil
}
