package core

import (
	"fmt"
	"math"
	"strings"
)

// NoBackingTrack is the reserved sentinel for SelectedBackingTrack meaning
// the caller picked no backing track; silence is generated instead.
const NoBackingTrack = "present"

// InlineAudioPrefix marks a reference (or the text field itself) as
// inline-encoded audio data rather than text or a fetchable URL.
const InlineAudioPrefix = "data:"

// StoreRefPrefix marks a reference as an object-store key. The synthesis
// adapter emits these and the media fetcher resolves them.
const StoreRefPrefix = "store://"

// RefSeparator joins the ordered artifact references of a multi-chunk
// synthesis result into a single string.
const RefSeparator = ","

// Speed factor bounds accepted for the speech track.
const (
	MinSpeechSpeed = 0.5
	MaxSpeechSpeed = 4.0
)

// MixRequest is the caller-supplied description of one mix operation. It is
// immutable once received.
type MixRequest struct {
	// Text is the affirmation text to synthesize, or inline-encoded audio
	// data when the caller pre-supplies speech audio.
	Text string `json:"text"`

	// SelectedBackingTrack is a fetchable URL, inline-encoded audio data,
	// or the NoBackingTrack sentinel.
	SelectedBackingTrack string `json:"selectedBackingTrack"`

	// TTSVolume and BackingTrackVolume are linear gains, typically (0, 1].
	// A gain of 0 means silence for that source.
	TTSVolume          float64 `json:"ttsVolume"`
	BackingTrackVolume float64 `json:"backingTrackVolume"`

	// TrackDuration is the target total output length in seconds.
	TrackDuration float64 `json:"trackDuration"`

	// TTSSpeed is the speech playback multiplier, within [0.5, 4.0].
	TTSSpeed float64 `json:"ttsSpeed"`

	// TTSDuration is the duration in seconds of one speech unit before
	// speed adjustment.
	TTSDuration float64 `json:"ttsDuration"`
}

// MixPlan holds the derived engine parameters for one mix operation. It is
// computed once per request and discarded after the engine invocation.
type MixPlan struct {
	// TempoChain is the sequence of per-step stretch factors whose product
	// equals the requested speech speed. Each step is within the engine's
	// single-step range.
	TempoChain []float64

	// LoopCount is how many times the speed-adjusted speech segment must
	// repeat to cover the target duration.
	LoopCount int

	// SpeechGainDb and BackingGainDb are 20*log10 of the linear gains.
	// A linear gain of 0 yields -Inf, rendered as effective silence.
	SpeechGainDb  float64
	BackingGainDb float64

	// SpeechWeight and BackingWeight are the original linear gains, used
	// as explicit per-input mix weights.
	SpeechWeight  float64
	BackingWeight float64

	// TrimEndSeconds bounds the composed output to the requested duration.
	TrimEndSeconds float64
}

// HasInlineAudio reports whether the request's text field carries
// pre-encoded audio instead of text to synthesize.
func (r MixRequest) HasInlineAudio() bool {
	return strings.HasPrefix(r.Text, InlineAudioPrefix)
}

// Validate checks the request against the pipeline's input invariants and
// returns an error wrapping ErrValidation that names every offending field.
func (r MixRequest) Validate() error {
	var offending []string

	if strings.TrimSpace(r.Text) == "" {
		offending = append(offending, "text")
	}

	if r.SelectedBackingTrack == "" {
		offending = append(offending, "selectedBackingTrack")
	}

	offending = append(offending, r.validateNumericFields()...)

	if len(offending) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(offending, ", "))
	}

	return nil
}

// validateNumericFields collects the names of numeric fields that are
// non-finite, negative, or outside their documented ranges.
func (r MixRequest) validateNumericFields() []string {
	var offending []string

	numericFields := []struct {
		name  string
		value float64
	}{
		{"ttsVolume", r.TTSVolume},
		{"backingTrackVolume", r.BackingTrackVolume},
		{"trackDuration", r.TrackDuration},
		{"ttsSpeed", r.TTSSpeed},
		{"ttsDuration", r.TTSDuration},
	}

	for _, field := range numericFields {
		if !isFiniteNonNegative(field.value) {
			offending = append(offending, field.name)
		}
	}

	if isFiniteNonNegative(r.TTSSpeed) &&
		(r.TTSSpeed < MinSpeechSpeed || r.TTSSpeed > MaxSpeechSpeed) {
		offending = append(offending, "ttsSpeed")
	}

	if r.TTSDuration > r.TrackDuration {
		offending = append(offending, "ttsDuration")
	}

	return offending
}

func isFiniteNonNegative(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value >= 0
}
