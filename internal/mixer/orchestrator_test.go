// Package mixer_test tests the pipeline orchestrator with mocked
// collaborators.
package mixer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/affirmix/mix-service/internal/core"
	"github.com/affirmix/mix-service/internal/mixer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSynthesizer struct {
	ref           string
	err           error
	receivedTexts []string
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text string) (string, error) {
	m.receivedTexts = append(m.receivedTexts, text)

	if m.err != nil {
		return "", m.err
	}

	return m.ref, nil
}

type mockFetcher struct {
	dir          string
	err          error
	fetchedRefs  []string
	fetchedKinds []string
}

func (m *mockFetcher) Fetch(
	_ context.Context,
	ref string,
	prefix string,
) (string, error) {
	m.fetchedRefs = append(m.fetchedRefs, ref)
	m.fetchedKinds = append(m.fetchedKinds, prefix)

	if m.err != nil {
		return "", m.err
	}

	path := filepath.Join(m.dir, prefix+"-"+uuid.NewString()+".mp3")

	writeErr := os.WriteFile(path, []byte("fetched:"+ref), 0o600)
	if writeErr != nil {
		return "", writeErr
	}

	return path, nil
}

type mockEngine struct {
	mixErr     error
	silenceErr error
	concatErr  error

	output []byte

	mixSpeechPaths   []string
	mixBackingPaths  []string
	mixPlans         []core.MixPlan
	silenceDurations []float64
	concatInputs     [][]string
}

func (m *mockEngine) Available(_ context.Context) error {
	return nil
}

func (m *mockEngine) Mix(
	_ context.Context,
	speechPath, backingPath, outputPath string,
	plan core.MixPlan,
) error {
	m.mixSpeechPaths = append(m.mixSpeechPaths, speechPath)
	m.mixBackingPaths = append(m.mixBackingPaths, backingPath)
	m.mixPlans = append(m.mixPlans, plan)

	if m.mixErr != nil {
		return m.mixErr
	}

	return os.WriteFile(outputPath, m.output, 0o600)
}

func (m *mockEngine) Silence(
	_ context.Context,
	outputPath string,
	durationSeconds float64,
) error {
	m.silenceDurations = append(m.silenceDurations, durationSeconds)

	if m.silenceErr != nil {
		return m.silenceErr
	}

	return os.WriteFile(outputPath, []byte("silence"), 0o600)
}

func (m *mockEngine) Concat(
	_ context.Context,
	inputPaths []string,
	outputPath string,
) error {
	m.concatInputs = append(m.concatInputs, inputPaths)

	if m.concatErr != nil {
		return m.concatErr
	}

	return os.WriteFile(outputPath, []byte("joined"), 0o600)
}

type testPipeline struct {
	orchestrator *mixer.Orchestrator
	synthesizer  *mockSynthesizer
	fetcher      *mockFetcher
	engine       *mockEngine
	tempDir      string
}

func newTestPipeline(t *testing.T, options mixer.Options) *testPipeline {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "mixer-test.log")
	require.NoError(t, err)

	tempDir := t.TempDir()
	options.TempDir = tempDir

	synthesizer := &mockSynthesizer{ref: core.StoreRefPrefix + "speech.mp3"}
	fetcher := &mockFetcher{dir: tempDir}
	engine := &mockEngine{output: []byte("mp3 payload")}

	return &testPipeline{
		orchestrator: mixer.New(synthesizer, fetcher, engine, options, testLogger),
		synthesizer:  synthesizer,
		fetcher:      fetcher,
		engine:       engine,
		tempDir:      tempDir,
	}
}

func (p *testPipeline) assertNoLeftoverArtifacts(t *testing.T) {
	t.Helper()

	entries, err := os.ReadDir(p.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "every temp artifact must be removed")
}

func validRequest() core.MixRequest {
	return core.MixRequest{
		Text:                 "I am calm",
		SelectedBackingTrack: "https://cdn.example.com/tracks/rain.mp3",
		TTSVolume:            1.0,
		BackingTrackVolume:   0.5,
		TrackDuration:        900,
		TTSSpeed:             1.0,
		TTSDuration:          30,
	}
}

func TestMix_Success(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})

	data, err := pipeline.orchestrator.Mix(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 payload"), data)

	require.Len(t, pipeline.fetcher.fetchedRefs, 2)
	assert.Equal(t, core.StoreRefPrefix+"speech.mp3", pipeline.fetcher.fetchedRefs[0])
	assert.Equal(t, "https://cdn.example.com/tracks/rain.mp3", pipeline.fetcher.fetchedRefs[1])

	require.Len(t, pipeline.engine.mixPlans, 1)
	assert.Equal(t, 30, pipeline.engine.mixPlans[0].LoopCount)
	assert.Empty(t, pipeline.engine.silenceDurations)

	pipeline.assertNoLeftoverArtifacts(t)
}

func TestMix_RejectsInvalidRequestBeforeAnyExternalCall(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})

	req := validRequest()
	req.TTSSpeed = 5.0

	_, err := pipeline.orchestrator.Mix(context.Background(), req)
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "ttsSpeed")

	assert.Empty(t, pipeline.synthesizer.receivedTexts)
	assert.Empty(t, pipeline.fetcher.fetchedRefs)
	assert.Empty(t, pipeline.engine.mixPlans)
}

func TestMix_SentinelBackingTrackSynthesizesSilence(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})

	req := validRequest()
	req.SelectedBackingTrack = core.NoBackingTrack

	_, err := pipeline.orchestrator.Mix(context.Background(), req)
	require.NoError(t, err)

	// Only the speech reference is fetched; the backing side is generated.
	require.Len(t, pipeline.fetcher.fetchedRefs, 1)
	assert.Equal(t, []string{"speech"}, pipeline.fetcher.fetchedKinds)

	require.Len(t, pipeline.engine.silenceDurations, 1)
	assert.InDelta(t, 900.0, pipeline.engine.silenceDurations[0], 1e-9)

	pipeline.assertNoLeftoverArtifacts(t)
}

func TestMix_InlineAudioSkipsSynthesis(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})

	req := validRequest()
	req.Text = "data:audio/mpeg;base64,c3BlZWNo"

	_, err := pipeline.orchestrator.Mix(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, pipeline.synthesizer.receivedTexts)

	// The data URI is fetched whole despite its comma: one speech fetch,
	// one backing fetch, and no join step.
	require.Len(t, pipeline.fetcher.fetchedRefs, 2)
	assert.Equal(t, req.Text, pipeline.fetcher.fetchedRefs[0])
	assert.Equal(t, req.SelectedBackingTrack, pipeline.fetcher.fetchedRefs[1])
	assert.Empty(t, pipeline.engine.concatInputs)

	pipeline.assertNoLeftoverArtifacts(t)
}

func TestMix_MultipleSpeechReferencesAreJoined(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})
	pipeline.synthesizer.ref = strings.Join([]string{
		core.StoreRefPrefix + "part-1.mp3",
		core.StoreRefPrefix + "part-2.mp3",
	}, core.RefSeparator)

	_, err := pipeline.orchestrator.Mix(context.Background(), validRequest())
	require.NoError(t, err)

	// Two speech segments plus the backing track.
	require.Len(t, pipeline.fetcher.fetchedRefs, 3)

	require.Len(t, pipeline.engine.concatInputs, 1)
	assert.Len(t, pipeline.engine.concatInputs[0], 2)

	// The mix consumes the joined file, not an individual segment.
	require.Len(t, pipeline.engine.mixSpeechPaths, 1)
	assert.Contains(t, pipeline.engine.mixSpeechPaths[0], "speech-joined")

	pipeline.assertNoLeftoverArtifacts(t)
}

func TestMix_PadsTextToSafetyFloor(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})

	req := validRequest()

	_, err := pipeline.orchestrator.Mix(context.Background(), req)
	require.NoError(t, err)

	// ceil(900 / 30) lands exactly on the floor, so one extra repetition
	// is added to exceed it.
	require.Len(t, pipeline.synthesizer.receivedTexts, 1)
	assert.Equal(t, 31, strings.Count(pipeline.synthesizer.receivedTexts[0], "I am calm"))
}

func TestMix_ShortSafetyFloorSendsTextOnce(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{SafetyFloorSeconds: 10})

	_, err := pipeline.orchestrator.Mix(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, pipeline.synthesizer.receivedTexts, 1)
	assert.Equal(t, "I am calm", pipeline.synthesizer.receivedTexts[0])
}

func TestMix_EngineFailureCleansUpArtifacts(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})
	pipeline.engine.mixErr = core.ErrEngine

	_, err := pipeline.orchestrator.Mix(context.Background(), validRequest())
	require.ErrorIs(t, err, core.ErrEngine)

	pipeline.assertNoLeftoverArtifacts(t)
}

func TestMix_FetchFailurePropagates(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})
	pipeline.fetcher.err = core.ErrFetch

	_, err := pipeline.orchestrator.Mix(context.Background(), validRequest())
	require.ErrorIs(t, err, core.ErrFetch)

	pipeline.assertNoLeftoverArtifacts(t)
}

func TestMix_SynthesisFailurePropagates(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, mixer.Options{})
	pipeline.synthesizer.err = core.ErrSynthesis

	_, err := pipeline.orchestrator.Mix(context.Background(), validRequest())
	require.ErrorIs(t, err, core.ErrSynthesis)

	assert.Empty(t, pipeline.fetcher.fetchedRefs)
	pipeline.assertNoLeftoverArtifacts(t)
}
