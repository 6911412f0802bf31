package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/affirmix/mix-service/internal/core"
)

// DefaultMaxCharsPerRequest bounds one provider call when the configuration
// does not specify a limit.
const DefaultMaxCharsPerRequest = 3000

// artifactExt is the encoding of every persisted synthesis artifact.
const artifactExt = ".mp3"

// Error message formats.
const (
	errFmtEmptyText     = "%w: nothing to synthesize after normalization"
	errFmtChunkFailed   = "%w: chunk %d of %d: %v"
	errFmtUploadFailed  = "%w: failed to persist chunk %d audio: %v"
	logFmtChunkUploaded = "Synthesized chunk %d/%d into %s (%d bytes)"
)

// Options configures the synthesis adapter's voice parameters and chunking
// limit.
type Options struct {
	Voice              string
	Language           string
	Temperature        float64
	MaxCharsPerRequest int
}

// Adapter implements core.SpeechSynthesizer: it splits text under the
// provider's per-call character limit, synthesizes each chunk, persists the
// audio to durable storage, and returns the ordered references joined with
// commas. Partial uploads from earlier chunks are not rolled back when a
// later chunk fails.
type Adapter struct {
	client  *Client
	store   core.ObjectStore
	options Options
	log     *logger.Logger
}

// NewAdapter creates an Adapter around the given provider client and store.
func NewAdapter(
	client *Client,
	store core.ObjectStore,
	options Options,
	log *logger.Logger,
) *Adapter {
	if options.MaxCharsPerRequest <= 0 {
		options.MaxCharsPerRequest = DefaultMaxCharsPerRequest
	}

	return &Adapter{
		client:  client,
		store:   store,
		options: options,
		log:     log,
	}
}

// Synthesize turns text into one or more persisted audio artifacts and
// returns their ordered store references joined with commas.
func (a *Adapter) Synthesize(ctx context.Context, text string) (string, error) {
	normalized := normalizeText(text)
	if normalized == "" {
		return "", fmt.Errorf(errFmtEmptyText, core.ErrSynthesis)
	}

	chunks := chunkText(normalized, a.options.MaxCharsPerRequest)
	refs := make([]string, 0, len(chunks))

	for chunkIndex, chunk := range chunks {
		audioData, err := a.client.GenerateSpeech(ctx, Request{
			Text:        chunk,
			Voice:       a.options.Voice,
			Language:    a.options.Language,
			Temperature: a.options.Temperature,
		})
		if err != nil {
			return "", fmt.Errorf(
				errFmtChunkFailed,
				core.ErrSynthesis,
				chunkIndex+1,
				len(chunks),
				err,
			)
		}

		key := uuid.NewString() + artifactExt

		uploadErr := a.store.Upload(ctx, key, audioData)
		if uploadErr != nil {
			return "", fmt.Errorf(
				errFmtUploadFailed,
				core.ErrSynthesis,
				chunkIndex+1,
				uploadErr,
			)
		}

		a.log.Info(logFmtChunkUploaded, chunkIndex+1, len(chunks), key, len(audioData))

		refs = append(refs, core.StoreRefPrefix+key)
	}

	return strings.Join(refs, core.RefSeparator), nil
}
