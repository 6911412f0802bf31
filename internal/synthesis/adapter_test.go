// Package synthesis_test tests the speech synthesis adapter and provider
// client.
package synthesis_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/logger"

	"github.com/affirmix/mix-service/internal/core"
	"github.com/affirmix/mix-service/internal/synthesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockUpload = errors.New("mock upload error")

type mockObjectStore struct {
	uploadShouldFail bool
	uploadedKeys     []string
	uploadedData     [][]byte
}

func (m *mockObjectStore) Download(_ context.Context, _ string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	if m.uploadShouldFail {
		return errMockUpload
	}

	m.uploadedKeys = append(m.uploadedKeys, key)
	m.uploadedData = append(m.uploadedData, data)

	return nil
}

// newProviderServer returns a synthesis-service stub that answers every
// request with the given audio payload and records the texts it received.
func newProviderServer(t *testing.T, audio []byte, received *[]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req synthesis.Request

			err := json.NewDecoder(r.Body).Decode(&req)
			require.NoError(t, err)

			*received = append(*received, req.Text)

			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write(audio)
		}),
	)
}

func newTestAdapter(
	t *testing.T,
	serverURL string,
	store core.ObjectStore,
	maxChars int,
) *synthesis.Adapter {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "synthesis-test.log")
	require.NoError(t, err)

	client := synthesis.NewClient(serverURL, 5*time.Second)

	return synthesis.NewAdapter(client, store, synthesis.Options{
		Voice:              "serene",
		Language:           "en",
		Temperature:        0.7,
		MaxCharsPerRequest: maxChars,
	}, testLogger)
}

func TestSynthesize_SingleChunk(t *testing.T) {
	t.Parallel()

	var received []string

	server := newProviderServer(t, []byte("audio bytes"), &received)
	defer server.Close()

	store := &mockObjectStore{}
	adapter := newTestAdapter(t, server.URL, store, 1000)

	ref, err := adapter.Synthesize(context.Background(), "I am enough")
	require.NoError(t, err)

	require.Len(t, store.uploadedKeys, 1)
	assert.Equal(t, core.StoreRefPrefix+store.uploadedKeys[0], ref)
	assert.Equal(t, []byte("audio bytes"), store.uploadedData[0])

	// Normalization appends closing punctuation.
	require.Len(t, received, 1)
	assert.Equal(t, "I am enough.", received[0])
}

func TestSynthesize_ChunksLongTextInOrder(t *testing.T) {
	t.Parallel()

	var received []string

	server := newProviderServer(t, []byte("audio"), &received)
	defer server.Close()

	store := &mockObjectStore{}
	adapter := newTestAdapter(t, server.URL, store, 24)

	text := "every day I grow calmer and my breathing slows down"

	ref, err := adapter.Synthesize(context.Background(), text)
	require.NoError(t, err)

	refs := strings.Split(ref, core.RefSeparator)
	require.Greater(t, len(refs), 1, "long text must produce multiple references")
	assert.Len(t, store.uploadedKeys, len(refs))

	for _, chunk := range received {
		assert.LessOrEqual(t, len(chunk), 24)
	}

	joined := strings.Join(received, " ")
	assert.Equal(t, "every day I grow calmer and my breathing slows down.", joined)
}

func TestSynthesize_EmptyTextFails(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{}
	adapter := newTestAdapter(t, "http://127.0.0.1:0", store, 1000)

	_, err := adapter.Synthesize(context.Background(), "   ")
	require.ErrorIs(t, err, core.ErrSynthesis)
	assert.Empty(t, store.uploadedKeys)
}

func TestSynthesize_ProviderFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"detail":"model overloaded"}`, http.StatusServiceUnavailable)
		}),
	)
	defer server.Close()

	store := &mockObjectStore{}
	adapter := newTestAdapter(t, server.URL, store, 1000)

	_, err := adapter.Synthesize(context.Background(), "I am calm")
	require.ErrorIs(t, err, core.ErrSynthesis)
	assert.Empty(t, store.uploadedKeys)
}

func TestSynthesize_EmptyAudioFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "audio/mpeg")
			// No body: provider returned no audio stream.
		}),
	)
	defer server.Close()

	store := &mockObjectStore{}
	adapter := newTestAdapter(t, server.URL, store, 1000)

	_, err := adapter.Synthesize(context.Background(), "I am calm")
	require.ErrorIs(t, err, core.ErrSynthesis)
}

func TestSynthesize_UploadFailureKeepsEarlierUploads(t *testing.T) {
	t.Parallel()

	var received []string

	server := newProviderServer(t, []byte("audio"), &received)
	defer server.Close()

	store := &mockObjectStore{uploadShouldFail: true}
	adapter := newTestAdapter(t, server.URL, store, 1000)

	_, err := adapter.Synthesize(context.Background(), "I am calm")
	require.ErrorIs(t, err, core.ErrSynthesis)
}
