// Package media resolves audio references into local temporary files. A
// reference is inline-encoded data, an object-store key, or a fetchable URL;
// the fetcher is uniform for speech output and backing-track input.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/affirmix/mix-service/internal/core"
	"github.com/affirmix/mix-service/internal/fsutil"
)

// defaultAudioExt is used when the reference carries no recognizable audio
// extension of its own.
const defaultAudioExt = ".mp3"

// base64Marker separates the media-type prelude of an inline reference from
// its encoded payload.
const base64Marker = "base64,"

// filePermissions for written artifacts.
const filePermissions = 0o600

// Error message formats.
const (
	errFmtBadInlineData = "%w: inline audio reference carries no base64 payload"
	errFmtDecodeFailed  = "%w: failed to decode inline audio: %v"
	errFmtRequestFailed = "%w: request for %q failed: %v"
	errFmtBadStatus     = "%w: unexpected status %d fetching %q"
	errFmtStoreFailed   = "%w: failed to download stored object %q: %v"
	errFmtWriteFailed   = "failed to write audio artifact %q: %w"
)

// Fetcher resolves audio references into uniquely named temporary files.
type Fetcher struct {
	httpClient *http.Client
	store      core.ObjectStore
	tmpDir     string
	log        *logger.Logger
}

// NewFetcher creates a Fetcher writing artifacts under tmpDir. The timeout
// applies to every network fetch.
func NewFetcher(
	store core.ObjectStore,
	tmpDir string,
	timeout time.Duration,
	log *logger.Logger,
) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		tmpDir:     tmpDir,
		log:        log,
	}
}

// Fetch resolves ref into a local temporary file whose name embeds prefix
// and a time-based uniqueness token. The caller becomes responsible for
// deleting the returned path.
func (f *Fetcher) Fetch(ctx context.Context, ref, prefix string) (string, error) {
	var (
		data []byte
		err  error
	)

	switch {
	case strings.HasPrefix(ref, core.InlineAudioPrefix):
		data, err = decodeInline(ref)
	case strings.HasPrefix(ref, core.StoreRefPrefix):
		data, err = f.downloadStored(ctx, ref)
	default:
		data, err = f.downloadURL(ctx, ref)
	}

	if err != nil {
		return "", err
	}

	localPath := fsutil.TempFileName(f.tmpDir, prefix, extensionFor(ref))

	writeErr := os.WriteFile(localPath, data, filePermissions)
	if writeErr != nil {
		return "", fmt.Errorf(errFmtWriteFailed, localPath, writeErr)
	}

	f.log.Info("Fetched audio reference into %s (%d bytes)", localPath, len(data))

	return localPath, nil
}

// decodeInline extracts and decodes the base64 payload of an inline
// reference such as "data:audio/mpeg;base64,...".
func decodeInline(ref string) ([]byte, error) {
	_, payload, found := strings.Cut(ref, base64Marker)
	if !found {
		return nil, fmt.Errorf(errFmtBadInlineData, core.ErrFetch)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeFailed, core.ErrFetch, err)
	}

	return data, nil
}

func (f *Fetcher) downloadStored(ctx context.Context, ref string) ([]byte, error) {
	key := strings.TrimPrefix(ref, core.StoreRefPrefix)

	data, err := f.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf(errFmtStoreFailed, core.ErrFetch, key, err)
	}

	return data, nil
}

func (f *Fetcher) downloadURL(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, core.ErrFetch, ref, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, core.ErrFetch, ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf(errFmtBadStatus, core.ErrFetch, resp.StatusCode, ref)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, core.ErrFetch, ref, err)
	}

	return data, nil
}

// extensionFor picks a file extension for the artifact: the reference's own
// extension when it is a recognizable audio type, the default otherwise.
func extensionFor(ref string) string {
	if strings.HasPrefix(ref, core.InlineAudioPrefix) {
		return defaultAudioExt
	}

	candidate := ref
	if parsed, err := url.Parse(ref); err == nil && parsed.Path != "" {
		candidate = parsed.Path
	}

	if fsutil.IsValidAudioFile(candidate) {
		return strings.ToLower(path.Ext(candidate))
	}

	return defaultAudioExt
}
