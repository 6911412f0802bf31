// Package objectstore persists audio artifacts in a NATS JetStream object
// store bucket. Synthesized speech chunks are uploaded here by the synthesis
// adapter and resolved back to bytes by the media fetcher.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Error message formats.
const (
	errFmtCreateBucket = "failed to create audio bucket '%s': %w"
	errFmtBindBucket   = "failed to bind to existing audio bucket '%s': %w"
	errFmtGetObject    = "failed to get artifact '%s' from bucket '%s': %w"
	errFmtReadObject   = "failed to read artifact '%s': %w"
	errFmtCloseObject  = "failed to close artifact '%s': %w"
	errFmtPutObject    = "failed to store artifact '%s' in bucket '%s': %w"
)

// Store implements core.ObjectStore on a NATS JetStream object store bucket.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket if it does not exist, or binds to it if it does,
// and returns a Store backed by it.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	store, createErr := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Audio artifacts for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if createErr != nil {
		if !errors.Is(createErr, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(errFmtCreateBucket, bucketName, createErr)
		}

		var bindErr error

		store, bindErr = jetstreamContext.ObjectStore(bucketName)
		if bindErr != nil {
			return nil, fmt.Errorf(errFmtBindBucket, bucketName, bindErr)
		}
	}

	return &Store{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves a stored artifact's bytes.
func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	obj, getErr := s.store.Get(key)
	if getErr != nil {
		return nil, fmt.Errorf(errFmtGetObject, key, s.bucket, getErr)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf(errFmtReadObject, key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf(errFmtCloseObject, key, closeErr)
	}

	return data, nil
}

// Upload stores an artifact under the given key, replacing any previous
// object with the same name.
func (s *Store) Upload(_ context.Context, key string, data []byte) error {
	_, putErr := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if putErr != nil {
		return fmt.Errorf(errFmtPutObject, key, s.bucket, putErr)
	}

	return nil
}
