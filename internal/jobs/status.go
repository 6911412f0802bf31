// Package jobs tracks the lifecycle status of asynchronous mix jobs in a
// NATS JetStream key-value bucket, keyed by job ID.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/affirmix/mix-service/internal/core"
)

// Job lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Error message formats.
const (
	errFmtCreateBucket = "failed to create job status bucket '%s': %w"
	errFmtBindBucket   = "failed to bind to job status bucket '%s': %w"
	errFmtPutStatus    = "failed to record status for job '%s': %w"
	errFmtGetStatus    = "failed to look up job '%s': %w"
	errFmtJobMissing   = "%w: job '%s'"
)

// StatusStore implements core.JobStore on a JetStream key-value bucket.
type StatusStore struct {
	bucket string
	kv     nats.KeyValue
}

// NewStatusStore creates the bucket if needed, or binds to an existing one,
// and returns a StatusStore backed by it.
func NewStatusStore(
	jetstreamContext nats.JetStreamContext,
	bucketName string,
) (*StatusStore, error) {
	keyValue, createErr := jetstreamContext.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucketName,
		Description: "Mix job lifecycle statuses.",
	})
	if createErr != nil {
		var bindErr error

		keyValue, bindErr = jetstreamContext.KeyValue(bucketName)
		if bindErr != nil {
			return nil, fmt.Errorf(errFmtCreateBucket, bucketName, createErr)
		}
	}

	return &StatusStore{
		bucket: bucketName,
		kv:     keyValue,
	}, nil
}

// Set records the current status of a job, overwriting any previous value.
func (s *StatusStore) Set(_ context.Context, jobID, status string) error {
	_, putErr := s.kv.Put(jobID, []byte(status))
	if putErr != nil {
		return fmt.Errorf(errFmtPutStatus, jobID, putErr)
	}

	return nil
}

// Get returns the last recorded status of a job. An unknown job ID yields
// core.ErrJobNotFound.
func (s *StatusStore) Get(_ context.Context, jobID string) (string, error) {
	entry, getErr := s.kv.Get(jobID)
	if getErr != nil {
		if errors.Is(getErr, nats.ErrKeyNotFound) {
			return "", fmt.Errorf(errFmtJobMissing, core.ErrJobNotFound, jobID)
		}

		return "", fmt.Errorf(errFmtGetStatus, jobID, getErr)
	}

	return string(entry.Value()), nil
}
