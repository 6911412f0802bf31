// Package worker provides a NATS worker that processes mix jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/affirmix/mix-service/internal/core"
	"github.com/affirmix/mix-service/internal/jobs"
)

// handleMessageTimeout bounds one full mix job, synthesis and rendering
// included.
const handleMessageTimeout = 10 * time.Minute

// resultExt is the encoding of every rendered mix artifact.
const resultExt = ".mp3"

// Mixer runs one mix operation end to end.
type Mixer interface {
	Mix(ctx context.Context, req core.MixRequest) ([]byte, error)
}

// NatsWorker listens for mix jobs on a NATS subject, renders them, and
// replies with the object-store key of the finished audio.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	jobStore       core.JobStore
	mixer          Mixer
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	jobStore core.JobStore,
	mixer Mixer,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		jobStore:       jobStore,
		mixer:          mixer,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event MixJobEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal mix job event: %v", err)

		return
	}

	w.setStatus(ctx, event.JobID, jobs.StatusProcessing)

	audioKey, processErr := w.processMixJob(ctx, &event)
	if processErr != nil {
		w.log.Error(
			"Failed to process mix job %s (workflow %s): %v",
			event.JobID,
			event.Header.WorkflowID,
			processErr,
		)
		w.setStatus(ctx, event.JobID, jobs.StatusFailed)
		w.publishReply(msg, &MixCompletedEvent{
			Header:   event.Header,
			JobID:    event.JobID,
			Status:   jobs.StatusFailed,
			AudioKey: "",
			Error:    processErr.Error(),
		})

		return
	}

	w.setStatus(ctx, event.JobID, jobs.StatusCompleted)
	w.publishReply(msg, &MixCompletedEvent{
		Header:   event.Header,
		JobID:    event.JobID,
		Status:   jobs.StatusCompleted,
		AudioKey: audioKey,
		Error:    "",
	})
}

// processMixJob renders the mix and persists the result to the object
// store, returning its key.
func (w *NatsWorker) processMixJob(
	ctx context.Context,
	event *MixJobEvent,
) (string, error) {
	audioData, mixErr := w.mixer.Mix(ctx, event.Request)
	if mixErr != nil {
		return "", fmt.Errorf("failed to render mix: %w", mixErr)
	}

	audioKey := uuid.NewString() + resultExt

	uploadErr := w.store.Upload(ctx, audioKey, audioData)
	if uploadErr != nil {
		return "", fmt.Errorf(
			"failed to upload mixed audio for key '%s': %w", audioKey, uploadErr,
		)
	}

	return audioKey, nil
}

// setStatus records a job lifecycle transition. Status bookkeeping never
// fails the job itself.
func (w *NatsWorker) setStatus(ctx context.Context, jobID, status string) {
	if jobID == "" {
		return
	}

	err := w.jobStore.Set(ctx, jobID, status)
	if err != nil {
		w.log.Warn("Failed to record status '%s' for job %s: %v", status, jobID, err)
	}
}

// publishReply marshals and responds with the MixCompletedEvent.
func (w *NatsWorker) publishReply(msg *nats.Msg, replyEvent *MixCompletedEvent) {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		w.log.Error(
			"Failed to marshal reply for workflow %s: %v",
			replyEvent.Header.WorkflowID,
			err,
		)

		return
	}

	err = msg.Respond(replyData)
	if err != nil {
		w.log.Error(
			"Failed to publish reply for workflow %s: %v",
			replyEvent.Header.WorkflowID,
			err,
		)
	}
}
