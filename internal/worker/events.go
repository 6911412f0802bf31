package worker

import (
	"time"

	"github.com/affirmix/mix-service/internal/core"
)

// EventHeader carries the identity and timing of one workflow event.
type EventHeader struct {
	WorkflowID string    `json:"workflow_id"`
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// MixJobEvent asks the worker to render one mix. The request payload is the
// same structure the HTTP API accepts.
type MixJobEvent struct {
	Header  EventHeader     `json:"header"`
	JobID   string          `json:"job_id"`
	Request core.MixRequest `json:"request"`
}

// MixCompletedEvent is the worker's reply to a mix job. AudioKey names the
// rendered MP3 in the object store when Status is completed; Error carries
// the failure description when it is failed.
type MixCompletedEvent struct {
	Header   EventHeader `json:"header"`
	JobID    string      `json:"job_id"`
	Status   string      `json:"status"`
	AudioKey string      `json:"audio_key,omitempty"`
	Error    string      `json:"error,omitempty"`
}
