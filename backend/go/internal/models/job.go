package models

import "time"

// JobRequest is published to the generation workers when a job is submitted.
type JobRequest struct {
	JobID       string    `json:"jobId"`
	Prompt      string    `json:"prompt"`
	Audiences   []string  `json:"audiences"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ChangeKind says what a reconciled stream message did to a presentation.
type ChangeKind string

const (
	ChangeSlidesReplaced ChangeKind = "slides_replaced"
	ChangeSlideUpdated   ChangeKind = "slide_updated"
	ChangeDebug          ChangeKind = "debug"
)

// Change is pushed to live clients after a stream message is applied.
type Change struct {
	PresentationID string     `json:"presentationId"`
	Kind           ChangeKind `json:"kind"`
	SlideIDs       []string   `json:"slideIds,omitempty"`
	Skipped        []string   `json:"skipped,omitempty"`
	At             time.Time  `json:"at"`
}

// DebugEvent is an unrecognised stream payload kept for observability.
// JSON holds the decoded payload when it parsed, Raw the text otherwise.
type DebugEvent struct {
	PresentationID string      `json:"presentationId"`
	JSON           interface{} `json:"json,omitempty"`
	Raw            string      `json:"raw,omitempty"`
	ReceivedAt     time.Time   `json:"receivedAt"`
}
