package model

import "time"

// EventType identifies the kind of job event broadcast over the websocket hub.
type EventType string

const (
	EventJobCreated   EventType = "job.created"
	EventJobUpdated   EventType = "job.updated"
	EventJobCompleted EventType = "job.completed"
	EventJobNoAccess  EventType = "job.no_access"
	EventPhotoAdded   EventType = "job.photo_added"
)

// JobEvent is the wire format pushed to websocket subscribers.
type JobEvent struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
