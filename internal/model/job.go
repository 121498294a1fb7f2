package model

import (
	"time"

	"github.com/fahmycader/metermate-backend/internal/rules"
)

// JobStatus represents the lifecycle state of a field job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusNoAccess   JobStatus = "no_access"
)

// ValidJobStatus reports whether s is a known job status.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusPending, JobStatusAssigned, JobStatusInProgress, JobStatusCompleted, JobStatusNoAccess:
		return true
	}
	return false
}

// Job is a single meter-reading visit. Site coordinates are the geofence
// target; the register/reading fields hold whatever the worker captured and
// are interpreted by the rules engine, not here.
type Job struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	CustomerName string    `json:"customer_name"`
	Address      string    `json:"address"`
	Postcode     string    `json:"postcode"`
	SiteLat      float64   `json:"site_lat"`
	SiteLng      float64   `json:"site_lng"`
	Status       JobStatus `json:"status"`
	AssignedTo   string    `json:"assigned_to,omitempty"`

	RegisterValues []any          `json:"register_values,omitempty"`
	RegisterIDs    []any          `json:"register_ids,omitempty"`
	Reading        map[string]any `json:"reading,omitempty"`
	CustomerRead   string         `json:"customer_read,omitempty"`
	NoAccessReason string         `json:"no_access_reason,omitempty"`

	// DistanceMiles is the travel distance logged for the visit, used for
	// wage calculation.
	DistanceMiles float64 `json:"distance_miles"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Site returns the job's target coordinate.
func (j *Job) Site() rules.Coordinate {
	return rules.Coordinate{Lat: j.SiteLat, Lng: j.SiteLng}
}

// Data projects the loosely-typed field data the rules engine consumes.
func (j *Job) Data() rules.JobData {
	return rules.JobData{
		RegisterValues: j.RegisterValues,
		RegisterIDs:    j.RegisterIDs,
		Reading:        j.Reading,
		CustomerRead:   j.CustomerRead,
		NoAccessReason: j.NoAccessReason,
	}
}

// Photo is an uploaded site photo attached to a job.
type Photo struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
