// Package store persists users, jobs, and photos behind a single interface
// with SQLite and PostgreSQL implementations.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fahmycader/metermate-backend/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = eris.New("store: not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status     model.JobStatus `json:"status,omitempty"`
	AssignedTo string          `json:"assigned_to,omitempty"`
	From       time.Time       `json:"from,omitempty"`
	To         time.Time       `json:"to,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the job-management backend.
type Store interface {
	// Users
	CreateUser(ctx context.Context, email, name, passwordHash string, role model.Role) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	MarkUserVerified(ctx context.Context, id string) error

	// Verification tokens
	CreateVerificationToken(ctx context.Context, userID string, ttl time.Duration) (*model.VerificationToken, error)
	ConsumeVerificationToken(ctx context.Context, token string) (string, error)

	// Jobs
	CreateJob(ctx context.Context, job *model.Job) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	DeleteJob(ctx context.Context, id string) error
	BulkInsertJobs(ctx context.Context, jobs []model.Job) (int64, error)

	// Photos
	AddPhoto(ctx context.Context, photo *model.Photo) (*model.Photo, error)
	ListPhotos(ctx context.Context, jobID string) ([]model.Photo, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
