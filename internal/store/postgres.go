package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fahmycader/metermate-backend/internal/db"
	"github.com/fahmycader/metermate-backend/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'worker',
	verified      BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verification_tokens (
	token      UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id             UUID PRIMARY KEY,
	reference      TEXT NOT NULL,
	customer_name  TEXT NOT NULL,
	address        TEXT NOT NULL,
	postcode       TEXT,
	site_lat       DOUBLE PRECISION NOT NULL,
	site_lng       DOUBLE PRECISION NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	assigned_to    TEXT,
	field_data     JSONB,
	distance_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
	completed_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS photos (
	id           UUID PRIMARY KEY,
	job_id       UUID NOT NULL REFERENCES jobs(id),
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size         BIGINT NOT NULL,
	uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_assigned_to ON jobs(assigned_to);
CREATE INDEX IF NOT EXISTS idx_photos_job_id ON photos(job_id);
CREATE INDEX IF NOT EXISTS idx_verification_tokens_user_id ON verification_tokens(user_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, email, name, passwordHash string, role model.Role) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6, $7)`,
		id, email, name, passwordHash, string(role), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert user %s", email)
	}

	return &model.User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, verified, created_at, updated_at FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, verified, created_at, updated_at FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row)
}

func (s *PostgresStore) MarkUserVerified(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET verified = true, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark user verified %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "user %s", id)
	}
	return nil
}

// --- Verification tokens ---

func (s *PostgresStore) CreateVerificationToken(ctx context.Context, userID string, ttl time.Duration) (*model.VerificationToken, error) {
	token := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO verification_tokens (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		token, userID, now.Add(ttl), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert verification token for user %s", userID)
	}

	return &model.VerificationToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM verification_tokens WHERE token = $1 AND expires_at > now() RETURNING user_id`,
		token,
	)

	var userID string
	err := row.Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: consume verification token")
	}
	return userID, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	created := *job
	created.ID = uuid.New().String()
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.Status == "" {
		created.Status = model.JobStatusPending
	}

	fieldJSON, err := marshalFieldData(&created)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, reference, customer_name, address, postcode, site_lat, site_lng,
		                   status, assigned_to, field_data, distance_miles, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		created.ID, created.Reference, created.CustomerName, created.Address, created.Postcode,
		created.SiteLat, created.SiteLng, string(created.Status), nullable(created.AssignedTo),
		fieldJSON, created.DistanceMiles, created.CompletedAt, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert job %s", created.Reference)
	}

	return &created, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *model.Job) error {
	fieldJSON, err := marshalFieldData(job)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET reference = $1, customer_name = $2, address = $3, postcode = $4,
		        site_lat = $5, site_lng = $6, status = $7, assigned_to = $8, field_data = $9,
		        distance_miles = $10, completed_at = $11, updated_at = $12
		 WHERE id = $13`,
		job.Reference, job.CustomerName, job.Address, job.Postcode,
		job.SiteLat, job.SiteLng, string(job.Status), nullable(job.AssignedTo), fieldJSON,
		job.DistanceMiles, job.CompletedAt, time.Now().UTC(), job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", id)
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.AssignedTo != "" {
		query += ` AND assigned_to = ` + arg(filter.AssignedTo)
	}
	if !filter.From.IsZero() {
		query += ` AND updated_at >= ` + arg(filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += ` AND updated_at <= ` + arg(filter.To.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)

	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE job_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete job photos %s", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", id)
	}
	return nil
}

// BulkInsertJobs loads jobs through the COPY protocol.
func (s *PostgresStore) BulkInsertJobs(ctx context.Context, jobs []model.Job) (int64, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	columns := []string{"id", "reference", "customer_name", "address", "postcode",
		"site_lat", "site_lng", "status", "assigned_to", "field_data",
		"distance_miles", "completed_at", "created_at", "updated_at"}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(jobs))
	for i := range jobs {
		job := jobs[i]
		if job.ID == "" {
			job.ID = uuid.New().String()
		}
		if job.Status == "" {
			job.Status = model.JobStatusPending
		}
		fieldJSON, err := marshalFieldData(&job)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			job.ID, job.Reference, job.CustomerName, job.Address, job.Postcode,
			job.SiteLat, job.SiteLng, string(job.Status), nullable(job.AssignedTo),
			fieldJSON, job.DistanceMiles, job.CompletedAt, now, now,
		})
	}

	return db.CopyFrom(ctx, s.pool, "jobs", columns, rows)
}

// --- Photos ---

func (s *PostgresStore) AddPhoto(ctx context.Context, photo *model.Photo) (*model.Photo, error) {
	created := *photo
	created.ID = uuid.New().String()
	created.UploadedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO photos (id, job_id, path, content_type, size, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		created.ID, created.JobID, created.Path, created.ContentType, created.Size, created.UploadedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert photo for job %s", created.JobID)
	}
	return &created, nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, jobID string) ([]model.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, path, content_type, size, uploaded_at FROM photos WHERE job_id = $1 ORDER BY uploaded_at`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list photos")
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.JobID, &p.Path, &p.ContentType, &p.Size, &p.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan photo")
		}
		photos = append(photos, p)
	}
	return photos, eris.Wrap(rows.Err(), "postgres: list photos iterate")
}

// helpers

// nullable maps an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
