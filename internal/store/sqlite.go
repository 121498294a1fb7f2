package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fahmycader/metermate-backend/internal/model"
	"github.com/fahmycader/metermate-backend/internal/rules"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'worker',
	verified      INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verification_tokens (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	reference      TEXT NOT NULL,
	customer_name  TEXT NOT NULL,
	address        TEXT NOT NULL,
	postcode       TEXT,
	site_lat       REAL NOT NULL,
	site_lng       REAL NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	assigned_to    TEXT,
	field_data     TEXT,
	distance_miles REAL NOT NULL DEFAULT 0,
	completed_at   DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS photos (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size         INTEGER NOT NULL,
	uploaded_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_assigned_to ON jobs(assigned_to);
CREATE INDEX IF NOT EXISTS idx_photos_job_id ON photos(job_id);
CREATE INDEX IF NOT EXISTS idx_verification_tokens_user_id ON verification_tokens(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, passwordHash string, role model.Role) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, email, name, passwordHash, string(role), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert user %s", email)
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

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, verified, created_at, updated_at FROM users WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, verified, created_at, updated_at FROM users WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

func (s *SQLiteStore) MarkUserVerified(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark user verified %s", id)
	}
	return checkRowsAffected(res, "user", id)
}

// --- Verification tokens ---

func (s *SQLiteStore) CreateVerificationToken(ctx context.Context, userID string, ttl time.Duration) (*model.VerificationToken, error) {
	token := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, now.Add(ttl), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert verification token for user %s", userID)
	}

	return &model.VerificationToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM verification_tokens WHERE token = ? AND expires_at > datetime('now')`,
		token,
	)

	var userID string
	err := row.Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: get verification token")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE token = ?`, token); err != nil {
		return "", eris.Wrap(err, "sqlite: delete verification token")
	}
	return userID, nil
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) (*model.Job, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, reference, customer_name, address, postcode, site_lat, site_lng,
		                   status, assigned_to, field_data, distance_miles, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Reference, created.CustomerName, created.Address, created.Postcode,
		created.SiteLat, created.SiteLng, string(created.Status), created.AssignedTo,
		fieldJSON, created.DistanceMiles, created.CompletedAt, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert job %s", created.Reference)
	}

	return &created, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.Job) error {
	fieldJSON, err := marshalFieldData(job)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET reference = ?, customer_name = ?, address = ?, postcode = ?,
		        site_lat = ?, site_lng = ?, status = ?, assigned_to = ?, field_data = ?,
		        distance_miles = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		job.Reference, job.CustomerName, job.Address, job.Postcode,
		job.SiteLat, job.SiteLng, string(job.Status), job.AssignedTo, fieldJSON,
		job.DistanceMiles, job.CompletedAt, time.Now().UTC(), job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		query += ` AND assigned_to = ?`
		args = append(args, filter.AssignedTo)
	}
	if !filter.From.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += ` AND updated_at <= ?`
		args = append(args, filter.To.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
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
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE job_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete job photos %s", id)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) BulkInsertJobs(ctx context.Context, jobs []model.Job) (int64, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk insert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO jobs (id, reference, customer_name, address, postcode, site_lat, site_lng,
		                   status, assigned_to, field_data, distance_miles, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
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
			return n, err
		}
		if _, err := stmt.ExecContext(ctx,
			job.ID, job.Reference, job.CustomerName, job.Address, job.Postcode,
			job.SiteLat, job.SiteLng, string(job.Status), job.AssignedTo,
			fieldJSON, job.DistanceMiles, job.CompletedAt, now, now,
		); err != nil {
			return n, eris.Wrapf(err, "sqlite: bulk insert job %s", job.Reference)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return n, nil
}

// --- Photos ---

func (s *SQLiteStore) AddPhoto(ctx context.Context, photo *model.Photo) (*model.Photo, error) {
	created := *photo
	created.ID = uuid.New().String()
	created.UploadedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (id, job_id, path, content_type, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		created.ID, created.JobID, created.Path, created.ContentType, created.Size, created.UploadedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert photo for job %s", created.JobID)
	}
	return &created, nil
}

func (s *SQLiteStore) ListPhotos(ctx context.Context, jobID string) ([]model.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, path, content_type, size, uploaded_at FROM photos WHERE job_id = ? ORDER BY uploaded_at`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list photos")
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.JobID, &p.Path, &p.ContentType, &p.Size, &p.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan photo")
		}
		photos = append(photos, p)
	}
	return photos, eris.Wrap(rows.Err(), "sqlite: list photos iterate")
}

// helpers

const jobColumns = `id, reference, customer_name, address, postcode, site_lat, site_lng,
	status, assigned_to, field_data, distance_miles, completed_at, created_at, updated_at`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var role string

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan user")
	}
	u.Role = model.Role(role)
	return &u, nil
}

// isNoRows recognizes the no-rows sentinel of both database/sql and pgx.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func marshalFieldData(job *model.Job) (string, error) {
	data, err := json.Marshal(job.Data())
	if err != nil {
		return "", eris.Wrap(err, "store: marshal field data")
	}
	return string(data), nil
}

func applyFieldData(job *model.Job, raw string) error {
	if raw == "" {
		return nil
	}
	var data rules.JobData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return eris.Wrap(err, "store: unmarshal field data")
	}
	job.RegisterValues = data.RegisterValues
	job.RegisterIDs = data.RegisterIDs
	job.Reading = data.Reading
	job.CustomerRead = data.CustomerRead
	job.NoAccessReason = data.NoAccessReason
	return nil
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var status string
	var assignedTo, fieldJSON sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&j.ID, &j.Reference, &j.CustomerName, &j.Address, &j.Postcode,
		&j.SiteLat, &j.SiteLng, &status, &assignedTo, &fieldJSON,
		&j.DistanceMiles, &completedAt, &j.CreatedAt, &j.UpdatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan job")
	}

	j.Status = model.JobStatus(status)
	if assignedTo.Valid {
		j.AssignedTo = assignedTo.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if fieldJSON.Valid {
		if err := applyFieldData(&j, fieldJSON.String); err != nil {
			return nil, err
		}
	}
	return &j, nil
}
