package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmycader/metermate-backend/internal/auth"
	"github.com/fahmycader/metermate-backend/internal/config"
	"github.com/fahmycader/metermate-backend/internal/events"
	"github.com/fahmycader/metermate-backend/internal/mailer"
	"github.com/fahmycader/metermate-backend/internal/model"
	"github.com/fahmycader/metermate-backend/internal/rules"
	"github.com/fahmycader/metermate-backend/internal/store"
)

type testEnv struct {
	srv         *Server
	ts          *httptest.Server
	store       store.Store
	admin       *model.User
	worker      *model.User
	adminToken  string
	workerToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	st, err := store.NewSQLite(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	cfg := &config.Config{
		Server:   config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000},
		Auth:     config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1, VerifyTTLHrs: 1, BaseURL: "http://localhost"},
		Geofence: config.GeofenceConfig{RadiusMeters: 10},
		Wage:     config.WageConfig{RatePerMile: 0.50, AllowancePerJob: 1.00},
		Uploads:  config.UploadsConfig{Dir: filepath.Join(dir, "uploads"), MaxBytes: 1 << 20},
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Hour)
	srv := NewServer(cfg, st, tokens, mailer.LogMailer{}, events.NewHub(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	env := &testEnv{srv: srv, ts: ts, store: st}
	env.admin, env.adminToken = env.seedUser(t, "admin@example.com", model.RoleAdmin)
	env.worker, env.workerToken = env.seedUser(t, "worker@example.com", model.RoleWorker)
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string, role model.Role) (*model.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	u, err := e.store.CreateUser(context.Background(), email, "Test User", hash, role)
	require.NoError(t, err)
	require.NoError(t, e.store.MarkUserVerified(context.Background(), u.ID))
	u.Verified = true

	token, err := e.srv.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) seedJob(t *testing.T, job model.Job) *model.Job {
	t.Helper()
	created, err := e.store.CreateJob(context.Background(), &job)
	require.NoError(t, err)
	return created
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestAuth_RegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "name": "New Worker", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.User](t, resp)
	assert.False(t, created.Verified)

	// Unverified accounts cannot log in.
	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck

	tok, err := env.store.CreateVerificationToken(context.Background(), created.ID, time.Hour)
	require.NoError(t, err)

	resp = env.do(t, http.MethodGet, "/api/auth/verify?token="+tok.Token, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[loginResponse](t, resp)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, created.ID, login.User.ID)
}

func TestAuth_RegisterRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck

	resp = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "worker@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestJobs_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestJobs_CreateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	job := map[string]any{"reference": "J-1", "site_lat": 51.5, "site_lng": -0.12}
	resp := env.do(t, http.MethodPost, "/api/jobs", env.workerToken, job)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck

	resp = env.do(t, http.MethodPost, "/api/jobs", env.adminToken, job)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Job](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.JobStatusPending, created.Status)
}

func TestJobs_CreateRejectsInvalidCoordinates(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/jobs", env.adminToken, map[string]any{
		"reference": "J-bad", "site_lat": 99.0, "site_lng": 0.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestJobs_WorkerSeesOnlyOwn(t *testing.T) {
	env := newTestEnv(t)
	env.seedJob(t, model.Job{Reference: "MINE", AssignedTo: env.worker.ID, SiteLat: 51.5, SiteLng: -0.12})
	env.seedJob(t, model.Job{Reference: "OTHERS", AssignedTo: env.admin.ID, SiteLat: 51.5, SiteLng: -0.12})

	resp := env.do(t, http.MethodGet, "/api/jobs", env.workerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Jobs  []model.Job `json:"jobs"`
		Count int         `json:"count"`
	}](t, resp)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "MINE", body.Jobs[0].Reference)
}

func TestJobs_GetForbiddenForOtherWorker(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{Reference: "X", AssignedTo: env.admin.ID, SiteLat: 51.5, SiteLng: -0.12})

	resp := env.do(t, http.MethodGet, "/api/jobs/"+job.ID, env.workerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestGeofence_WithinRadius(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{Reference: "G", AssignedTo: env.worker.ID, SiteLat: 51.5, SiteLng: -0.12})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/geofence", env.workerToken,
		map[string]float64{"lat": 51.5, "lng": -0.12})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[rules.GeofenceResult](t, resp)
	assert.True(t, result.IsValid)
	assert.True(t, result.CanProceed)
}

func TestGeofence_OutsideRadius(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{Reference: "G", AssignedTo: env.worker.ID, SiteLat: 51.5, SiteLng: -0.12})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/geofence", env.workerToken,
		map[string]float64{"lat": 51.6, "lng": -0.12})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[rules.GeofenceResult](t, resp)
	assert.False(t, result.IsValid)
	assert.False(t, result.CanProceed)
	assert.Contains(t, result.Message, "Move within")
}

func TestGeofence_InvalidCoordinates(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{Reference: "G", AssignedTo: env.worker.ID, SiteLat: 51.5, SiteLng: -0.12})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/geofence", env.workerToken,
		map[string]float64{"lat": 120, "lng": -0.12})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	result := decode[rules.GeofenceResult](t, resp)
	assert.Equal(t, "Invalid coordinates provided", result.Error)
}

func TestComplete_RegisterFilled(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{
		Reference: "C", AssignedTo: env.worker.ID,
		Status: model.JobStatusInProgress, SiteLat: 51.5, SiteLng: -0.12,
	})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/complete", env.workerToken, map[string]any{
		"lat": 51.5, "lng": -0.12,
		"registerValues": []any{"12345"},
		"distanceMiles":  3.5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[completeResponse](t, resp)

	assert.Equal(t, model.JobStatusCompleted, result.Job.Status)
	assert.NotNil(t, result.Job.CompletedAt)
	assert.Equal(t, rules.OutcomeRegisterFilled, result.Score.Outcome)
	assert.InDelta(t, 1.0, result.Score.Points, 1e-9)

	stored, err := env.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	assert.InDelta(t, 3.5, stored.DistanceMiles, 1e-9)
}

func TestComplete_NoAccess(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{
		Reference: "NA", AssignedTo: env.worker.ID,
		Status: model.JobStatusInProgress, SiteLat: 51.5, SiteLng: -0.12,
	})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/complete", env.workerToken, map[string]any{
		"lat": 51.5, "lng": -0.12,
		"noAccessReason": "Property locked - no key access",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[completeResponse](t, resp)

	assert.Equal(t, model.JobStatusNoAccess, result.Job.Status)
	assert.Equal(t, rules.OutcomeNoAccess, result.Score.Outcome)
	assert.InDelta(t, 0.5, result.Score.Points, 1e-9)
}

func TestComplete_InvalidNoAccessReason(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{
		Reference: "NA", AssignedTo: env.worker.ID,
		Status: model.JobStatusInProgress, SiteLat: 51.5, SiteLng: -0.12,
	})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/complete", env.workerToken, map[string]any{
		"lat": 51.5, "lng": -0.12,
		"noAccessReason": "Dog looked at me funny",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestComplete_OutsideGeofenceBlocked(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{
		Reference: "FAR", AssignedTo: env.worker.ID,
		Status: model.JobStatusInProgress, SiteLat: 51.5, SiteLng: -0.12,
	})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/complete", env.workerToken, map[string]any{
		"lat": 51.6, "lng": -0.12,
		"registerValues": []any{"12345"},
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	result := decode[rules.GeofenceResult](t, resp)
	assert.False(t, result.CanProceed)

	stored, err := env.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, stored.Status)
}

func TestComplete_IncompleteData(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{
		Reference: "INC", AssignedTo: env.worker.ID,
		Status: model.JobStatusInProgress, SiteLat: 51.5, SiteLng: -0.12,
	})

	resp := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/complete", env.workerToken, map[string]any{
		"lat": 51.5, "lng": -0.12,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestBonusSummaryAndWages(t *testing.T) {
	env := newTestEnv(t)
	env.seedJob(t, model.Job{
		Reference: "B-1", AssignedTo: env.worker.ID,
		Status: model.JobStatusCompleted, SiteLat: 51.5, SiteLng: -0.12,
		RegisterValues: []any{"100"}, DistanceMiles: 10,
	})
	env.seedJob(t, model.Job{
		Reference: "B-2", AssignedTo: env.worker.ID,
		Status: model.JobStatusNoAccess, SiteLat: 51.5, SiteLng: -0.12,
		NoAccessReason: "Property locked - no key access",
	})

	resp := env.do(t, http.MethodGet, "/api/bonus/summary", env.workerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[rules.BonusSummary](t, resp)
	assert.InDelta(t, 1.5, summary.TotalPoints, 1e-9)
	assert.Equal(t, 1, summary.SuccessfulReadings)
	assert.Equal(t, 1, summary.NoAccessJobs)

	resp = env.do(t, http.MethodGet, "/api/wages", env.workerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	wage := decode[rules.WageResult](t, resp)
	assert.InDelta(t, 5.0, wage.BasePay, 1e-9)
	assert.InDelta(t, 1.0, wage.Allowance, 1e-9)
	assert.InDelta(t, 6.0, wage.Total, 1e-9)
}

func TestWages_AdminQueriesWorker(t *testing.T) {
	env := newTestEnv(t)
	env.seedJob(t, model.Job{
		Reference: "W-1", AssignedTo: env.worker.ID,
		Status: model.JobStatusCompleted, SiteLat: 51.5, SiteLng: -0.12,
		RegisterValues: []any{"1"}, DistanceMiles: 2,
	})

	resp := env.do(t, http.MethodGet, "/api/wages?worker_id="+env.worker.ID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	wage := decode[rules.WageResult](t, resp)
	assert.Equal(t, 1, wage.CompletedJobs)
}

func TestPhotos_UploadAndList(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{Reference: "P", AssignedTo: env.worker.ID, SiteLat: 51.5, SiteLng: -0.12})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "meter.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/jobs/"+job.ID+"/photos", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.workerToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	photo := decode[model.Photo](t, resp)
	assert.Equal(t, job.ID, photo.JobID)
	assert.EqualValues(t, len("fake-jpeg-bytes"), photo.Size)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%s/photos", job.ID), env.workerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Count int `json:"count"`
	}](t, resp)
	assert.Equal(t, 1, body.Count)
}

func TestJobs_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, model.Job{Reference: "U", AssignedTo: env.worker.ID, SiteLat: 51.5, SiteLng: -0.12})

	job.Status = model.JobStatusAssigned
	job.CustomerName = "New Name"
	resp := env.do(t, http.MethodPut, "/api/jobs/"+job.ID, env.adminToken, job)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Job](t, resp)
	assert.Equal(t, model.JobStatusAssigned, updated.Status)
	assert.Equal(t, "New Name", updated.CustomerName)

	resp = env.do(t, http.MethodDelete, "/api/jobs/"+job.ID, env.adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck

	resp = env.do(t, http.MethodGet, "/api/jobs/"+job.ID, env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}
