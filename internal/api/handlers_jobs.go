package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/model"
	"github.com/fahmycader/metermate-backend/internal/rules"
	"github.com/fahmycader/metermate-backend/internal/store"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var job model.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !job.Site().Valid() {
		writeError(w, http.StatusBadRequest, "invalid site coordinates")
		return
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	if !model.ValidJobStatus(job.Status) {
		writeError(w, http.StatusBadRequest, "invalid job status")
		return
	}

	if s.territory != nil {
		inside, region := s.territory.Contains(job.Site())
		if !inside {
			writeError(w, http.StatusUnprocessableEntity, "job site outside service territory")
			return
		}
		zap.L().Debug("api: job site in territory", zap.String("region", region))
	}

	created, err := s.store.CreateJob(r.Context(), &job)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.hub.Broadcast(model.JobEvent{Type: model.EventJobCreated, JobID: created.ID, Payload: created})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	q := r.URL.Query()

	filter := store.JobFilter{
		Status:     model.JobStatus(q.Get("status")),
		AssignedTo: q.Get("assigned_to"),
	}
	// Workers only see their own jobs.
	if claims.Role != model.RoleAdmin {
		filter.AssignedTo = claims.UserID
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from time")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to time")
			return
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// loadJobAuthorized fetches the job and checks the caller may act on it.
// Admins may touch any job, workers only their own.
func (s *Server) loadJobAuthorized(w http.ResponseWriter, r *http.Request) *model.Job {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return nil
	}

	claims := claimsFrom(r.Context())
	if claims.Role != model.RoleAdmin && job.AssignedTo != claims.UserID {
		writeError(w, http.StatusForbidden, "job not assigned to you")
		return nil
	}
	return job
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.loadJobAuthorized(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetJob(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	var job model.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job.ID = id
	if !model.ValidJobStatus(job.Status) {
		writeError(w, http.StatusBadRequest, "invalid job status")
		return
	}

	if err := s.store.UpdateJob(r.Context(), &job); err != nil {
		writeStoreError(w, err)
		return
	}

	updated, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.hub.Broadcast(model.JobEvent{Type: model.EventJobUpdated, JobID: id, Payload: updated})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteJob(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type positionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (s *Server) handleGeofence(w http.ResponseWriter, r *http.Request) {
	job := s.loadJobAuthorized(w, r)
	if job == nil {
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := rules.ValidateGeofence(
		rules.Coordinate{Lat: req.Lat, Lng: req.Lng},
		job.Site(),
		s.cfg.Geofence.RadiusMeters,
	)
	if result.Error != "" {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type completeRequest struct {
	positionRequest
	RegisterValues []any          `json:"registerValues"`
	RegisterIDs    []any          `json:"registerIds"`
	Reading        map[string]any `json:"reading"`
	CustomerRead   string         `json:"customerRead"`
	NoAccessReason string         `json:"noAccessReason"`
	DistanceMiles  float64        `json:"distanceMiles"`
}

type completeResponse struct {
	Job      *model.Job           `json:"job"`
	Geofence rules.GeofenceResult `json:"geofence"`
	Score    rules.ScoreResult    `json:"score"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	job := s.loadJobAuthorized(w, r)
	if job == nil {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fence := rules.ValidateGeofence(
		rules.Coordinate{Lat: req.Lat, Lng: req.Lng},
		job.Site(),
		s.cfg.Geofence.RadiusMeters,
	)
	if fence.Error != "" {
		writeJSON(w, http.StatusBadRequest, fence)
		return
	}
	if !fence.CanProceed {
		writeJSON(w, http.StatusForbidden, fence)
		return
	}

	job.RegisterValues = req.RegisterValues
	job.RegisterIDs = req.RegisterIDs
	job.Reading = req.Reading
	job.CustomerRead = req.CustomerRead
	job.NoAccessReason = req.NoAccessReason
	if req.DistanceMiles > 0 {
		job.DistanceMiles = req.DistanceMiles
	}

	outcome := rules.Classify(job.Data())
	eventType := model.EventJobCompleted
	switch outcome {
	case rules.OutcomeRegisterFilled:
		now := time.Now().UTC()
		job.Status = model.JobStatusCompleted
		job.CompletedAt = &now
	case rules.OutcomeNoAccess:
		if job.NoAccessReason != "" && !rules.IsValidNoAccessReason(job.NoAccessReason) {
			writeError(w, http.StatusBadRequest, "invalid no-access reason")
			return
		}
		job.Status = model.JobStatusNoAccess
		eventType = model.EventJobNoAccess
	default:
		writeError(w, http.StatusUnprocessableEntity, "job data incomplete")
		return
	}

	if err := s.store.UpdateJob(r.Context(), job); err != nil {
		writeStoreError(w, err)
		return
	}

	score := rules.Score(job.Data())
	s.hub.Broadcast(model.JobEvent{Type: eventType, JobID: job.ID, Payload: job})

	zap.L().Info("api: job closed out",
		zap.String("job_id", job.ID),
		zap.String("outcome", string(outcome)),
		zap.Float64("points", score.Points),
	)
	writeJSON(w, http.StatusOK, completeResponse{Job: job, Geofence: fence, Score: score})
}

// reportSubject resolves which worker a bonus or wage query targets. Admins
// may query any worker via worker_id, everyone else gets themselves.
func reportSubject(r *http.Request) string {
	claims := claimsFrom(r.Context())
	if claims.Role == model.RoleAdmin {
		if id := r.URL.Query().Get("worker_id"); id != "" {
			return id
		}
	}
	return claims.UserID
}

func (s *Server) handleBonusSummary(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.BuildOne(r.Context(), reportSubject(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep.Summary)
}

func (s *Server) handleWages(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.BuildOne(r.Context(), reportSubject(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep.Wage)
}
