package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/model"
)

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	job := s.loadJobAuthorized(w, r)
	if job == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Uploads.MaxBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	name := uuid.NewString() + ext
	dir := filepath.Join(s.cfg.Uploads.Dir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		zap.L().Error("api: create upload dir", zap.String("dir", dir), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		zap.L().Error("api: create upload file", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	size, err := io.Copy(dst, file)
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		os.Remove(path) //nolint:errcheck
		writeError(w, http.StatusRequestEntityTooLarge, "upload failed or too large")
		return
	}

	photo, err := s.store.AddPhoto(r.Context(), &model.Photo{
		JobID:       job.ID,
		Path:        path,
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
	})
	if err != nil {
		os.Remove(path) //nolint:errcheck
		writeStoreError(w, err)
		return
	}

	s.hub.Broadcast(model.JobEvent{Type: model.EventPhotoAdded, JobID: job.ID, Payload: photo})
	writeJSON(w, http.StatusCreated, photo)
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	job := s.loadJobAuthorized(w, r)
	if job == nil {
		return
	}

	photos, err := s.store.ListPhotos(r.Context(), job.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"photos": photos, "count": len(photos)})
}
