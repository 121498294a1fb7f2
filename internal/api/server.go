// Package api exposes the job-management backend over HTTP: account auth,
// job CRUD, geofence checks, job completion, bonus and wage queries, photo
// uploads, and a websocket event feed.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/fahmycader/metermate-backend/internal/auth"
	"github.com/fahmycader/metermate-backend/internal/config"
	"github.com/fahmycader/metermate-backend/internal/events"
	"github.com/fahmycader/metermate-backend/internal/mailer"
	"github.com/fahmycader/metermate-backend/internal/model"
	"github.com/fahmycader/metermate-backend/internal/report"
	"github.com/fahmycader/metermate-backend/internal/store"
	"github.com/fahmycader/metermate-backend/internal/territory"
)

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	cfg       *config.Config
	store     store.Store
	tokens    *auth.Tokens
	mailer    mailer.Mailer
	hub       *events.Hub
	reports   *report.Generator
	territory *territory.Index
	limiter   *rate.Limiter
}

// NewServer creates the API server. territoryIdx may be nil when no
// shapefile is configured.
func NewServer(cfg *config.Config, st store.Store, tokens *auth.Tokens, m mailer.Mailer, hub *events.Hub, territoryIdx *territory.Index) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		tokens:    tokens,
		mailer:    m,
		hub:       hub,
		reports:   report.NewGenerator(st, cfg.Wage),
		territory: territoryIdx,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.rateLimit)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Get("/verify", s.handleVerify)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/jobs", func(r chi.Router) {
				r.With(s.requireRole(model.RoleAdmin)).Post("/", s.handleCreateJob)
				r.Get("/", s.handleListJobs)
				r.Get("/{id}", s.handleGetJob)
				r.With(s.requireRole(model.RoleAdmin)).Put("/{id}", s.handleUpdateJob)
				r.With(s.requireRole(model.RoleAdmin)).Delete("/{id}", s.handleDeleteJob)

				r.Post("/{id}/geofence", s.handleGeofence)
				r.Post("/{id}/complete", s.handleComplete)

				r.Post("/{id}/photos", s.handleUploadPhoto)
				r.Get("/{id}/photos", s.handleListPhotos)
			})

			r.Get("/bonus/summary", s.handleBonusSummary)
			r.Get("/wages", s.handleWages)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/ws", s.hub.ServeHTTP)
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.Server.AllowedOrigins
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.hub.ClientCount(),
	})
}
