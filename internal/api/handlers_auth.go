package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/auth"
	"github.com/fahmycader/metermate-backend/internal/mailer"
	"github.com/fahmycader/metermate-backend/internal/model"
)

const minPasswordLength = 8

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, strings.TrimSpace(req.Name), hash, model.RoleWorker)
	if err != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	ttl := time.Duration(s.cfg.Auth.VerifyTTLHrs) * time.Hour
	token, err := s.store.CreateVerificationToken(r.Context(), user.ID, ttl)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	subject, body := mailer.VerificationEmail(s.cfg.Auth.BaseURL, token.Token)
	if err := s.mailer.Send(r.Context(), user.Email, subject, body); err != nil {
		zap.L().Error("api: send verification email", zap.String("email", user.Email), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Verified {
		writeError(w, http.StatusForbidden, "account not verified")
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := s.store.ConsumeVerificationToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	if err := s.store.MarkUserVerified(r.Context(), userID); err != nil {
		writeStoreError(w, err)
		return
	}

	zap.L().Info("api: account verified", zap.String("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
