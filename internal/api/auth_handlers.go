package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/portal"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	token, user, err := s.manager.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, portal.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		slog.Error("login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := TokenFromContext(r.Context())

	if err := s.manager.Logout(r.Context(), token); err != nil {
		slog.Error("logout failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to log out")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}
