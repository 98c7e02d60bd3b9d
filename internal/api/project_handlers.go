package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/portal"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if req.Customer == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "customer is required")
		return
	}

	project, err := s.manager.CreateProject(r.Context(), req)
	if err != nil {
		if errors.Is(err, portal.ErrEmptyCatalog) {
			respondError(w, http.StatusConflict, "empty_catalog", "no test scenarios loaded")
			return
		}
		slog.Error("failed to create project", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "project id is required")
		return
	}

	project, err := s.manager.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, portal.ErrProjectNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		slog.Error("failed to get project", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	viewer := UserFromContext(r.Context())

	projects, err := s.manager.ListProjects(r.Context(), viewer)
	if err != nil {
		slog.Error("failed to list projects", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "project id is required")
		return
	}

	view, completion, err := s.manager.ProjectSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, portal.ErrProjectNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		slog.Error("failed to build project summary", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to build summary")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"grouped":    view,
		"completion": completion,
	})
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "project id is required")
		return
	}

	var req models.UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	project, err := s.manager.SetProgress(r.Context(), id, req.Progress)
	if err != nil {
		if errors.Is(err, portal.ErrProjectNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		slog.Error("failed to update progress", "error", err, "id", id)
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, project)
}
