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

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "project id is required")
		return
	}

	results, err := s.manager.ResultsForProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, portal.ErrProjectNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		slog.Error("failed to list test results", "error", err, "project_id", projectID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list test results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

func (s *Server) handleUpdateResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "result id is required")
		return
	}

	var req models.UpdateResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Status == nil && req.Notes == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "status or notes is required")
		return
	}

	result, err := s.manager.UpdateResult(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, portal.ErrResultNotFound):
			respondError(w, http.StatusNotFound, "not_found", "test result not found")
		case errors.Is(err, portal.ErrInvalidStatus):
			respondError(w, http.StatusBadRequest, "validation_error", "invalid status")
		default:
			slog.Error("failed to update test result", "error", err, "id", id)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to update test result")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAssignResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "result id is required")
		return
	}

	var req models.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := s.manager.AssignResult(r.Context(), id, req.AssignedTo)
	if err != nil {
		if errors.Is(err, portal.ErrResultNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "test result not found")
			return
		}
		slog.Error("failed to assign test result", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to assign test result")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
