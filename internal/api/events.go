package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cloud-warriors/uat-portal/internal/events"
	"github.com/cloud-warriors/uat-portal/internal/portal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const eventWriteTimeout = 10 * time.Second

func (s *Server) handleProjectEvents(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "project id is required")
		return
	}

	_, completion, err := s.manager.ProjectSummary(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, portal.ErrProjectNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		slog.Error("failed to load project for event stream", "error", err, "project_id", projectID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to open event stream")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("event stream connected", "project_id", projectID)

	ch, cancel := s.hub.Subscribe(projectID)
	defer cancel()

	// The initial snapshot lets a client render current counters
	// before the first live event arrives.
	initial := events.Event{
		Type:       events.TypeProgress,
		ProjectID:  projectID,
		Completion: completion,
		At:         time.Now().UTC(),
	}
	conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	if err := conn.WriteJSON(initial); err != nil {
		slog.Warn("failed to write initial event", "error", err, "project_id", projectID)
		return
	}

	// Drain the read side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			slog.Info("event stream closed by client", "project_id", projectID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Warn("failed to write event", "error", err, "project_id", projectID)
				return
			}
		}
	}
}
