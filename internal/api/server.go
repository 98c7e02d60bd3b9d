package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cloud-warriors/uat-portal/internal/config"
	"github.com/cloud-warriors/uat-portal/internal/events"
	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/portal"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	manager        portal.Manager
	hub            *events.Hub
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, manager portal.Manager, hub *events.Hub) *Server {
	s := &Server{
		config:         cfg,
		manager:        manager,
		hub:            hub,
		authMiddleware: NewAuthMiddleware(manager),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		// Everything else requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.Authenticate)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/users", s.handleListUsers)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", s.handleListProjects)
				r.With(s.authMiddleware.RequireRole(models.RoleManager)).Post("/", s.handleCreateProject)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.Get("/summary", s.handleProjectSummary)
					r.Put("/progress", s.handleUpdateProgress)
					r.Get("/events", s.handleProjectEvents)
				})
			})

			r.Route("/test-results", func(r chi.Router) {
				r.Get("/project/{id}", s.handleListResults)
				r.Put("/{id}", s.handleUpdateResult)
				r.Put("/{id}/assign", s.handleAssignResult)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
