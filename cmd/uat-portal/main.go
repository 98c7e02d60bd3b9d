package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/api"
	"github.com/cloud-warriors/uat-portal/internal/auth"
	"github.com/cloud-warriors/uat-portal/internal/catalog"
	"github.com/cloud-warriors/uat-portal/internal/config"
	"github.com/cloud-warriors/uat-portal/internal/events"
	"github.com/cloud-warriors/uat-portal/internal/portal"
	"github.com/cloud-warriors/uat-portal/internal/reconcile"
	"github.com/cloud-warriors/uat-portal/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting uat-portal",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Initialize token store
	tokens, err := auth.NewRedisTokenStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Auth.TokenTTL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Load the scenario catalog
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load scenario catalog", "dir", cfg.Catalog.Dir, "error", err)
	}
	slog.Info("scenario catalog loaded", "scenarios", loader.Count())

	// Initialize the portal manager and event hub
	hub := events.NewHub()
	manager := portal.NewManager(repo, loader, tokens, hub)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start progress reconciler worker
	reconciler := reconcile.NewReconciler(repo, cfg.Reconcile.Interval)
	reconciler.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, manager, hub)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Close manager (repository and token store)
	if err := manager.Close(); err != nil {
		slog.Error("manager close error", "error", err)
	}

	slog.Info("uat-portal stopped")
}
