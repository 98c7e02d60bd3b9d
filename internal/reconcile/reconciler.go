package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/execution"
	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/storage"
)

// Reconciler periodically recomputes each project's stored progress
// from its results. Progress is a derived value duplicated into
// storage; a failed write-back after a result update leaves it stale,
// and this worker repairs the drift.
type Reconciler struct {
	repo     storage.Repository
	interval time.Duration
}

// NewReconciler creates a new reconciler worker
func NewReconciler(repo storage.Repository, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Reconciler{
		repo:     repo,
		interval: interval,
	}
}

// Start begins the reconciler in a goroutine
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	slog.Info("progress reconciler started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.Reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("progress reconciler stopped")
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one repair cycle over all projects
func (r *Reconciler) Reconcile(ctx context.Context) {
	slog.Debug("running reconcile cycle")

	projects, err := r.repo.ListProjects(ctx, models.ProjectFilters{})
	if err != nil {
		slog.Error("failed to list projects", "error", err)
		return
	}

	repaired := 0
	for _, project := range projects {
		results, err := r.repo.ListResultsByProject(ctx, project.ID)
		if err != nil {
			slog.Error("failed to load results", "project_id", project.ID, "error", err)
			continue
		}

		flat := make([]models.TestResult, 0, len(results))
		for _, res := range results {
			flat = append(flat, *res)
		}

		completion := execution.Summarize(flat)
		status := deriveStatus(completion)

		if project.Progress == completion.Percentage && project.Status == status {
			continue
		}

		slog.Info("repairing progress drift",
			"project_id", project.ID,
			"stored_progress", project.Progress,
			"computed_progress", completion.Percentage,
			"stored_status", project.Status,
			"computed_status", status,
		)

		if err := r.repo.UpdateProjectProgress(ctx, project.ID, completion.Percentage, status); err != nil {
			slog.Error("failed to repair progress", "project_id", project.ID, "error", err)
			continue
		}
		repaired++
	}

	if repaired > 0 {
		slog.Info("reconcile cycle finished", "repaired", repaired)
	}
}

func deriveStatus(c execution.CompletionStatus) models.ProjectStatus {
	switch {
	case c.IsComplete():
		return models.ProjectCompleted
	case c.Completed > 0:
		return models.ProjectInProgress
	default:
		return models.ProjectNotStarted
	}
}
