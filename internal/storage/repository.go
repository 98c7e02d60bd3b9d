package storage

import (
	"context"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// Repository defines the interface for portal persistence.
// Lookups return (nil, nil) when the record does not exist; callers
// decide whether absence is an error.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	UpdateProjectProgress(ctx context.Context, id string, progress int, status models.ProjectStatus) error
	ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error)

	// Test results
	CreateResult(ctx context.Context, r *models.TestResult) error
	GetResult(ctx context.Context, id string) (*models.TestResult, error)
	UpdateResult(ctx context.Context, r *models.TestResult) error
	ListResultsByProject(ctx context.Context, projectID string) ([]*models.TestResult, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
