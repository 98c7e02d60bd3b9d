package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-warriors/uat-portal/internal/auth"
	"github.com/cloud-warriors/uat-portal/internal/catalog"
	"github.com/cloud-warriors/uat-portal/internal/events"
	"github.com/cloud-warriors/uat-portal/internal/execution"
	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/storage"
)

// Common errors
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrResultNotFound     = errors.New("test result not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidStatus      = errors.New("invalid test status")
	ErrEmptyCatalog       = errors.New("scenario catalog is empty")
)

// Manager defines the portal's business operations between the HTTP
// layer and storage
type Manager interface {
	// Auth
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.User, error)

	// Users
	Users(ctx context.Context) ([]*models.User, error)
	Roster(ctx context.Context) ([]models.User, error)

	// Projects
	CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, viewer *models.User) ([]*models.Project, error)
	SetProgress(ctx context.Context, id string, progress int) (*models.Project, error)

	// Test results
	ResultsForProject(ctx context.Context, projectID string) ([]*models.TestResult, error)
	ProjectSummary(ctx context.Context, projectID string) (execution.GroupedView, execution.CompletionStatus, error)
	UpdateResult(ctx context.Context, resultID string, req models.UpdateResultRequest) (*models.TestResult, error)
	AssignResult(ctx context.Context, resultID string, assignedTo *string) (*models.TestResult, error)

	Ping(ctx context.Context) error
	Close() error
}

// PortalManager implements Manager against a Repository, the scenario
// catalog, a token store, and the event hub
type PortalManager struct {
	repo    storage.Repository
	catalog *catalog.Loader
	tokens  auth.TokenStore
	hub     *events.Hub
}

// NewManager creates a PortalManager
func NewManager(repo storage.Repository, loader *catalog.Loader, tokens auth.TokenStore, hub *events.Hub) *PortalManager {
	return &PortalManager{
		repo:    repo,
		catalog: loader,
		tokens:  tokens,
		hub:     hub,
	}
}

// Ping checks that the backing stores are reachable
func (m *PortalManager) Ping(ctx context.Context) error {
	if err := m.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the backing stores
func (m *PortalManager) Close() error {
	if err := m.tokens.Close(); err != nil {
		return err
	}
	return m.repo.Close()
}

// Auth

// Login verifies credentials and issues a bearer token
func (m *PortalManager) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := m.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := m.tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// Logout revokes a bearer token
func (m *PortalManager) Logout(ctx context.Context, token string) error {
	return m.tokens.Revoke(ctx, token)
}

// Authenticate resolves a bearer token to its user
func (m *PortalManager) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := m.tokens.Lookup(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := m.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// Users

// Users returns the full roster
func (m *PortalManager) Users(ctx context.Context) ([]*models.User, error) {
	return m.repo.ListUsers(ctx)
}

// Roster returns the assignable pool: test-performing users only
func (m *PortalManager) Roster(ctx context.Context) ([]models.User, error) {
	users, err := m.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	all := make([]models.User, 0, len(users))
	for _, u := range users {
		all = append(all, *u)
	}
	return execution.Roster(all), nil
}

// Projects

// CreateProject creates a project and instantiates one Not Started
// result per catalog scenario
func (m *PortalManager) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	scenarios := m.catalog.Scenarios()
	if len(scenarios) == 0 {
		return nil, ErrEmptyCatalog
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:          uuid.New().String()[:12],
		Name:        req.Name,
		Customer:    req.Customer,
		Status:      models.ProjectNotStarted,
		Description: req.Description,
		DueDate:     req.DueDate,
		Progress:    0,
		CreatedAt:   now,
	}

	if err := m.repo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	for i := range scenarios {
		scenario := scenarios[i]
		result := &models.TestResult{
			ID:        uuid.New().String()[:12],
			ProjectID: project.ID,
			Scenario:  &scenario,
			Status:    models.StatusNotStarted,
			UpdatedAt: now,
		}
		if err := m.repo.CreateResult(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to instantiate scenario %s: %w", scenario.ID, err)
		}
	}

	slog.Info("project created",
		"project_id", project.ID,
		"customer", project.Customer,
		"scenarios", len(scenarios),
	)

	return project, nil
}

// GetProject retrieves a project by ID
func (m *PortalManager) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := m.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// ListProjects returns the projects the viewer may see: managers see
// all, everyone else sees their customer's projects
func (m *PortalManager) ListProjects(ctx context.Context, viewer *models.User) ([]*models.Project, error) {
	filters := models.ProjectFilters{}
	if viewer != nil && viewer.Role != models.RoleManager {
		filters.Customer = viewer.Customer
	}
	return m.repo.ListProjects(ctx, filters)
}

// SetProgress persists a client-computed progress value. The project's
// status is derived from the stored results, not from the raw number,
// so a stale write cannot mark an unfinished project completed.
func (m *PortalManager) SetProgress(ctx context.Context, id string, progress int) (*models.Project, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("progress out of range: %d", progress)
	}

	project, err := m.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	results, err := m.repo.ListResultsByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	status := deriveStatus(execution.Summarize(flatten(results)))
	if err := m.repo.UpdateProjectProgress(ctx, id, progress, status); err != nil {
		return nil, err
	}

	project.Progress = progress
	project.Status = status
	return project, nil
}

// Test results

// ResultsForProject returns a project's flat result list
func (m *PortalManager) ResultsForProject(ctx context.Context, projectID string) ([]*models.TestResult, error) {
	if _, err := m.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return m.repo.ListResultsByProject(ctx, projectID)
}

// ProjectSummary derives the grouped view and completion counters for
// a project's current results
func (m *PortalManager) ProjectSummary(ctx context.Context, projectID string) (execution.GroupedView, execution.CompletionStatus, error) {
	results, err := m.ResultsForProject(ctx, projectID)
	if err != nil {
		return execution.GroupedView{}, execution.CompletionStatus{}, err
	}

	flat := flatten(results)
	return execution.BuildView(flat), execution.Summarize(flat), nil
}

// UpdateResult overwrites the fields present in req on one result,
// recomputes the owning project's progress from the post-mutation
// collection, and publishes progress/completion events
func (m *PortalManager) UpdateResult(ctx context.Context, resultID string, req models.UpdateResultRequest) (*models.TestResult, error) {
	result, err := m.repo.GetResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrResultNotFound
	}

	statusChanged := false
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		result.Status = *req.Status
		statusChanged = true
	}
	if req.Notes != nil {
		result.Notes = *req.Notes
	}
	result.UpdatedAt = time.Now().UTC()

	if err := m.repo.UpdateResult(ctx, result); err != nil {
		return nil, err
	}

	if statusChanged {
		if err := m.recomputeProgress(ctx, result.ProjectID); err != nil {
			// The result update already landed; progress will be
			// repaired by the reconciler.
			slog.Warn("failed to recompute project progress",
				"project_id", result.ProjectID,
				"error", err,
			)
		}
	}

	return result, nil
}

// AssignResult delegates a result to a reviewer. The assignee is stored
// as given; display resolution against the roster happens at render
// time, so a departed user degrades to a placeholder instead of
// breaking the record.
func (m *PortalManager) AssignResult(ctx context.Context, resultID string, assignedTo *string) (*models.TestResult, error) {
	result, err := m.repo.GetResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrResultNotFound
	}

	result.AssignedTo = assignedTo
	result.UpdatedAt = time.Now().UTC()

	if err := m.repo.UpdateResult(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// recomputeProgress refreshes the owning project's stored progress and
// status from its current results and publishes events
func (m *PortalManager) recomputeProgress(ctx context.Context, projectID string) error {
	project, err := m.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	results, err := m.repo.ListResultsByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	completion := execution.Summarize(flatten(results))
	status := deriveStatus(completion)

	if err := m.repo.UpdateProjectProgress(ctx, projectID, completion.Percentage, status); err != nil {
		return err
	}

	if m.hub != nil {
		m.hub.Publish(events.Event{
			Type:       events.TypeProgress,
			ProjectID:  projectID,
			Completion: completion,
		})
		// Completed fires only on the transition into the complete
		// state, not on every mutation of a finished project.
		if completion.IsComplete() && project.Status != models.ProjectCompleted {
			m.hub.Publish(events.Event{
				Type:       events.TypeCompleted,
				ProjectID:  projectID,
				Completion: completion,
			})
		}
	}

	return nil
}

// deriveStatus maps completion counters onto a project status
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

func flatten(results []*models.TestResult) []models.TestResult {
	flat := make([]models.TestResult, 0, len(results))
	for _, r := range results {
		flat = append(flat, *r)
	}
	return flat
}
