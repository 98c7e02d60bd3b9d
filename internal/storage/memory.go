package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// MemoryRepository is an in-memory Repository used by tests and local
// development. It mirrors the lookup semantics of the Postgres
// implementation: missing records return (nil, nil).
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]models.User
	projects map[string]models.Project
	results  map[string]models.TestResult
	order    []string // result ids in insertion order
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]models.User),
		projects: make(map[string]models.Project),
		results:  make(map[string]models.TestResult),
	}
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (r *MemoryRepository) Close() error { return nil }

// Users

func (r *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already registered: %s", u.Email)
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// Projects

func (r *MemoryRepository) CreateProject(ctx context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.projects[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.projects[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateProjectProgress(ctx context.Context, id string, progress int, status models.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project not found: %s", id)
	}
	p.Progress = progress
	p.Status = status
	r.projects[id] = p
	return nil
}

func (r *MemoryRepository) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]*models.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if filters.Customer != "" && p.Customer != filters.Customer {
			continue
		}
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		p := p
		projects = append(projects, &p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// Test results

func (r *MemoryRepository) CreateResult(ctx context.Context, res *models.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.results[res.ID]; !ok {
		r.order = append(r.order, res.ID)
	}
	r.results[res.ID] = *res
	return nil
}

func (r *MemoryRepository) GetResult(ctx context.Context, id string) (*models.TestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, ok := r.results[id]; ok {
		return &res, nil
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateResult(ctx context.Context, res *models.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.results[res.ID]; !ok {
		return fmt.Errorf("test result not found: %s", res.ID)
	}
	r.results[res.ID] = *res
	return nil
}

func (r *MemoryRepository) ListResultsByProject(ctx context.Context, projectID string) ([]*models.TestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.TestResult
	for _, id := range r.order {
		res := r.results[id]
		if res.ProjectID != projectID {
			continue
		}
		results = append(results, &res)
	}
	return results, nil
}
