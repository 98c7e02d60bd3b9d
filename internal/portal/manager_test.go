package portal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/auth"
	"github.com/cloud-warriors/uat-portal/internal/catalog"
	"github.com/cloud-warriors/uat-portal/internal/events"
	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/storage"
)

const testCatalogYAML = `category: Login
scenarios:
  - subcategory: Authentication
    description: Verify user can log in with valid credentials
  - subcategory: Authentication
    description: Verify invalid credentials are rejected
`

func testLoader(t *testing.T) *catalog.Loader {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "login.yaml"), []byte(testCatalogYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(dir); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return loader
}

func seedUser(t *testing.T, repo storage.Repository, id, email string, role models.Role, customer string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		ID:           id,
		Email:        email,
		Name:         id,
		Role:         role,
		Customer:     customer,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func newTestManager(t *testing.T) (*PortalManager, *storage.MemoryRepository, *events.Hub) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	hub := events.NewHub()
	m := NewManager(repo, testLoader(t), auth.NewMemoryTokenStore(time.Hour), hub)
	return m, repo, hub
}

func TestLoginLifecycle(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "pat@cloudwarriors.example", models.RoleManager, "")

	token, user, err := m.Login(ctx, "pat@cloudwarriors.example", "correct horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" || user.ID != "u1" {
		t.Errorf("unexpected login result: token=%q user=%+v", token, user)
	}

	authed, err := m.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if authed.ID != "u1" {
		t.Errorf("Authenticate returned %s", authed.ID)
	}

	if err := m.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := m.Authenticate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "pat@cloudwarriors.example", models.RoleManager, "")

	if _, _, err := m.Login(ctx, "pat@cloudwarriors.example", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, _, err := m.Login(ctx, "nobody@cloudwarriors.example", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestCreateProjectInstantiatesCatalog(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	project, err := m.CreateProject(ctx, models.CreateProjectRequest{
		Name:     "Acme Zoom Phone Deployment",
		Customer: "Acme Corporation",
		DueDate:  "2026-10-15",
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if project.Status != models.ProjectNotStarted || project.Progress != 0 {
		t.Errorf("new project = %+v", project)
	}

	results, err := m.ResultsForProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ResultsForProject failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 instantiated results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != models.StatusNotStarted {
			t.Errorf("result %s status = %s", r.ID, r.Status)
		}
		if r.Scenario == nil || r.Scenario.Category == nil || r.Scenario.Category.Name != "Login" {
			t.Errorf("result %s scenario = %+v", r.ID, r.Scenario)
		}
	}
}

func TestCreateProjectEmptyCatalog(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := NewManager(repo, catalog.NewLoader(), auth.NewMemoryTokenStore(time.Hour), events.NewHub())

	if _, err := m.CreateProject(context.Background(), models.CreateProjectRequest{Name: "x", Customer: "y"}); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestListProjectsScopedByRole(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	manager := seedUser(t, repo, "mgr", "mgr@cloudwarriors.example", models.RoleManager, "")
	customer := seedUser(t, repo, "cust", "cust@acme.example", models.RoleCustomer, "Acme Corporation")

	if _, err := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateProject(ctx, models.CreateProjectRequest{Name: "TechStar", Customer: "TechStar Inc"}); err != nil {
		t.Fatal(err)
	}

	all, err := m.ListProjects(ctx, manager)
	if err != nil {
		t.Fatalf("ListProjects(manager) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("manager sees %d projects, want 2", len(all))
	}

	own, err := m.ListProjects(ctx, customer)
	if err != nil {
		t.Fatalf("ListProjects(customer) failed: %v", err)
	}
	if len(own) != 1 || own[0].Customer != "Acme Corporation" {
		t.Errorf("customer sees %+v", own)
	}
}

func TestUpdateResultRecomputesProgress(t *testing.T) {
	m, _, hub := newTestManager(t)
	ctx := context.Background()

	project, err := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"})
	if err != nil {
		t.Fatal(err)
	}
	results, _ := m.ResultsForProject(ctx, project.ID)

	ch, cancel := hub.Subscribe(project.ID)
	defer cancel()

	passed := models.StatusPassed
	if _, err := m.UpdateResult(ctx, results[0].ID, models.UpdateResultRequest{Status: &passed}); err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}

	got, err := m.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 50 || got.Status != models.ProjectInProgress {
		t.Errorf("after first pass: progress=%d status=%s", got.Progress, got.Status)
	}

	select {
	case ev := <-ch:
		if ev.Type != events.TypeProgress || ev.Completion.Percentage != 50 {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no progress event published")
	}

	failed := models.StatusFailed
	if _, err := m.UpdateResult(ctx, results[1].ID, models.UpdateResultRequest{Status: &failed}); err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}

	got, _ = m.GetProject(ctx, project.ID)
	if got.Progress != 100 || got.Status != models.ProjectCompleted {
		t.Errorf("after completion: progress=%d status=%s", got.Progress, got.Status)
	}

	var types []events.Type
	for len(types) < 2 {
		select {
		case ev := <-ch:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("expected progress+completed events, got %v", types)
		}
	}
	if types[0] != events.TypeProgress || types[1] != events.TypeCompleted {
		t.Errorf("event order = %v", types)
	}
}

func TestUpdateResultNotesOnly(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	project, _ := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"})
	results, _ := m.ResultsForProject(ctx, project.ID)

	notes := "Call was not routed to the correct agent"
	updated, err := m.UpdateResult(ctx, results[0].ID, models.UpdateResultRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}
	if updated.Notes != notes || updated.Status != models.StatusNotStarted {
		t.Errorf("updated = %+v", updated)
	}

	// Notes alone must not move progress.
	got, _ := m.GetProject(ctx, project.ID)
	if got.Progress != 0 || got.Status != models.ProjectNotStarted {
		t.Errorf("notes update moved progress: %+v", got)
	}
}

func TestUpdateResultErrors(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	passed := models.StatusPassed
	if _, err := m.UpdateResult(ctx, "missing", models.UpdateResultRequest{Status: &passed}); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("unknown result: got %v", err)
	}

	project, _ := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"})
	results, _ := m.ResultsForProject(ctx, project.ID)

	bogus := models.TestStatus("Maybe")
	if _, err := m.UpdateResult(ctx, results[0].ID, models.UpdateResultRequest{Status: &bogus}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status: got %v", err)
	}
}

func TestAssignResult(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, repo, "tester", "t@acme.example", models.RoleTester, "Acme Corporation")

	project, _ := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"})
	results, _ := m.ResultsForProject(ctx, project.ID)

	assignee := "tester"
	updated, err := m.AssignResult(ctx, results[0].ID, &assignee)
	if err != nil {
		t.Fatalf("AssignResult failed: %v", err)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != "tester" {
		t.Errorf("assignee = %v", updated.AssignedTo)
	}

	// Assigning an ID that is not on the roster is accepted; display
	// resolution degrades to a placeholder instead.
	gone := "departed-user"
	if _, err := m.AssignResult(ctx, results[0].ID, &gone); err != nil {
		t.Errorf("off-roster assignment rejected: %v", err)
	}

	cleared, err := m.AssignResult(ctx, results[0].ID, nil)
	if err != nil {
		t.Fatalf("clearing assignment failed: %v", err)
	}
	if cleared.AssignedTo != nil {
		t.Errorf("assignment not cleared: %v", *cleared.AssignedTo)
	}

	if _, err := m.AssignResult(ctx, "missing", &assignee); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("unknown result: got %v", err)
	}
}

func TestRosterExcludesManagers(t *testing.T) {
	m, repo, _ := newTestManager(t)
	seedUser(t, repo, "mgr", "mgr@cloudwarriors.example", models.RoleManager, "")
	seedUser(t, repo, "tester", "t@acme.example", models.RoleTester, "Acme Corporation")

	roster, err := m.Roster(context.Background())
	if err != nil {
		t.Fatalf("Roster failed: %v", err)
	}
	if len(roster) != 1 || roster[0].ID != "tester" {
		t.Errorf("roster = %+v", roster)
	}
}

func TestProjectSummary(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	project, _ := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"})
	results, _ := m.ResultsForProject(ctx, project.ID)

	passed := models.StatusPassed
	if _, err := m.UpdateResult(ctx, results[0].ID, models.UpdateResultRequest{Status: &passed}); err != nil {
		t.Fatal(err)
	}

	view, completion, err := m.ProjectSummary(ctx, project.ID)
	if err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	if completion.Total != 2 || completion.Completed != 1 || completion.Percentage != 50 {
		t.Errorf("completion = %+v", completion)
	}
	if len(view.Categories) != 1 || view.Categories[0].Name != "Login" {
		t.Errorf("view = %+v", view)
	}

	if _, _, err := m.ProjectSummary(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("unknown project: got %v", err)
	}
}

func TestSetProgress(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	project, _ := m.CreateProject(ctx, models.CreateProjectRequest{Name: "Acme", Customer: "Acme Corporation"})

	updated, err := m.SetProgress(ctx, project.ID, 50)
	if err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	if updated.Progress != 50 {
		t.Errorf("progress = %d", updated.Progress)
	}
	// Status derives from the actual results, so a client-pushed number
	// cannot mark an untouched project complete.
	if updated.Status != models.ProjectNotStarted {
		t.Errorf("status = %s", updated.Status)
	}

	if _, err := m.SetProgress(ctx, project.ID, 250); err == nil {
		t.Error("expected error for out-of-range progress")
	}
	if _, err := m.SetProgress(ctx, "missing", 10); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("unknown project: got %v", err)
	}
}
