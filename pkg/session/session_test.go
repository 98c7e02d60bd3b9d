package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

type fakeAPI struct {
	loginResp *models.LoginResponse
	loginErr  error
	logoutErr error
	logouts   int
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logouts++
	return f.logoutErr
}

func testLoginResponse() *models.LoginResponse {
	return &models.LoginResponse{
		Token: "tok-abc",
		User:  &models.User{ID: "u1", Email: "tester@cloudwarriors.ai", Role: models.RoleTester},
	}
}

func TestLoginStoresSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)
	api := &fakeAPI{loginResp: testLoginResponse()}

	user, err := store.Login(context.Background(), api, "tester@cloudwarriors.ai", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("user = %+v", user)
	}
	if !store.IsAuthenticated() {
		t.Fatal("store should be authenticated")
	}
	if store.Token() != "tok-abc" {
		t.Fatalf("token = %q", store.Token())
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("session file not written: %v", err)
	}
}

func TestLoginFailureLeavesStoreLoggedOut(t *testing.T) {
	store := NewStore("")
	api := &fakeAPI{loginErr: errors.New("invalid credentials")}

	if _, err := store.Login(context.Background(), api, "a@b.c", "wrong"); err == nil {
		t.Fatal("expected an error")
	}
	if store.IsAuthenticated() {
		t.Fatal("store should stay logged out")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	first := NewStore(path)
	if _, err := first.Login(context.Background(), &fakeAPI{loginResp: testLoginResponse()}, "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	second := NewStore(path)
	if err := second.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if second.Token() != "tok-abc" {
		t.Fatalf("restored token = %q", second.Token())
	}
	if u := second.CurrentUser(); u == nil || u.Email != "tester@cloudwarriors.ai" {
		t.Fatalf("restored user = %+v", u)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"))
	if err := store.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("missing file should leave the store logged out")
	}
}

func TestRestoreDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store := NewStore(path)
	if err := store.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("corrupt file should not authenticate the store")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt file should be removed")
	}
}

func TestLogoutClearsEvenWhenRevocationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)
	api := &fakeAPI{loginResp: testLoginResponse(), logoutErr: errors.New("server down")}
	if _, err := store.Login(context.Background(), api, "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := store.Logout(context.Background(), api); err == nil {
		t.Fatal("expected revocation error to surface")
	}
	if api.logouts != 1 {
		t.Fatalf("logouts = %d", api.logouts)
	}
	if store.IsAuthenticated() {
		t.Fatal("local session should be cleared")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("session file should be removed")
	}
}
