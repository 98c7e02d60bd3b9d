// Package session keeps the authenticated portal identity for a client
// process: the bearer token and the current user, optionally persisted
// to disk so a restart can resume without logging in again.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/pkg/client"
)

// LoginClient is the part of the transport client the store needs
type LoginClient interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
}

type state struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Store holds the current session. The zero value is a logged-out
// in-memory store; NewStore adds file persistence.
type Store struct {
	mu    sync.RWMutex
	path  string
	token string
	user  *models.User
}

// NewStore creates a session store persisted at path. Pass an empty
// path for a purely in-memory store.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Token returns the current bearer token, or "" when logged out.
// Satisfies the transport client's TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns the authenticated user, or nil when logged out
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether a session is active
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Login authenticates through the transport client and keeps the
// issued token and user, persisting them when a path is configured.
func (s *Store) Login(ctx context.Context, api LoginClient, email, password string) (*models.User, error) {
	resp, err := api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.token = resp.Token
	s.user = resp.User
	s.mu.Unlock()

	if err := s.save(); err != nil {
		slog.Warn("failed to persist session", "error", err)
	}
	return resp.User, nil
}

// Logout revokes the token server-side and clears local state. The
// local session is cleared even when revocation fails.
func (s *Store) Logout(ctx context.Context, api LoginClient) error {
	err := api.Logout(ctx)
	s.Clear()
	return err
}

// Restore loads a previously persisted session from disk. A missing
// file leaves the store logged out; a corrupt file is discarded.
func (s *Store) Restore() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil || st.Token == "" {
		slog.Warn("discarding unreadable session file", "path", s.path)
		return s.Clear()
	}

	s.mu.Lock()
	s.token = st.Token
	s.user = st.User
	s.mu.Unlock()
	return nil
}

// Clear drops the in-memory session and removes the persisted file
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	st := state{Token: s.token, User: s.user}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	// Tokens live in this file, keep it owner-only.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

var _ client.TokenSource = (*Store)(nil)
