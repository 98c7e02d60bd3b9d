package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore manages opaque bearer tokens. Tokens are issued at login,
// resolved on every authenticated request, and revoked at logout.
// Lookup returns "" for unknown or expired tokens, never an error for
// plain misses.
type TokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	Close() error
}

const tokenKeyPrefix = "uat:token:"

// RedisTokenStore implements TokenStore on Redis, using key TTLs for
// token expiry
type RedisTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTokenStore connects to Redis and returns a token store
func NewRedisTokenStore(address, password string, db int, ttl time.Duration) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTokenStore{client: client, ttl: ttl}, nil
}

// Issue creates a fresh token bound to userID for the configured TTL
func (s *RedisTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, tokenKeyPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, nil
}

// Lookup resolves a token to its user ID, "" when unknown or expired
func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up token: %w", err)
	}
	return userID, nil
}

// Revoke deletes a token; revoking an unknown token is not an error
func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// MemoryTokenStore implements TokenStore in process memory. Used by
// tests and single-node local development.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	tokens map[string]memoryToken
}

type memoryToken struct {
	userID    string
	expiresAt time.Time
}

// NewMemoryTokenStore creates an in-memory token store
func NewMemoryTokenStore(ttl time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{
		ttl:    ttl,
		tokens: make(map[string]memoryToken),
	}
}

func (s *MemoryTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	return token, nil
}

func (s *MemoryTokenStore) Lookup(ctx context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[token]
	if !ok || time.Now().After(t.expiresAt) {
		return "", nil
	}
	return t.userID, nil
}

func (s *MemoryTokenStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *MemoryTokenStore) Close() error { return nil }

// generateToken creates a cryptographically random 48-char hex token
func generateToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
