package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloud-warriors/uat-portal/internal/models"
	"github.com/cloud-warriors/uat-portal/internal/portal"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	manager portal.Manager
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(manager portal.Manager) *AuthMiddleware {
	return &AuthMiddleware{manager: manager}
}

// Authenticate resolves the bearer token from the Authorization header
// and injects the user into the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing_token", "provide Authorization header with Bearer token")
			return
		}

		user, err := m.manager.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, portal.ErrInvalidToken) {
				slog.Warn("invalid token attempt", "token_prefix", maskToken(token), "remote_addr", r.RemoteAddr)
				respondError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
				return
			}
			slog.Error("failed to authenticate request", "error", err)
			respondError(w, http.StatusInternalServerError, "auth_error", "internal server error")
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware that restricts a route to one role
func (m *AuthMiddleware) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			if user.Role != role {
				slog.Warn("role denied",
					"user_id", user.ID,
					"required", role,
					"has", user.Role,
				)
				respondError(w, http.StatusForbidden, "forbidden", "requires role: "+string(role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// maskToken returns first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
