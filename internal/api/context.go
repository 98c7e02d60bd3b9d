package api

import (
	"context"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

type contextKey string

const (
	userContextKey  contextKey = "portal_user"
	tokenContextKey contextKey = "portal_token"
)

// UserFromContext extracts the authenticated user from context
func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithUser adds the authenticated user to context
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// TokenFromContext extracts the request's bearer token from context
func TokenFromContext(ctx context.Context) string {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok {
		return ""
	}
	return token
}

// ContextWithToken adds the request's bearer token to context
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
