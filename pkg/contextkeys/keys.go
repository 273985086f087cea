// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers agree on names and value types.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/tartalacrm/pkg/contextkeys"
//	ctx = contextkeys.WithPrincipal(ctx, user)
//	user := contextkeys.Principal(ctx)
package contextkeys

import (
	"context"
	"strconv"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.User
	// Set by: middleware.BearerAuth (pkg/middleware/auth.go)
	// Required by: every protected API endpoint
	PrincipalKey Key = "principal"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	RequestIDKey Key = "request_id"

	// UserIDKey contains the principal's user ID as a string
	// Set by: middleware.BearerAuth
	// Used by: Logger, audit trail
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	LoggerKey Key = "logger"
)

// WithPrincipal stores the authenticated user, and its id for logging.
func WithPrincipal(ctx context.Context, user *auth.User) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, user)
	if user != nil {
		ctx = WithUserID(ctx, strconv.FormatInt(user.ID, 10))
	}
	return ctx
}

// Principal returns the authenticated user, or nil.
func Principal(ctx context.Context) *auth.User {
	user, _ := ctx.Value(PrincipalKey).(*auth.User)
	return user
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
