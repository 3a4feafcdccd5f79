// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithOrgID(ctx, org.ID)
//	orgID := contextkeys.GetOrgID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// OrgKey contains *orgs.Organization
	// Set by: api.TenantMiddleware
	// Required by: Org-scoped endpoints
	OrgKey Key = "organization"

	// OrgIDKey contains the tenant id (int64)
	// Set by: api.TenantMiddleware
	// Used by: Logger, service calls
	OrgIDKey Key = "org_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	LoggerKey Key = "logger"
)

// WithOrg adds organization to the context
func WithOrg(ctx context.Context, org interface{}) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}

// WithOrgID adds the tenant id to the context
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, OrgIDKey, orgID)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetOrgID retrieves the tenant id from context, 0 when absent
func GetOrgID(ctx context.Context) int64 {
	if orgID, ok := ctx.Value(OrgIDKey).(int64); ok {
		return orgID
	}
	return 0
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
