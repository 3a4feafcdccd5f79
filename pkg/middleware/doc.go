// Package middleware provides per-organization rate limiting for the tenant API.
//
// Two limiters implement Limiter:
//
//	MemoryLimiter  token bucket kept in process, for single-replica deployments
//	RedisLimiter   fixed window counter in Redis, shared between replicas
//
// RateLimit wraps a handler and keys requests by the organization stored in the
// request context by the tenant middleware:
//
//	limiter := middleware.NewLimiter(redisClient, cfg)
//	tenant.Use(middleware.RateLimit(limiter))
//
// Rejected requests receive 429 with Retry-After and X-RateLimit-* headers.
// Limiter errors fail open: the request is served and the error logged.
package middleware
