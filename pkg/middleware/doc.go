// Package middleware provides the HTTP middleware of the TartalaCRM API:
// bearer authentication and login throttling.
//
// # Authentication
//
// BearerAuth resolves the "Authorization: Bearer" token of every request to
// the calling user and stores it in the request context. Missing, malformed,
// expired or forged tokens are answered with 401 and a WWW-Authenticate
// header.
//
//	protected.Use(middleware.BearerAuth(svc))
//	principal := middleware.GetPrincipal(r)
//
// # Login throttling
//
// LoginRateLimit limits /get_token attempts per client address. It runs on
// any Limiter:
//
//	limiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig(10))
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.LoginRateLimitConfig(10), "")
//
// The in-memory RateLimiter is a token bucket local to the process. The
// DistributedRateLimiter counts attempts per fixed window in Redis so that
// every server instance shares the same budget. When the limiter fails the
// request is let through.
//
// Rejected attempts get 429 with a Retry-After header, increment the
// tartalacrm_login_rate_limited_total metric and are recorded in the audit trail.
package middleware
