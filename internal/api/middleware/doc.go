// Package middleware provides the HTTP middleware stack for the codelab server.
//
// Middleware stack includes:
//   - RequestID: Assigns or propagates X-Request-ID
//   - Logger: One zap line per request, level chosen by status
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
