// Package shield provides reusable HTTP middleware for the natal services:
// security headers, per-client rate limiting, body limits, request tracing,
// and a maintenance switch.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxJSONBody(64 * 1024))
//	r.Use(shield.TraceID)
//	r.Use(shield.NewRateLimiter(db, shield.RateLimitConfig{}).Middleware)
//
// Or apply the default API stack in one call:
//
//	stack, mm, rl := shield.DefaultAPIStack(db, fallback)
//	mm.StartReloader(done)
//	rl.StartReloader(done)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the standard middleware stack for a natal API
// service, ordered: Maintenance → SecurityHeaders → MaxJSONBody → TraceID →
// RateLimiter. The returned MaintenanceMode and RateLimiter handles allow
// callers to start the flag and rule reloaders. Health checks (/healthz)
// bypass maintenance and rate limiting.
func DefaultAPIStack(db *sql.DB, fallback RateLimitConfig) ([]func(http.Handler) http.Handler, *MaintenanceMode, *RateLimiter) {
	rl := NewRateLimiter(db, fallback, "/healthz")
	mm := NewMaintenanceMode(db, "/healthz")
	return []func(http.Handler) http.Handler{
		mm.Middleware,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(64 * 1024),
		TraceID,
		rl.Middleware,
	}, mm, rl
}
