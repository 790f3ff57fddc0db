package gateway

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hazyhaar/natal/shield"
)

// NewRouter assembles the gateway HTTP surface: CORS, the shield stack
// (maintenance, security headers, body cap, tracing, rate limiting), and the
// API routes. The caller starts the reloaders on the returned MaintenanceMode
// and RateLimiter handles.
func NewRouter(h *Handler, db *sql.DB, cfg *Config) (*chi.Mux, *shield.MaintenanceMode, *shield.RateLimiter) {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	stack, mm, rl := shield.DefaultAPIStack(db, shield.RateLimitConfig{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		Enabled:       cfg.RateLimit.Enabled,
	})
	for _, mw := range stack {
		r.Use(mw)
	}

	r.Get("/healthz", h.HandleHealthz)
	r.Post("/v1/reading", h.HandleReading)
	r.Get("/ops/audit", h.HandleAudit)

	return r, mm, rl
}
