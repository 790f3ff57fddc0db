// CLAUDE:SUMMARY Per-client fixed-window rate limiter with SQLite-backed per-endpoint rules and a config fallback.
package shield

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/natal/kit"
)

// RateLimitConfig defines the rate limit for a single endpoint.
type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
	Enabled       bool
}

type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter provides per-client, per-endpoint fixed-window rate limiting
// backed by a SQLite rate_limits table, with a fallback rule for endpoints
// the table does not cover. Rules are reloaded periodically and expired
// buckets are garbage collected.
//
// The client identity is the first address in X-Forwarded-For. Requests
// without the header share the "unknown" bucket: behind a proxy that always
// sets the header this only groups misconfigured traffic, and it fails
// closed rather than open.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS rate_limits (
//	    endpoint TEXT PRIMARY KEY,
//	    max_requests INTEGER NOT NULL DEFAULT 60,
//	    window_seconds INTEGER NOT NULL DEFAULT 60,
//	    enabled INTEGER NOT NULL DEFAULT 1
//	);
type RateLimiter struct {
	db       *sql.DB
	fallback RateLimitConfig
	rules    map[string]RateLimitConfig
	buckets  sync.Map
	mu       sync.RWMutex
	exclude  []string // path prefixes excluded from rate limiting
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter that reads rules from the rate_limits
// table in db. Endpoints without a row use fallback. Call StartReloader to
// enable periodic rule refresh and GC.
func NewRateLimiter(db *sql.DB, fallback RateLimitConfig, excludePrefixes ...string) *RateLimiter {
	rl := &RateLimiter{
		db:       db,
		fallback: fallback,
		rules:    make(map[string]RateLimitConfig),
		exclude:  excludePrefixes,
		now:      time.Now,
	}
	rl.reload()
	return rl
}

// StartReloader starts background goroutines for rule reloading (every 60s)
// and bucket GC (every 5min). Stops when done is closed.
func (rl *RateLimiter) StartReloader(done <-chan struct{}) {
	reloadTick := time.NewTicker(60 * time.Second)
	gcTick := time.NewTicker(5 * time.Minute)
	go func() {
		defer reloadTick.Stop()
		defer gcTick.Stop()
		for {
			select {
			case <-done:
				return
			case <-reloadTick.C:
				rl.reload()
			case <-gcTick.C:
				rl.gc()
			}
		}
	}()
}

func (rl *RateLimiter) reload() {
	if rl.db == nil {
		return
	}
	rows, err := rl.db.Query(`SELECT endpoint, max_requests, window_seconds, enabled FROM rate_limits`)
	if err != nil {
		slog.Warn("ratelimit: failed to reload rules", "error", err)
		return
	}
	defer rows.Close()

	rules := make(map[string]RateLimitConfig)
	for rows.Next() {
		var endpoint string
		var cfg RateLimitConfig
		var enabled int
		if err := rows.Scan(&endpoint, &cfg.MaxRequests, &cfg.WindowSeconds, &enabled); err != nil {
			continue
		}
		cfg.Enabled = enabled == 1
		rules[endpoint] = cfg
	}

	rl.mu.Lock()
	rl.rules = rules
	rl.mu.Unlock()

	slog.Debug("ratelimit: rules reloaded", "count", len(rules))
}

func (rl *RateLimiter) gc() {
	now := rl.now()
	rl.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		expired := now.After(b.resetAt)
		b.mu.Unlock()
		if expired {
			rl.buckets.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) rule(endpoint string) (RateLimitConfig, bool) {
	rl.mu.RLock()
	cfg, ok := rl.rules[endpoint]
	rl.mu.RUnlock()
	if !ok {
		cfg = rl.fallback
	}
	if !cfg.Enabled || cfg.MaxRequests <= 0 || cfg.WindowSeconds <= 0 {
		return RateLimitConfig{}, false
	}
	return cfg, true
}

// allow reports whether the request fits in the client's current window and,
// when it does not, how long until the window resets.
func (rl *RateLimiter) allow(client, endpoint string) (bool, time.Duration) {
	cfg, enforced := rl.rule(endpoint)
	if !enforced {
		return true, 0
	}

	key := client + ":" + endpoint
	now := rl.now()
	window := time.Duration(cfg.WindowSeconds) * time.Second

	val, loaded := rl.buckets.LoadOrStore(key, &bucket{count: 1, resetAt: now.Add(window)})
	if !loaded {
		return true, 0
	}

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.After(b.resetAt) {
		b.count = 1
		b.resetAt = now.Add(window)
		return true, 0
	}

	b.count++
	if b.count <= cfg.MaxRequests {
		return true, 0
	}
	return false, b.resetAt.Sub(now)
}

// Middleware enforces rate limits and injects the client identity into the
// request context. Over-limit requests get a 429 JSON envelope with a
// Retry-After header counting down the remaining window.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		endpoint := r.Method + " " + r.URL.Path
		client := ClientID(r)
		ctx := kit.WithClient(r.Context(), client)

		ok, retryAfter := rl.allow(client, endpoint)
		if ok {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		slog.Warn("ratelimit: request blocked", "client", client, "endpoint", endpoint)

		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"code":  "RATE_LIMITED",
			"error": "rate limit exceeded, retry later",
		})
	})
}

// ClientID returns the rate-limit identity for a request: the first address
// in X-Forwarded-For, or "unknown" when the header is absent.
func ClientID(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return "unknown"
	}
	if i := strings.IndexByte(xff, ','); i >= 0 {
		xff = xff[:i]
	}
	ip := strings.TrimSpace(xff)
	if ip == "" {
		return "unknown"
	}
	return ip
}
