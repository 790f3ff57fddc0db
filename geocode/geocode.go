// CLAUDE:SUMMARY Place-name resolution with provider strategies (Nominatim, OpenCage), tzf timezone lookup, and a TTL cache.
// Package geocode resolves free-text place names to coordinates plus an IANA
// timezone, with a time-bounded in-memory cache in front of the configured
// provider.
//
// Two interchangeable provider strategies exist (an API-keyed OpenCage-style
// provider and the free Nominatim-style provider); the choice is made once at
// configuration time, never inside this package's logic. A provider miss, a
// non-2xx response, or an unresolvable timezone is a hard failure — the
// resolver never silently substitutes a default location.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTTL is the cache lifetime of a resolved place.
const DefaultTTL = 24 * time.Hour

// Result is a resolved place. Cached entries are shared and read-mostly;
// callers must not mutate them.
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	Provider    string  `json:"provider"`
	DisplayName string  `json:"displayName"`
}

// Error is the typed failure for place resolution.
type Error struct {
	Place string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("geocode: %q: %v", e.Place, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ProviderResult is the provider-agnostic shape both strategies reduce to.
type ProviderResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Provider is one geocoding strategy.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, place string) (*ProviderResult, error)
}

// TimezoneFinder maps coordinates to an IANA timezone identifier.
// Deterministic and offline; the tzf-backed implementation is in tz.go.
type TimezoneFinder interface {
	TimezoneName(lat, lon float64) string
}

// Config holds dependencies for creating a Resolver.
type Config struct {
	Provider Provider
	Timezone TimezoneFinder
	// Cache defaults to an in-process MemoryCache.
	Cache Cache
	// TTL for cached results. Default: DefaultTTL.
	TTL time.Duration
	// Timeout per provider call. Default: 7s.
	Timeout time.Duration

	Logger *slog.Logger
	// Now is the cache clock. Default: time.Now.
	Now func() time.Time
}

// Resolver resolves place names through the cache and provider.
type Resolver struct {
	provider Provider
	tz       TimezoneFinder
	cache    Cache
	ttl      time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a Resolver with the given dependencies.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		provider: cfg.Provider,
		tz:       cfg.Timezone,
		cache:    cfg.Cache,
		ttl:      cfg.TTL,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if r.cache == nil {
		r.cache = NewMemoryCache()
	}
	if r.ttl <= 0 {
		r.ttl = DefaultTTL
	}
	if r.timeout <= 0 {
		r.timeout = 7 * time.Second
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// CacheKey normalizes a place query into its cache key (trim + lowercase).
func CacheKey(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}

// Resolve returns the place for a free-text query, from cache when fresh,
// otherwise from the provider under the configured timeout. Fresh results are
// cached with the configured TTL before being returned.
func (r *Resolver) Resolve(ctx context.Context, place string) (*Result, error) {
	key := CacheKey(place)
	if key == "" {
		return nil, &Error{Place: place, Err: fmt.Errorf("empty place")}
	}

	now := r.now()
	if cached, ok := r.cache.Get(key, now); ok {
		r.logger.Debug("geocode: cache hit", "place", key)
		return cached, nil
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pr, err := r.provider.Geocode(cctx, key)
	if err != nil {
		return nil, &Error{Place: place, Err: err}
	}

	tz := r.tz.TimezoneName(pr.Lat, pr.Lon)
	if tz == "" {
		return nil, &Error{Place: place, Err: fmt.Errorf("no timezone for lat=%v lon=%v", pr.Lat, pr.Lon)}
	}

	res := &Result{
		Lat:         pr.Lat,
		Lon:         pr.Lon,
		Timezone:    tz,
		Provider:    r.provider.Name(),
		DisplayName: pr.DisplayName,
	}
	r.cache.Set(key, res, now.Add(r.ttl))

	r.logger.Info("geocode: resolved",
		"place", key,
		"provider", res.Provider,
		"timezone", tz)
	return res, nil
}
