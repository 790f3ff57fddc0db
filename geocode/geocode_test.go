package geocode

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	calls  int
	result *ProviderResult
	err    error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Geocode(_ context.Context, _ string) (*ProviderResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeTZ struct{ name string }

func (f *fakeTZ) TimezoneName(_, _ float64) string { return f.name }

func newTestResolver(p Provider, tz TimezoneFinder, now *time.Time) *Resolver {
	return NewResolver(Config{
		Provider: p,
		Timezone: tz,
		Now:      func() time.Time { return *now },
	})
}

func TestResolveCachesWithinTTL(t *testing.T) {
	p := &fakeProvider{result: &ProviderResult{Lat: 40.7128, Lon: -74.006, DisplayName: "New York"}}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := newTestResolver(p, &fakeTZ{name: "America/New_York"}, &now)

	first, err := r.Resolve(context.Background(), "New York, USA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Timezone != "America/New_York" || first.Provider != "fake" {
		t.Errorf("result = %+v", first)
	}

	// Same normalized key, different casing and spacing: must hit the cache.
	second, err := r.Resolve(context.Background(), "  new york, usa ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
	if second != first {
		t.Error("cache hit should return the shared cached value")
	}
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	p := &fakeProvider{result: &ProviderResult{Lat: 48.8566, Lon: 2.3522, DisplayName: "Paris"}}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := newTestResolver(p, &fakeTZ{name: "Europe/Paris"}, &now)

	if _, err := r.Resolve(context.Background(), "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(DefaultTTL + time.Minute)
	if _, err := r.Resolve(context.Background(), "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times after expiry, want 2", p.calls)
	}
}

func TestResolveProviderFailureIsHard(t *testing.T) {
	p := &fakeProvider{err: errors.New("upstream 500")}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := newTestResolver(p, &fakeTZ{name: "UTC"}, &now)

	_, err := r.Resolve(context.Background(), "Atlantis")
	if err == nil {
		t.Fatal("expected error")
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
}

func TestResolveTimezoneFailureIsHard(t *testing.T) {
	p := &fakeProvider{result: &ProviderResult{Lat: 0, Lon: -160, DisplayName: "Middle of the Pacific"}}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := newTestResolver(p, &fakeTZ{name: ""}, &now)

	if _, err := r.Resolve(context.Background(), "nowhere"); err == nil {
		t.Fatal("expected error for unresolvable timezone")
	}
}

func TestResolveEmptyPlace(t *testing.T) {
	p := &fakeProvider{}
	now := time.Now()
	r := newTestResolver(p, &fakeTZ{name: "UTC"}, &now)
	if _, err := r.Resolve(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty place")
	}
	if p.calls != 0 {
		t.Error("provider must not be called for empty place")
	}
}

func TestCacheKey(t *testing.T) {
	if CacheKey("  Lyon, France ") != "lyon, france" {
		t.Errorf("CacheKey = %q", CacheKey("  Lyon, France "))
	}
}

func TestMemoryCacheSweep(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.Set("a", &Result{}, now.Add(time.Hour))
	c.Set("b", &Result{}, now.Add(-time.Hour))
	c.Set("c", &Result{}, now.Add(-time.Minute))

	if dropped := c.SweepExpired(now); dropped != 2 {
		t.Errorf("dropped %d, want 2", dropped)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
	if _, ok := c.Get("a", now); !ok {
		t.Error("fresh entry evicted by sweep")
	}
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.Set("k", &Result{}, now.Add(time.Hour))

	if _, ok := c.Get("k", now.Add(59*time.Minute)); !ok {
		t.Error("entry should still be fresh")
	}
	if _, ok := c.Get("k", now.Add(61*time.Minute)); ok {
		t.Error("entry should have expired")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be deleted on lookup")
	}
}
