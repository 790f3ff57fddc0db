package chart

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/natal/aspect"
	"github.com/hazyhaar/natal/astro"
	"github.com/hazyhaar/natal/ephem"
)

// fakeEphemeris serves canned longitudes and houses, with per-body failure
// injection.
type fakeEphemeris struct {
	longitudes map[string]float64
	failBodies map[string]error
	failHouses error
	calls      atomic.Int64
}

func (f *fakeEphemeris) Name() string { return "fake" }

func (f *fakeEphemeris) JulianDay(_ context.Context, _ string) (float64, error) {
	return 2447893.020833, nil
}

func (f *fakeEphemeris) PlanetLongitude(_ context.Context, _ float64, body string) (float64, error) {
	f.calls.Add(1)
	if err, ok := f.failBodies[body]; ok {
		return 0, err
	}
	lon, ok := f.longitudes[body]
	if !ok {
		return 0, errors.New("no canned longitude for " + body)
	}
	return lon, nil
}

func (f *fakeEphemeris) HousesPlacidus(_ context.Context, _, _, _ float64) (*ephem.HousesResult, error) {
	if f.failHouses != nil {
		return nil, f.failHouses
	}
	return &ephem.HousesResult{
		Cusps:     []float64{5, 35, 65, 95, 125, 155, 185, 215, 245, 275, 305, 335},
		Ascendant: 5.5,
		Midheaven: 275.5,
	}, nil
}

func cannedLongitudes() map[string]float64 {
	m := make(map[string]float64)
	for i, body := range astro.RequiredBodies {
		m[body] = float64(i * 25)
	}
	m[astro.Chiron] = 123.456789
	return m
}

func newTestBuilder(eph Ephemeris) *Builder {
	return NewBuilder(BuilderConfig{
		Ephemeris: eph,
		Now:       func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
}

func TestBuildFullChart(t *testing.T) {
	fake := &fakeEphemeris{longitudes: cannedLongitudes()}
	b := newTestBuilder(fake)

	got, err := b.Build(context.Background(), Input{
		DatetimeUTC: "1990-01-01T12:30:00Z",
		Lat:         40.7128,
		Lon:         -74.006,
		Zodiac:      "tropical",
		HouseSystem: "placidus",
		Tolerances:  aspect.Tolerances{Default: 6, Luminary: 8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 11 required bodies + chiron + asc + mc.
	if len(got.Points) != 14 {
		t.Errorf("got %d points, want 14", len(got.Points))
	}
	if got.Points[astro.Asc] != 5.5 || got.Points[astro.MC] != 275.5 {
		t.Errorf("asc/mc = %v/%v, want 5.5/275.5", got.Points[astro.Asc], got.Points[astro.MC])
	}
	if got.Houses == nil || len(got.Houses.Cusps) != 12 {
		t.Fatal("expected 12 placidus cusps")
	}
	if got.Meta.JDUT != 2447893.020833 {
		t.Errorf("jd_ut = %v", got.Meta.JDUT)
	}
	if got.Meta.Ephemeris != "fake" || got.Meta.Zodiac != "tropical" {
		t.Errorf("meta = %+v", got.Meta)
	}
	if got.Meta.GeneratedAt != "2026-03-01T10:00:00Z" {
		t.Errorf("generatedAt = %q", got.Meta.GeneratedAt)
	}
	if err := Validate(got); err != nil {
		t.Errorf("built chart fails validation: %v", err)
	}
}

func TestBuildWholeSignCusps(t *testing.T) {
	fake := &fakeEphemeris{longitudes: cannedLongitudes()}
	b := newTestBuilder(fake)

	got, err := b.Build(context.Background(), Input{
		DatetimeUTC: "1990-01-01T12:30:00Z",
		HouseSystem: "wholeSign",
		Zodiac:      "tropical",
		Tolerances:  aspect.Tolerances{Default: 6, Luminary: 8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Ascendant 5.5 → Aries boundary 0.
	if got.Houses.Cusps[0] != 0 || got.Houses.Cusps[11] != 330 {
		t.Errorf("whole-sign cusps = %v", got.Houses.Cusps)
	}
}

func TestBuildChironFailureTolerated(t *testing.T) {
	fake := &fakeEphemeris{
		longitudes: cannedLongitudes(),
		failBodies: map[string]error{astro.Chiron: errors.New("chiron unavailable")},
	}
	b := newTestBuilder(fake)

	got, err := b.Build(context.Background(), Input{
		DatetimeUTC: "1990-01-01T12:30:00Z",
		HouseSystem: "placidus",
		Zodiac:      "tropical",
		Tolerances:  aspect.Tolerances{Default: 6, Luminary: 8},
	})
	if err != nil {
		t.Fatalf("chiron failure must not abort the build: %v", err)
	}
	if _, ok := got.Points[astro.Chiron]; ok {
		t.Error("failed chiron should be absent from points")
	}
	if len(got.Points) != 13 {
		t.Errorf("got %d points, want 13", len(got.Points))
	}
}

func TestBuildRequiredBodyFailureAborts(t *testing.T) {
	fake := &fakeEphemeris{
		longitudes: cannedLongitudes(),
		failBodies: map[string]error{astro.Mars: errors.New("mars computation failed")},
	}
	b := newTestBuilder(fake)

	_, err := b.Build(context.Background(), Input{
		DatetimeUTC: "1990-01-01T12:30:00Z",
		HouseSystem: "placidus",
		Zodiac:      "tropical",
	})
	if err == nil {
		t.Fatal("expected error for required body failure")
	}
	var cerr *ComputationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ComputationError, got %T", err)
	}
}

func TestBuildHousesFailureAborts(t *testing.T) {
	fake := &fakeEphemeris{
		longitudes: cannedLongitudes(),
		failHouses: errors.New("houses unavailable"),
	}
	b := newTestBuilder(fake)

	_, err := b.Build(context.Background(), Input{
		DatetimeUTC: "1990-01-01T12:30:00Z",
		HouseSystem: "placidus",
		Zodiac:      "tropical",
	})
	var cerr *ComputationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ComputationError, got %v", err)
	}
}
