package ephem

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	if _, err := New(Config{Endpoint: "ftp://backend"}); err == nil {
		t.Fatal("expected error for non-http endpoint")
	}
}

func TestJulianDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/julian-day" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["datetimeUtc"] != "1990-01-01T12:30:00Z" {
			t.Errorf("unexpected datetime %v", req["datetimeUtc"])
		}
		json.NewEncoder(w).Encode(map[string]float64{"jd": 2447893.020833})
	})

	jd, err := c.JulianDay(context.Background(), "1990-01-01T12:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jd != 2447893.020833 {
		t.Errorf("jd = %v", jd)
	}
}

func TestJulianDayMissingValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	if _, err := c.JulianDay(context.Background(), "1990-01-01T12:30:00Z"); err == nil {
		t.Fatal("expected error for missing jd")
	}
}

func TestPlanetLongitudeNormalizedAndRounded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"longitude": -5.1234567})
	})
	lon, err := c.PlanetLongitude(context.Background(), 2447893.0, "sun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lon != 354.876543 {
		t.Errorf("longitude = %v, want 354.876543", lon)
	}
}

func TestPlanetLongitudeUnknownBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"longitude": 10})
	})
	if _, err := c.PlanetLongitude(context.Background(), 2447893.0, "vulcan"); err == nil {
		t.Fatal("expected error for unknown body")
	}
}

func TestPlanetLongitudeBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.PlanetLongitude(context.Background(), 2447893.0, "sun")
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Op != "longitude" {
		t.Fatalf("expected *Error with op longitude, got %v", err)
	}
}

func TestHousesPlacidus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"cusps":     []float64{365, 35, 65, 95, 125, 155, 185, 215, 245, 275, 305, 335},
			"ascendant": 365.0,
			"midheaven": 275.5,
		})
	})
	got, err := c.HousesPlacidus(context.Background(), 2447893.0, 40.7, -74.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cusps[0] != 5 {
		t.Errorf("cusp 1 = %v, want normalized 5", got.Cusps[0])
	}
	if got.Ascendant != 5 || got.Midheaven != 275.5 {
		t.Errorf("asc/mc = %v/%v", got.Ascendant, got.Midheaven)
	}
}

func TestHousesPlacidusWrongCuspCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"cusps":     []float64{0, 30, 60},
			"ascendant": 5.0,
			"midheaven": 275.0,
		})
	})
	if _, err := c.HousesPlacidus(context.Background(), 2447893.0, 40.7, -74.0); err == nil {
		t.Fatal("expected error for 3 cusps")
	}
}

func TestHousesPlacidusMissingAscendant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"cusps":     []float64{5, 35, 65, 95, 125, 155, 185, 215, 245, 275, 305, 335},
			"midheaven": 275.0,
		})
	})
	if _, err := c.HousesPlacidus(context.Background(), 2447893.0, 40.7, -74.0); err == nil {
		t.Fatal("expected error for missing ascendant")
	}
}
