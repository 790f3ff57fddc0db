package chartsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/natal/aspect"
	"github.com/hazyhaar/natal/chart"
)

func serviceFixture(t *testing.T) *httptest.Server {
	t.Helper()
	h := newTestHandler(t)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCompute(t *testing.T) {
	srv := serviceFixture(t)
	c, err := NewClient(ClientConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.Compute(context.Background(), &Request{
		DatetimeUTC: "1990-01-01T12:30:00Z",
		Lat:         40.7128,
		Lon:         -74.006,
		Zodiac:      "tropical",
		HouseSystem: "placidus",
		Aspects:     &aspect.Tolerances{Default: 6, Luminary: 8},
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Meta.Ephemeris != "fake" {
		t.Errorf("ephemeris = %q", got.Meta.Ephemeris)
	}
	if err := chart.Validate(got); err != nil {
		t.Errorf("chart does not validate: %v", err)
	}
}

func TestClientComputeRejectsMalformedChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Points outside [0,360) must be rejected, never coerced.
		json.NewEncoder(w).Encode(map[string]any{
			"meta":   map[string]any{"datetimeUtc": "1990-01-01T12:30:00Z"},
			"points": map[string]float64{"sun": 480.0},
		})
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{Endpoint: srv.URL})
	if _, err := c.Compute(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error for malformed chart")
	}
}

func TestClientComputeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":"EPHEMERIS_ERROR"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientConfig{Endpoint: srv.URL})
	if _, err := c.Compute(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestNewClientRejectsBadEndpoint(t *testing.T) {
	if _, err := NewClient(ClientConfig{Endpoint: "not-a-url"}); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}
