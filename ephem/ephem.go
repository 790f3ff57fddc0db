// Package ephem is the adapter to the external astronomical computation
// backend. It converts UTC timestamps to Julian Days and fetches planetary
// longitudes and Placidus house cusps over HTTP.
//
// The backend is a black box meeting a documented numeric contract
// (geocentric ecliptic longitudes, standard Gregorian calendar). Every
// returned payload is defensively validated: a missing or non-finite value,
// or a cusp array not of length 12, fails with *Error. The adapter never
// substitutes a default value. All longitudes are normalized to [0,360) and
// rounded before being returned.
package ephem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/natal/astro"
	"github.com/hazyhaar/natal/safehttp"
)

// Error is the typed failure for any ephemeris backend problem: transport,
// non-2xx status, or an invalid numeric payload.
type Error struct {
	Op  string // "julian_day", "longitude", "houses"
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("ephem: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// bodyIDs maps chart point keys to backend body identifiers
// (Swiss-ephemeris numbering; mean node for the lunar node).
var bodyIDs = map[string]int{
	astro.Sun:     0,
	astro.Moon:    1,
	astro.Mercury: 2,
	astro.Venus:   3,
	astro.Mars:    4,
	astro.Jupiter: 5,
	astro.Saturn:  6,
	astro.Uranus:  7,
	astro.Neptune: 8,
	astro.Pluto:   9,
	astro.Node:    10,
	astro.Chiron:  15,
}

// HousesResult is the validated house computation output.
type HousesResult struct {
	Cusps     []float64 `json:"cusps"`
	Ascendant float64   `json:"ascendant"`
	Midheaven float64   `json:"midheaven"`
}

// Config configures the backend client.
type Config struct {
	// Endpoint is the backend base URL, e.g. "http://localhost:8100".
	Endpoint string
	// Timeout per backend call. Default: 10s.
	Timeout time.Duration
	// Flags forwarded verbatim to the longitude endpoint. Default: 0.
	Flags int
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Client calls the astronomical computation backend.
type Client struct {
	endpoint string
	flags    int
	client   *http.Client
}

// New creates a backend client. The endpoint URL is validated up front.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	if err := safehttp.ValidateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("ephem: %w", err)
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		flags:    cfg.Flags,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name identifies the backend for chart metadata.
func (c *Client) Name() string { return "swisseph-http" }

// JulianDay converts a UTC timestamp ("2006-01-02T15:04:05Z") to a Julian Day.
func (c *Client) JulianDay(ctx context.Context, datetimeUTC string) (float64, error) {
	var out struct {
		JD *float64 `json:"jd"`
	}
	err := c.post(ctx, "/api/julian-day", map[string]any{"datetimeUtc": datetimeUTC}, &out)
	if err != nil {
		return 0, &Error{Op: "julian_day", Err: err}
	}
	if out.JD == nil || !finite(*out.JD) {
		return 0, &Error{Op: "julian_day", Err: fmt.Errorf("missing or non-finite jd in response")}
	}
	return *out.JD, nil
}

// PlanetLongitude fetches the ecliptic longitude of one body, normalized and
// rounded. body must be a known chart point key.
func (c *Client) PlanetLongitude(ctx context.Context, jd float64, body string) (float64, error) {
	id, ok := bodyIDs[body]
	if !ok {
		return 0, &Error{Op: "longitude", Err: fmt.Errorf("unknown body %q", body)}
	}
	var out struct {
		Longitude *float64 `json:"longitude"`
	}
	err := c.post(ctx, "/api/longitude", map[string]any{
		"jd": jd, "body": id, "flags": c.flags,
	}, &out)
	if err != nil {
		return 0, &Error{Op: "longitude", Err: fmt.Errorf("body %s: %w", body, err)}
	}
	if out.Longitude == nil || !finite(*out.Longitude) {
		return 0, &Error{Op: "longitude", Err: fmt.Errorf("body %s: missing or non-finite longitude", body)}
	}
	return astro.Round(astro.NormalizeDegrees(*out.Longitude)), nil
}

// HousesPlacidus fetches the twelve Placidus cusps plus ascendant and
// midheaven for the given instant and place. All values normalized and
// rounded; a cusp array of any length other than 12 is a failure.
func (c *Client) HousesPlacidus(ctx context.Context, jd, lat, lon float64) (*HousesResult, error) {
	var out struct {
		Cusps     []float64 `json:"cusps"`
		Ascendant *float64  `json:"ascendant"`
		Midheaven *float64  `json:"midheaven"`
	}
	err := c.post(ctx, "/api/houses", map[string]any{
		"jd": jd, "lat": lat, "lon": lon, "houseSystem": "placidus",
	}, &out)
	if err != nil {
		return nil, &Error{Op: "houses", Err: err}
	}
	if len(out.Cusps) != 12 {
		return nil, &Error{Op: "houses", Err: fmt.Errorf("got %d cusps, want 12", len(out.Cusps))}
	}
	if out.Ascendant == nil || !finite(*out.Ascendant) {
		return nil, &Error{Op: "houses", Err: fmt.Errorf("missing or non-finite ascendant")}
	}
	if out.Midheaven == nil || !finite(*out.Midheaven) {
		return nil, &Error{Op: "houses", Err: fmt.Errorf("missing or non-finite midheaven")}
	}

	res := &HousesResult{
		Cusps:     make([]float64, 12),
		Ascendant: astro.Round(astro.NormalizeDegrees(*out.Ascendant)),
		Midheaven: astro.Round(astro.NormalizeDegrees(*out.Midheaven)),
	}
	for i, cusp := range out.Cusps {
		if !finite(cusp) {
			return nil, &Error{Op: "houses", Err: fmt.Errorf("cusp %d non-finite", i+1)}
		}
		res.Cusps[i] = astro.Round(astro.NormalizeDegrees(cusp))
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(snippet))
	}

	data, err := safehttp.LimitedReadAll(resp.Body, safehttp.MaxResponseBody)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
