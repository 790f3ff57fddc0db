package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hazyhaar/natal/safehttp"
)

// OpenCageEndpoint is the default API-keyed provider endpoint.
const OpenCageEndpoint = "https://api.opencagedata.com/geocode/v1/json"

// NominatimEndpoint is the default free provider endpoint.
const NominatimEndpoint = "https://nominatim.openstreetmap.org/search"

// OpenCage is the API-keyed provider strategy.
// Response shape: {"results":[{"formatted":..., "geometry":{"lat":..,"lng":..}}]}.
type OpenCage struct {
	APIKey   string
	Endpoint string // default: OpenCageEndpoint
	Client   *http.Client
}

// NewOpenCage creates the API-keyed provider. The API key is required.
func NewOpenCage(apiKey string, timeout time.Duration) (*OpenCage, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("geocode: opencage API key is required")
	}
	return &OpenCage{
		APIKey:   apiKey,
		Endpoint: OpenCageEndpoint,
		Client:   &http.Client{Timeout: timeout},
	}, nil
}

func (p *OpenCage) Name() string { return "opencage" }

// Geocode resolves place via the OpenCage API. Zero results or missing
// geometry is a hard failure.
func (p *OpenCage) Geocode(ctx context.Context, place string) (*ProviderResult, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("key", p.APIKey)
	q.Set("limit", "1")
	q.Set("no_annotations", "1")

	var out struct {
		Results []struct {
			Formatted string `json:"formatted"`
			Geometry  *struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := getJSON(ctx, p.Client, p.Endpoint+"?"+q.Encode(), "", &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 || out.Results[0].Geometry == nil {
		return nil, fmt.Errorf("no results for %q", place)
	}
	r := out.Results[0]
	return &ProviderResult{
		Lat:         r.Geometry.Lat,
		Lon:         r.Geometry.Lng,
		DisplayName: r.Formatted,
	}, nil
}

// Nominatim is the free public provider strategy.
// Response shape: [{"lat":"..","lon":"..","display_name":".."}] — coordinates
// arrive as strings and are parsed strictly.
type Nominatim struct {
	Endpoint  string // default: NominatimEndpoint
	UserAgent string // required by the provider's usage policy
	Client    *http.Client
}

// NewNominatim creates the free provider.
func NewNominatim(userAgent string, timeout time.Duration) *Nominatim {
	if userAgent == "" {
		userAgent = "natald/1.0"
	}
	return &Nominatim{
		Endpoint:  NominatimEndpoint,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (p *Nominatim) Name() string { return "nominatim" }

// Geocode resolves place via the Nominatim search API.
func (p *Nominatim) Geocode(ctx context.Context, place string) (*ProviderResult, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")

	var out []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := getJSON(ctx, p.Client, p.Endpoint+"?"+q.Encode(), p.UserAgent, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no results for %q", place)
	}
	lat, err := strconv.ParseFloat(out[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("bad lat %q: %w", out[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(out[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("bad lon %q: %w", out[0].Lon, err)
	}
	return &ProviderResult{Lat: lat, Lon: lon, DisplayName: out[0].DisplayName}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	data, err := safehttp.LimitedReadAll(resp.Body, safehttp.MaxResponseBody)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
