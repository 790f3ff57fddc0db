package reading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/natal/safehttp"
)

// HTTPGenerator calls a remote generation service that accepts the Request
// JSON and returns the Reading schema.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

// HTTPConfig configures the remote generation service client.
type HTTPConfig struct {
	// Endpoint is the service base URL; the reading route is POST
	// {endpoint}/v1/reading.
	Endpoint string
	// Timeout per generation call. Default: 16s.
	Timeout time.Duration
}

// NewHTTPGenerator creates the remote-service strategy.
func NewHTTPGenerator(cfg HTTPConfig) (*HTTPGenerator, error) {
	if err := safehttp.ValidateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 16 * time.Second
	}
	return &HTTPGenerator{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (g *HTTPGenerator) Name() string { return "http" }

// Generate posts the request and decodes + validates the reading. A non-2xx
// status or a schema mismatch is a hard failure.
func (g *HTTPGenerator) Generate(ctx context.Context, req *Request) (*Reading, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("reading: marshal request: %w", err)
	}

	url := g.endpoint + "/v1/reading"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("reading: HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reading: HTTP %d from %s: %s", resp.StatusCode, url, string(snippet))
	}

	data, err := safehttp.LimitedReadAll(resp.Body, safehttp.MaxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("reading: read response: %w", err)
	}

	var out Reading
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("reading: decode response: %w", err)
	}
	if err := Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
