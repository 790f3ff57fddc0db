package chartsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/natal/chart"
	"github.com/hazyhaar/natal/safehttp"
)

// ErrInvalidResponse marks a chart service payload that failed schema
// validation. Callers distinguish it from transport failures with errors.Is.
var ErrInvalidResponse = errors.New("chartsvc: invalid chart from service")

// Client is the gateway-side client for the chart service. Responses are
// validated against the chart schema on receipt: a malformed payload is a
// hard failure, never coerced.
type Client struct {
	endpoint string
	client   *http.Client
}

// ClientConfig configures the chart service client.
type ClientConfig struct {
	// Endpoint is the chart service base URL; the route is POST
	// {endpoint}/v1/chart.
	Endpoint string
	// Timeout per chart call. Default: 12s.
	Timeout time.Duration
}

// NewClient creates a chart service client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := safehttp.ValidateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("chartsvc: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Compute posts a chart request and decodes + validates the chart.
func (c *Client) Compute(ctx context.Context, req *Request) (*chart.Chart, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chartsvc: marshal request: %w", err)
	}

	url := c.endpoint + "/v1/chart"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("chartsvc: HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chartsvc: HTTP %d from %s: %s", resp.StatusCode, url, string(snippet))
	}

	data, err := safehttp.LimitedReadAll(resp.Body, safehttp.MaxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("chartsvc: read response: %w", err)
	}

	var out chart.Chart
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := chart.Validate(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}
