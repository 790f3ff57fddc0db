// Package safehttp provides the outbound HTTP hygiene helpers shared by the
// pipeline's backend clients: endpoint URL validation and bounded response
// reads.
//
// Unlike user-supplied URLs, the endpoints validated here are operator
// configuration (ephemeris backend, geocode provider, chart service,
// generation service), so validation checks scheme and host sanity but does
// not reject private or loopback addresses — internal backends are the
// normal case.
package safehttp

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// MaxResponseBody is the default cap for HTTP response body reads (1 MiB).
const MaxResponseBody int64 = 1 << 20

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("safehttp: only http and https schemes are allowed")

// ErrNoHost is returned when a URL has no hostname.
var ErrNoHost = errors.New("safehttp: URL has no host")

// ValidateEndpoint checks that rawURL parses, uses http or https, and has a
// hostname. Called once at client construction so misconfiguration surfaces
// at startup rather than on the first request.
func ValidateEndpoint(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safehttp: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return ErrNoHost
	}
	return nil
}

// LimitedReadAll reads at most max bytes from r and errors if the content
// exceeds the limit. Use instead of io.ReadAll on any remote response body.
func LimitedReadAll(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("safehttp: response exceeds %d bytes", max)
	}
	return data, nil
}
