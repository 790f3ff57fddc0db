package gateway

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/natal/aspect"
)

// GeocodeConfig selects and configures the geocode provider strategy.
type GeocodeConfig struct {
	Provider       string `yaml:"provider"` // "opencage" or "nominatim"
	OpenCageKey    string `yaml:"opencage_key"`
	UserAgent      string `yaml:"user_agent"` // nominatim only
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ChartConfig configures the remote chart service call.
type ChartConfig struct {
	Endpoint       string            `yaml:"endpoint"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Orbs           aspect.Tolerances `yaml:"orbs"`
}

// GenerationConfig selects and configures the generation strategy.
type GenerationConfig struct {
	Provider       string `yaml:"provider"` // "http" or "genai"
	Endpoint       string `yaml:"endpoint"` // http only
	APIKey         string `yaml:"api_key"`  // genai only
	Model          string `yaml:"model"`    // genai only
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RateLimitSettings is the fallback rule applied to endpoints without a row
// in the rate_limits table.
type RateLimitSettings struct {
	MaxRequests   int  `yaml:"max_requests"`
	WindowSeconds int  `yaml:"window_seconds"`
	Enabled       bool `yaml:"enabled"`
}

// Config holds the full gateway configuration.
type Config struct {
	Listen         string            `yaml:"listen"`
	DBPath         string            `yaml:"db_path"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	// AuditRetentionDays bounds the audit trail; older rows are deleted by a
	// background sweep.
	AuditRetentionDays int `yaml:"audit_retention_days"`
	Geocode        GeocodeConfig     `yaml:"geocode"`
	Chart          ChartConfig       `yaml:"chart"`
	Generation     GenerationConfig  `yaml:"generation"`
	RateLimit      RateLimitSettings `yaml:"rate_limit"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:             ":8080",
		DBPath:             "natald.db",
		AllowedOrigins:     []string{"*"},
		AuditRetentionDays: 30,
		Geocode: GeocodeConfig{
			Provider:       "nominatim",
			TimeoutSeconds: 7,
		},
		Chart: ChartConfig{
			Endpoint:       "http://127.0.0.1:8082",
			TimeoutSeconds: 12,
			Orbs:           aspect.Tolerances{Default: 6, Luminary: 8},
		},
		Generation: GenerationConfig{
			Provider:       "http",
			TimeoutSeconds: 16,
		},
		RateLimit: RateLimitSettings{
			MaxRequests:   30,
			WindowSeconds: 60,
			Enabled:       true,
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("audit_retention_days must be > 0")
	}
	switch c.Geocode.Provider {
	case "opencage":
		if c.Geocode.OpenCageKey == "" {
			return fmt.Errorf("geocode: opencage_key is required for the opencage provider")
		}
	case "nominatim":
	default:
		return fmt.Errorf("geocode: unsupported provider %q (use opencage or nominatim)", c.Geocode.Provider)
	}
	if c.Geocode.TimeoutSeconds <= 0 {
		return fmt.Errorf("geocode: timeout_seconds must be > 0")
	}
	if c.Chart.Endpoint == "" {
		return fmt.Errorf("chart: endpoint is required")
	}
	if c.Chart.TimeoutSeconds <= 0 {
		return fmt.Errorf("chart: timeout_seconds must be > 0")
	}
	if c.Chart.Orbs.Default <= 0 || c.Chart.Orbs.Luminary <= 0 {
		return fmt.Errorf("chart: orbs must be > 0")
	}
	switch c.Generation.Provider {
	case "http":
		if c.Generation.Endpoint == "" {
			return fmt.Errorf("generation: endpoint is required for the http provider")
		}
	case "genai":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("generation: api_key is required for the genai provider")
		}
	default:
		return fmt.Errorf("generation: unsupported provider %q (use http or genai)", c.Generation.Provider)
	}
	if c.Generation.TimeoutSeconds <= 0 {
		return fmt.Errorf("generation: timeout_seconds must be > 0")
	}
	return nil
}

// GeocodeTimeout returns the geocode stage budget as a duration.
func (c *Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.Geocode.TimeoutSeconds) * time.Second
}

// ChartTimeout returns the chart stage budget as a duration.
func (c *Config) ChartTimeout() time.Duration {
	return time.Duration(c.Chart.TimeoutSeconds) * time.Second
}

// GenerationTimeout returns the generation stage budget as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}
