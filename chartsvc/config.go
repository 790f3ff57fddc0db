package chartsvc

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/natal/aspect"
)

// Config holds the full chart service configuration.
type Config struct {
	Listen            string            `yaml:"listen"`
	EphemerisEndpoint string            `yaml:"ephemeris_endpoint"`
	EphemerisTimeout  int               `yaml:"ephemeris_timeout_seconds"`
	Orbs              aspect.Tolerances `yaml:"orbs"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:            ":8082",
		EphemerisEndpoint: "http://127.0.0.1:8090",
		EphemerisTimeout:  10,
		Orbs:              aspect.Tolerances{Default: 6, Luminary: 8},
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
	if c.EphemerisEndpoint == "" {
		return fmt.Errorf("ephemeris_endpoint is required")
	}
	if c.EphemerisTimeout <= 0 {
		return fmt.Errorf("ephemeris_timeout_seconds must be > 0")
	}
	if c.Orbs.Default <= 0 || c.Orbs.Luminary <= 0 {
		return fmt.Errorf("orbs must be > 0")
	}
	return nil
}

// EphemerisTimeoutDuration returns the ephemeris timeout as a duration.
func (c *Config) EphemerisTimeoutDuration() time.Duration {
	return time.Duration(c.EphemerisTimeout) * time.Second
}
