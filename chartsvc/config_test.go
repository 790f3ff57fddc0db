package chartsvc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chartd.yaml")
	data := `
listen: ":9090"
ephemeris_endpoint: "http://ephemeris.internal:8090"
orbs:
  orb_default: 5
  orb_luminary: 7
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Orbs.Default != 5 || cfg.Orbs.Luminary != 7 {
		t.Errorf("orbs = %+v", cfg.Orbs)
	}
	// Defaults survive partial files.
	if cfg.EphemerisTimeout != 10 {
		t.Errorf("ephemeris_timeout_seconds = %d, want default 10", cfg.EphemerisTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"empty endpoint", func(c *Config) { c.EphemerisEndpoint = "" }},
		{"zero timeout", func(c *Config) { c.EphemerisTimeout = 0 }},
		{"zero orbs", func(c *Config) { c.Orbs.Default = 0 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
