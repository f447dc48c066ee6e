package gnauth

import (
	"os"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with base URL", func(c *Config) {}, false},
		{"missing base URL", func(c *Config) { c.Backend.BaseURL = "" }, true},
		{"zero timeout", func(c *Config) { c.Backend.RequestTimeout = 0 }, true},
		{"zero nominal lifetime", func(c *Config) { c.Token.NominalLifetime = 0 }, true},
		{"zero tolerance", func(c *Config) { c.Token.LifetimeTolerance = 0 }, true},
		{"pin floor", func(c *Config) { c.PIN.MinLength = 2 }, true},
		{"negative advance delay", func(c *Config) { c.Diagnostics.AdvanceDelay = -time.Second }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend.BaseURL = "https://members.example.com"
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("GNAUTH_BASE_URL", "https://members.example.com")
	t.Setenv("GNAUTH_REQUEST_TIMEOUT", "5s")
	t.Setenv("GNAUTH_DIAGNOSTICS_ADVANCE_DELAY", "250ms")
	t.Setenv("GNAUTH_METRICS_ENABLED", "true")

	cfg, err := ConfigFromEnvironment()
	if err != nil {
		t.Fatalf("from environment: %v", err)
	}
	if cfg.Backend.BaseURL != "https://members.example.com" {
		t.Fatalf("base URL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RequestTimeout != 5*time.Second {
		t.Fatalf("timeout = %s", cfg.Backend.RequestTimeout)
	}
	if cfg.Diagnostics.AdvanceDelay != 250*time.Millisecond {
		t.Fatalf("advance delay = %s", cfg.Diagnostics.AdvanceDelay)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics not enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigFromEnvironmentRequiresBaseURL(t *testing.T) {
	t.Setenv("GNAUTH_BASE_URL", "placeholder")
	os.Unsetenv("GNAUTH_BASE_URL")
	if _, err := ConfigFromEnvironment(); err == nil {
		t.Fatal("expected error without base URL")
	}
}
