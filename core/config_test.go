package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("expected 15s http timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.MaxAttempts != 20 {
		t.Fatalf("expected 20 max attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.Backoff.Base != 2*time.Second || cfg.Backoff.Max != time.Hour {
		t.Fatalf("unexpected backoff defaults: %+v", cfg.Backoff)
	}
	if cfg.Worker.PollInterval != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s poll interval, got %s", cfg.Worker.PollInterval)
	}
}

func TestConfig_ValidateRequiresSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation failure without webhook secret")
	}
	cfg.WebhookSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"max below base", func(c *Config) { c.Backoff.Max = time.Second; c.Backoff.Base = time.Minute }},
		{"zero poll interval", func(c *Config) { c.Worker.PollInterval = 0 }},
		{"zero claim limit", func(c *Config) { c.Worker.ClaimLimit = 0 }},
		{"bad default target", func(c *Config) { c.DefaultTargetURL = "ftp://x" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.WebhookSecret = "secret"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestConfig_ClaimLeaseCoversHTTPTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if lease := cfg.ClaimLease(); lease <= cfg.HTTPTimeout {
		t.Fatalf("lease %s must exceed http timeout %s", lease, cfg.HTTPTimeout)
	}
}
