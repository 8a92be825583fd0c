package core

import (
	"fmt"
	"strings"
	"time"
)

type BackoffConfig struct {
	Base time.Duration `koanf:"base" mapstructure:"base"`
	Max  time.Duration `koanf:"max" mapstructure:"max"`
}

type WorkerConfig struct {
	PollInterval  time.Duration `koanf:"poll_interval" mapstructure:"poll_interval"`
	ClaimLimit    int           `koanf:"claim_limit" mapstructure:"claim_limit"`
	Concurrency   int           `koanf:"concurrency" mapstructure:"concurrency"`
	ShutdownGrace time.Duration `koanf:"shutdown_grace" mapstructure:"shutdown_grace"`
}

type Config struct {
	ServiceName       string        `koanf:"service_name" mapstructure:"service_name"`
	DatabaseURL       string        `koanf:"database_url" mapstructure:"database_url"`
	WebhookSecret     string        `koanf:"webhook_secret" mapstructure:"webhook_secret"`
	DefaultTargetURL  string        `koanf:"default_target_url" mapstructure:"default_target_url"`
	HTTPAddr          string        `koanf:"http_addr" mapstructure:"http_addr"`
	HTTPTimeout       time.Duration `koanf:"http_timeout" mapstructure:"http_timeout"`
	MaxAttempts       int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	ResponseBodyLimit int           `koanf:"response_body_limit" mapstructure:"response_body_limit"`
	Backoff           BackoffConfig `koanf:"backoff" mapstructure:"backoff"`
	Worker            WorkerConfig  `koanf:"worker" mapstructure:"worker"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:       "webhook-dispatcher",
		HTTPAddr:          ":8000",
		HTTPTimeout:       15 * time.Second,
		MaxAttempts:       20,
		ResponseBodyLimit: 2048,
		Backoff: BackoffConfig{
			Base: 2 * time.Second,
			Max:  time.Hour,
		},
		Worker: WorkerConfig{
			PollInterval:  1500 * time.Millisecond,
			ClaimLimit:    10,
			Concurrency:   1,
			ShutdownGrace: 30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.WebhookSecret) == "" {
		return fmt.Errorf("core: webhook_secret is required")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("core: max_attempts must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("core: http_timeout must be positive")
	}
	if c.Backoff.Base <= 0 || c.Backoff.Max < c.Backoff.Base {
		return fmt.Errorf("core: backoff base/max are inconsistent")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("core: worker poll_interval must be positive")
	}
	if c.Worker.ClaimLimit <= 0 {
		return fmt.Errorf("core: worker claim_limit must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("core: worker concurrency must be positive")
	}
	if trimmed := strings.TrimSpace(c.DefaultTargetURL); trimmed != "" {
		if err := validateTargetURL(trimmed); err != nil {
			return err
		}
	}
	return nil
}

// ClaimLease is the visibility window a claim transaction adds to
// next_retry_at: long enough to cover the slowest legal HTTP call plus
// scheduling slack, so a crashed worker's rows become due again shortly
// after the in-flight call could have completed.
func (c Config) ClaimLease() time.Duration {
	return c.HTTPTimeout + c.Worker.PollInterval + 30*time.Second
}
