package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct{}

func (staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = value
		}
	}
	setString("service_name", cfg.ServiceName)
	setString("database_url", cfg.DatabaseURL)
	setString("webhook_secret", cfg.WebhookSecret)
	setString("default_target_url", cfg.DefaultTargetURL)
	setString("http_addr", cfg.HTTPAddr)
	if includeZero || cfg.HTTPTimeout > 0 {
		layer["http_timeout"] = cfg.HTTPTimeout
	}
	if includeZero || cfg.MaxAttempts > 0 {
		layer["max_attempts"] = cfg.MaxAttempts
	}
	if includeZero || cfg.ResponseBodyLimit > 0 {
		layer["response_body_limit"] = cfg.ResponseBodyLimit
	}
	backoff := map[string]any{}
	if includeZero || cfg.Backoff.Base > 0 {
		backoff["base"] = cfg.Backoff.Base
	}
	if includeZero || cfg.Backoff.Max > 0 {
		backoff["max"] = cfg.Backoff.Max
	}
	if len(backoff) > 0 {
		layer["backoff"] = backoff
	}
	worker := map[string]any{}
	if includeZero || cfg.Worker.PollInterval > 0 {
		worker["poll_interval"] = cfg.Worker.PollInterval
	}
	if includeZero || cfg.Worker.ClaimLimit > 0 {
		worker["claim_limit"] = cfg.Worker.ClaimLimit
	}
	if includeZero || cfg.Worker.Concurrency > 0 {
		worker["concurrency"] = cfg.Worker.Concurrency
	}
	if includeZero || cfg.Worker.ShutdownGrace > 0 {
		worker["shutdown_grace"] = cfg.Worker.ShutdownGrace
	}
	if len(worker) > 0 {
		layer["worker"] = worker
	}
	return layer
}

// EnvRawConfigLoader reads the dispatcher environment contract. Duration
// variables accept either a Go duration string ("1.5s") or a bare number of
// seconds ("15"), matching how deployments have historically set them.
type EnvRawConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func NewEnvRawConfigLoader() *EnvRawConfigLoader {
	return &EnvRawConfigLoader{Lookup: os.LookupEnv}
}

func (l *EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := os.LookupEnv
	if l != nil && l.Lookup != nil {
		lookup = l.Lookup
	}

	raw := map[string]any{}
	backoff := map[string]any{}
	worker := map[string]any{}

	setString := func(env, key string, target map[string]any) {
		if value, ok := lookup(env); ok && strings.TrimSpace(value) != "" {
			target[key] = strings.TrimSpace(value)
		}
	}
	setInt := func(env, key string, target map[string]any) error {
		value, ok := lookup(env)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("core: %s must be an integer: %w", env, err)
		}
		target[key] = parsed
		return nil
	}
	setDuration := func(env, key string, target map[string]any) error {
		value, ok := lookup(env)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := parseSecondsOrDuration(value)
		if err != nil {
			return fmt.Errorf("core: %s is not a duration: %w", env, err)
		}
		target[key] = parsed
		return nil
	}

	setString("SERVICE_NAME", "service_name", raw)
	setString("DATABASE_URL", "database_url", raw)
	setString("WEBHOOK_SECRET", "webhook_secret", raw)
	setString("TARGET_URL", "default_target_url", raw)
	setString("HTTP_ADDR", "http_addr", raw)
	if err := setDuration("HTTP_TIMEOUT", "http_timeout", raw); err != nil {
		return nil, err
	}
	if err := setInt("MAX_ATTEMPTS", "max_attempts", raw); err != nil {
		return nil, err
	}
	if err := setInt("RESPONSE_BODY_LIMIT", "response_body_limit", raw); err != nil {
		return nil, err
	}
	if err := setDuration("BACKOFF_BASE_SECONDS", "base", backoff); err != nil {
		return nil, err
	}
	if err := setDuration("BACKOFF_MAX_SECONDS", "max", backoff); err != nil {
		return nil, err
	}
	if err := setDuration("WORKER_POLL_INTERVAL", "poll_interval", worker); err != nil {
		return nil, err
	}
	if err := setInt("WORKER_CLAIM_LIMIT", "claim_limit", worker); err != nil {
		return nil, err
	}
	if err := setInt("WORKER_CONCURRENCY", "concurrency", worker); err != nil {
		return nil, err
	}
	if err := setDuration("SHUTDOWN_GRACE", "shutdown_grace", worker); err != nil {
		return nil, err
	}

	if len(backoff) > 0 {
		raw["backoff"] = backoff
	}
	if len(worker) > 0 {
		raw["worker"] = worker
	}
	return raw, nil
}

func parseSecondsOrDuration(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.ParseDuration(trimmed); err == nil {
		return parsed, nil
	}
	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// LoadConfig resolves the effective config: defaults, then the provider's
// layer, then runtime overrides, merged through the options stack.
func LoadConfig(ctx context.Context, provider ConfigProvider, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded := defaults
	if provider != nil {
		cfg, err := provider.Load(ctx, defaults)
		if err != nil {
			return Config{}, err
		}
		loaded = cfg
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}
