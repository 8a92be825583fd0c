// Package security resolves the shared HMAC signing secret. Sources are
// composable: a static secret for tests, the process environment for
// deployments, and a failover wrapper for migrations between the two.
package security

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-webhook-dispatcher/core"
)

type StaticSecretSource struct {
	secret []byte
}

func NewStaticSecretSource(secret []byte) (*StaticSecretSource, error) {
	trimmed := bytes.TrimSpace(secret)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("security: secret material is required")
	}
	copied := make([]byte, len(trimmed))
	copy(copied, trimmed)
	return &StaticSecretSource{secret: copied}, nil
}

func (s *StaticSecretSource) Secret(context.Context) ([]byte, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, fmt.Errorf("security: static secret source is not configured")
	}
	copied := make([]byte, len(s.secret))
	copy(copied, s.secret)
	return copied, nil
}

// EnvSecretSource reads the secret from an environment variable on every
// call, so a restarted-in-place process picks up rotated values.
type EnvSecretSource struct {
	Variable string
	Lookup   func(key string) (string, bool)
}

func NewEnvSecretSource(variable string) (*EnvSecretSource, error) {
	trimmed := strings.TrimSpace(variable)
	if trimmed == "" {
		return nil, fmt.Errorf("security: environment variable name is required")
	}
	return &EnvSecretSource{Variable: trimmed}, nil
}

func (s *EnvSecretSource) Secret(context.Context) ([]byte, error) {
	if s == nil || strings.TrimSpace(s.Variable) == "" {
		return nil, fmt.Errorf("security: env secret source is not configured")
	}
	lookup := os.LookupEnv
	if s.Lookup != nil {
		lookup = s.Lookup
	}
	value, ok := lookup(s.Variable)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("security: %s is not set", s.Variable)
	}
	return []byte(strings.TrimSpace(value)), nil
}

// FailoverSecretSource consults the primary source and falls back when it
// fails. Verification against receivers keyed on the old secret stays
// possible while a rotation rolls out.
type FailoverSecretSource struct {
	primary  core.SecretSource
	fallback core.SecretSource
}

func NewFailoverSecretSource(primary core.SecretSource, fallback core.SecretSource) (*FailoverSecretSource, error) {
	if primary == nil {
		return nil, fmt.Errorf("security: primary secret source is required")
	}
	return &FailoverSecretSource{primary: primary, fallback: fallback}, nil
}

func (s *FailoverSecretSource) Secret(ctx context.Context) ([]byte, error) {
	if s == nil || s.primary == nil {
		return nil, fmt.Errorf("security: failover secret source is not configured")
	}
	secret, err := s.primary.Secret(ctx)
	if err == nil {
		return secret, nil
	}
	if s.fallback == nil {
		return nil, err
	}
	secret, fallbackErr := s.fallback.Secret(ctx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("security: primary failed (%v), fallback failed: %w", err, fallbackErr)
	}
	return secret, nil
}

var (
	_ core.SecretSource = (*StaticSecretSource)(nil)
	_ core.SecretSource = (*EnvSecretSource)(nil)
	_ core.SecretSource = (*FailoverSecretSource)(nil)
)
