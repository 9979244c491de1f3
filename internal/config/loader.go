package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "RENSHU_"
	envFileVar = "RENSHU_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RENSHU_CONFIG is set
//  3. env (prefix RENSHU_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RENSHU_TOKEN_TTL_HOURS -> token_ttl_hours. Underscores are kept to
	// match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// RENSHU_CONFIG itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Backend != BackendPostgres && c.Backend != BackendMemory && c.Backend != BackendNone:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	case c.Backend == BackendPostgres && c.DatabaseDSN == "":
		return fmt.Errorf("%w: database_dsn is required for the postgres backend", ErrInvalidConfig)
	case c.SchemaGeneration < 1 || c.SchemaGeneration > 3:
		return fmt.Errorf("%w: schema_generation must be 1, 2 or 3", ErrInvalidConfig)
	case c.FallbackCapacity <= 0:
		return fmt.Errorf("%w: fallback_capacity must be positive", ErrInvalidConfig)
	case c.FallbackTotalCapacity < c.FallbackCapacity:
		return fmt.Errorf("%w: fallback_total_capacity must be at least fallback_capacity", ErrInvalidConfig)
	case c.FingerprintThreshold <= 0 || c.FingerprintThreshold > 1:
		return fmt.Errorf("%w: fingerprint_threshold must be in (0,1]", ErrInvalidConfig)
	case c.TokenTTLHours <= 0:
		return fmt.Errorf("%w: token_ttl_hours must be positive", ErrInvalidConfig)
	case c.TokenLength < 16 || c.TokenLength > 64:
		return fmt.Errorf("%w: token_length must be between 16 and 64", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
