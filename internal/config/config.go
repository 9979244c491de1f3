// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and RENSHU_ env vars.
// - Errors returned by Load wrap this package's sentinels.
package config

import (
	"strings"
	"time"
)

// Backend kinds accepted by the backend key.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Backend selects the durable store: postgres, memory or none.
	Backend string `koanf:"backend"`

	// DatabaseDSN is the lib/pq connection string used when Backend is postgres.
	DatabaseDSN string `koanf:"database_dsn"`

	// BackendTimeoutMS bounds every single backend call.
	BackendTimeoutMS int `koanf:"backend_timeout_ms"`

	// ProbeRetryMS re-probes an unavailable backend after this long. 0 probes once per process.
	ProbeRetryMS int `koanf:"probe_retry_ms"`

	// SchemaGeneration selects the translator used for writes (1..3).
	SchemaGeneration int `koanf:"schema_generation"`

	// TokenTTLHours is the lifetime of minted tokens.
	TokenTTLHours int `koanf:"token_ttl_hours"`

	// TokenSecret keys the token digest. Empty means a random per-process key.
	TokenSecret string `koanf:"token_secret"`

	// TokenLength is the number of hex characters kept from the digest.
	TokenLength int `koanf:"token_length"`

	FingerprintHistory   int     `koanf:"fingerprint_history"`
	FingerprintWindow    int     `koanf:"fingerprint_window"`
	FingerprintThreshold float64 `koanf:"fingerprint_threshold"`

	// FallbackCapacity bounds the local buffer per identity.
	FallbackCapacity int `koanf:"fallback_capacity"`

	// FallbackTotalCapacity bounds the local buffer across all identities.
	FallbackTotalCapacity int `koanf:"fallback_total_capacity"`

	// DedupeSize bounds the duplicate-submission digest set.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// AppMarker is mixed into every fingerprint.
	AppMarker string `koanf:"app_marker"`

	// CookieSecure marks identity cookies Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// MetricsPrefix is prepended to every metric name.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsLabels is a comma separated list of key=value constant labels.
	MetricsLabels string `koanf:"metrics_labels"`

	// MetricsRefreshMS is how often the process gauges are refreshed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		Backend:               BackendMemory,
		BackendTimeoutMS:      3000,
		ProbeRetryMS:          0,
		SchemaGeneration:      3,
		TokenTTLHours:         30 * 24,
		TokenLength:           32,
		FingerprintHistory:    20,
		FingerprintWindow:     5,
		FingerprintThreshold:  0.8,
		FallbackCapacity:      100,
		FallbackTotalCapacity: 10_000,
		DedupeSize:            10_000,
		MaxHistoryLimit:       500,
		AppMarker:             "renshu_exam_practice",
		MetricsRefreshMS:      10_000,
	}
}

// BackendTimeout returns BackendTimeoutMS as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutMS) * time.Millisecond
}

// ProbeRetry returns ProbeRetryMS as a duration.
func (c *Config) ProbeRetry() time.Duration {
	return time.Duration(c.ProbeRetryMS) * time.Millisecond
}

// TokenTTL returns TokenTTLHours as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// MetricLabels parses MetricsLabels. Entries without a key or an "=" are
// skipped.
func (c *Config) MetricLabels() map[string]string {
	labels := make(map[string]string)
	for _, pair := range strings.Split(c.MetricsLabels, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			continue
		}
		labels[key] = strings.TrimSpace(value)
	}
	return labels
}
