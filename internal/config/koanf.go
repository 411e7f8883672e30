// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SIPLENS_"

// Defaults returns the built-in configuration. These are the values the
// server runs with when no config file or environment overrides exist.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "data/siplens.db",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Engine: EngineConfig{
			ThresholdCacheTTL: 30 * time.Second,
		},
		Rankings: RankingsConfig{
			Enabled:    true,
			Interval:   time.Hour,
			WindowDays: 30,
		},
		Retention: RetentionConfig{
			Enabled:             true,
			SampleRetentionDays: 30,
			SweepInterval:       time.Hour,
		},
		Notify: NotifyConfig{
			Enabled:         true,
			RatePerMinute:   6,
			Burst:           3,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize:    50,
			MaxPageSize:        500,
			RateLimitPerMinute: 600,
			CORSAllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// SIPLENS_-prefixed environment variables, then validates the result.
// A missing config file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking config file %s: %w", path, err)
		}
	}

	// SIPLENS_SERVER_PORT -> server.port
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envTransformFunc maps an environment variable name to a koanf path.
// Multi-word keys are listed explicitly; single-word keys fall back to
// splitting at the first underscore (SIPLENS_SERVER_PORT -> server.port).
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	mappings := map[string]string{
		"server_read_timeout":            "server.read_timeout",
		"server_write_timeout":           "server.write_timeout",
		"server_shutdown_timeout":        "server.shutdown_timeout",
		"database_max_memory":            "database.max_memory",
		"engine_threshold_cache_ttl":     "engine.threshold_cache_ttl",
		"rankings_window_days":           "rankings.window_days",
		"retention_sample_retention_days": "retention.sample_retention_days",
		"retention_sweep_interval":       "retention.sweep_interval",
		"notify_rate_per_minute":         "notify.rate_per_minute",
		"notify_breaker_failures":        "notify.breaker_failures",
		"notify_breaker_timeout":         "notify.breaker_timeout",
		"api_default_page_size":          "api.default_page_size",
		"api_max_page_size":              "api.max_page_size",
		"api_rate_limit_per_minute":      "api.rate_limit_per_minute",
		"api_cors_allowed_origins":       "api.cors_allowed_origins",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return strings.Replace(key, "_", ".", 1)
}
