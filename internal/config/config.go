// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package config holds all application configuration, loaded via Koanf v2
// with layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml)
//  3. Environment variables (SIPLENS_ prefix, e.g. SIPLENS_SERVER_PORT)
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the SipLens server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Engine    EngineConfig    `koanf:"engine"`
	Rankings  RankingsConfig  `koanf:"rankings"`
	Retention RetentionConfig `koanf:"retention"`
	Notify    NotifyConfig    `koanf:"notify"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" opens an in-memory database.
	Path string `koanf:"path"`
	// MaxMemory caps DuckDB memory usage (e.g. "512MB").
	MaxMemory string `koanf:"max_memory"`
	// Threads limits DuckDB worker threads. <=0 uses all CPUs.
	Threads int `koanf:"threads"`
}

// EngineConfig holds monitoring engine settings.
type EngineConfig struct {
	// ThresholdCacheTTL bounds how stale a tenant's cached alert thresholds
	// may be. Thresholds are read on every sample evaluation.
	ThresholdCacheTTL time.Duration `koanf:"threshold_cache_ttl"`
}

// RankingsConfig holds the carrier/agent score batch job settings.
type RankingsConfig struct {
	Enabled bool `koanf:"enabled"`
	// Interval between batch runs. Each run rescores the current UTC day,
	// and shortly after midnight also finalizes the previous day.
	Interval time.Duration `koanf:"interval"`
	// WindowDays is the default trailing window for ranking queries.
	WindowDays int `koanf:"window_days"`
}

// RetentionConfig holds the sample retention janitor settings.
// Summaries, alerts and scores are never purged.
type RetentionConfig struct {
	Enabled bool `koanf:"enabled"`
	// SampleRetentionDays is how long samples outlive their call.
	SampleRetentionDays int           `koanf:"sample_retention_days"`
	SweepInterval       time.Duration `koanf:"sweep_interval"`
}

// NotifyConfig holds the alert notification dispatcher settings.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
	// RatePerMinute caps outbound notifications per (tenant, call).
	RatePerMinute int `koanf:"rate_per_minute"`
	// Burst is the rate limiter burst size.
	Burst int `koanf:"burst"`
	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker around the notification transport.
	BreakerFailures uint32 `koanf:"breaker_failures"`
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// APIConfig holds API pagination and rate limiting settings.
type APIConfig struct {
	DefaultPageSize    int      `koanf:"default_page_size"`
	MaxPageSize        int      `koanf:"max_page_size"`
	RateLimitPerMinute int      `koanf:"rate_limit_per_minute"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// LoggingConfig holds log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Engine.ThresholdCacheTTL < 0 {
		return fmt.Errorf("engine.threshold_cache_ttl must not be negative")
	}
	if c.Rankings.Enabled && c.Rankings.Interval <= 0 {
		return fmt.Errorf("rankings.interval must be positive when rankings are enabled")
	}
	if c.Rankings.WindowDays <= 0 {
		return fmt.Errorf("rankings.window_days must be positive, got %d", c.Rankings.WindowDays)
	}
	if c.Retention.Enabled && c.Retention.SampleRetentionDays <= 0 {
		return fmt.Errorf("retention.sample_retention_days must be positive when retention is enabled")
	}
	if c.Notify.Enabled && c.Notify.RatePerMinute <= 0 {
		return fmt.Errorf("notify.rate_per_minute must be positive when notifications are enabled")
	}
	if c.API.DefaultPageSize <= 0 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be in 1-%d, got %d", c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}
