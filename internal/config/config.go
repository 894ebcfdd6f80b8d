// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads and validates the engine's YAML configuration,
// with environment variable overrides following the KEYSTORE_* naming
// convention.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Health    HealthConfig    `yaml:"health"`
}

// EngineConfig controls the keystore engine's operational limits and
// master-key derivation.
type EngineConfig struct {
	// MaxOperations bounds the number of coexisting Begin'd operations,
	// per the documented bound spec §3.4 requires.
	MaxOperations int `yaml:"max_operations"`

	// MasterKeySource selects how the process-global blob-sealing key
	// is derived: "random" generates a fresh key at startup (blobs do
	// not survive a restart), "env" reads 32 raw bytes, base64-encoded,
	// from the KEYSTORE_MASTER_KEY environment variable.
	MasterKeySource string `yaml:"master_key_source"`

	// LegacyAdapterEnabled turns on recognition of pre-existing 'P'/'Q'
	// sentinel-prefixed blobs (spec §4.8). When false, any blob
	// beginning with a legacy sentinel is rejected as INVALID_KEY_BLOB.
	LegacyAdapterEnabled bool `yaml:"legacy_adapter_enabled"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimitConfig controls command-surface rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

// HealthConfig controls the readiness/liveness surface.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// DegradedThreshold is the fraction of MaxOperations (0.0-1.0) at
	// which the health check reports a degraded state rather than
	// healthy, giving operators warning before TOO_MANY_OPERATIONS
	// actually starts rejecting Begin calls.
	DegradedThreshold float64 `yaml:"degraded_threshold"`
}

// Default returns the engine's built-in configuration, used when no
// config file is supplied.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxOperations:        4096,
			MasterKeySource:      "random",
			LegacyAdapterEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 500,
			Burst:             100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Health: HealthConfig{
			Enabled:           true,
			Path:              "/healthz",
			DegradedThreshold: 0.9,
		},
	}
}

// Load reads configuration from a YAML file, starting from Default
// and overlaying both the file contents and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - config file path is provided by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEYSTORE_MAX_OPERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("Warning: invalid KEYSTORE_MAX_OPERATIONS value %q, using default %d", v, cfg.Engine.MaxOperations)
		} else {
			cfg.Engine.MaxOperations = n
		}
	}
	if v := os.Getenv("KEYSTORE_MASTER_KEY_SOURCE"); v != "" {
		cfg.Engine.MasterKeySource = v
	}
	if v := os.Getenv("KEYSTORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KEYSTORE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks that the configuration describes a runnable engine.
func (c *Config) Validate() error {
	if c.Engine.MaxOperations <= 0 {
		return fmt.Errorf("engine.max_operations must be positive, got %d", c.Engine.MaxOperations)
	}
	switch strings.ToLower(c.Engine.MasterKeySource) {
	case "random", "env":
	default:
		return fmt.Errorf("engine.master_key_source must be %q or %q, got %q", "random", "env", c.Engine.MasterKeySource)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("ratelimit.requests_per_second must be positive when ratelimit is enabled")
	}
	if c.Health.DegradedThreshold < 0 || c.Health.DegradedThreshold > 1 {
		return fmt.Errorf("health.degraded_threshold must be between 0 and 1, got %f", c.Health.DegradedThreshold)
	}

	return nil
}
