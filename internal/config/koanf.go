// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

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

	"github.com/tomtom215/vitrine/internal/feedback"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/personalize"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// DefaultConfigPaths lists the locations searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vitrine/config.yaml",
	"/etc/vitrine/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults (layer 1).
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   600,
			RateLimitWindow: time.Minute,
			MaxBodyBytes:    64 << 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Features: FeaturesConfig{
			Groups: []string{"environment", "social", "composite"},
		},
		Persona: PersonaConfig{
			AssignmentTTL: 24 * time.Hour,
			Store:         persona.StoreMemory,
			SweepInterval: 10 * time.Minute,
			Matcher:       persona.DefaultMatcherConfig(),
		},
		Models: ModelsConfig{
			Baseline: true,
		},
		Predict:     predict.DefaultConfig(),
		Tokens:      tokens.DefaultPolicy(),
		Personalize: personalize.DefaultConfig(),
		Feedback:    feedback.DefaultConfig(),
	}
}

// Load loads configuration with Koanf v2 from layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML file (if one exists)
//  3. Environment Variables: override any mapped setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// HTTP_PORT -> server.port, MODEL_DIR -> models.dir
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come from
// the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"features.groups",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		// An empty FEATURE_GROUPS legitimately means "core groups only".
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot pollute
// the configuration.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"max_body_bytes":      "security.max_body_bytes",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Features
	"feature_groups": "features.groups",

	// Persona
	"persona_catalog_path":   "persona.catalog_path",
	"persona_assignment_ttl": "persona.assignment_ttl",
	"persona_store":          "persona.store",
	"persona_store_path":     "persona.store_path",
	"persona_sweep_interval": "persona.sweep_interval",
	"persona_seed":           "persona.matcher.seed",
	"persona_floor_score":    "persona.matcher.floor_score",

	// Models and prediction
	"model_dir":                     "models.dir",
	"model_baseline":                "models.baseline",
	"predict_timeout":               "predict.timeout",
	"predict_cache_ttl":             "predict.cache_ttl",
	"predict_cache_capacity":        "predict.cache_capacity",
	"predict_workers":               "predict.workers",
	"predict_fallback_log_interval": "predict.fallback_log_interval",
	"predict_breaker_timeout":       "predict.breaker.timeout",
	"predict_breaker_failure_ratio": "predict.breaker.failure_ratio",
	"predict_breaker_min_requests":  "predict.breaker.min_requests",

	// Tokens and merge policy
	"tokens_business_accent": "tokens.business_accent",
	"tokens_default_accent":  "tokens.default_accent",
	"confidence_threshold":   "personalize.confidence_threshold",

	// Feedback
	"feedback_backend":         "feedback.backend",
	"feedback_topic":           "feedback.topic",
	"feedback_buffer_size":     "feedback.buffer_size",
	"feedback_publish_timeout": "feedback.publish_timeout",
	"nats_url":                 "feedback.nats.url",
	"nats_max_reconnects":      "feedback.nats.max_reconnects",
	"nats_reconnect_wait":      "feedback.nats.reconnect_wait",
	"nats_track_msg_id":        "feedback.nats.track_msg_id",
	"nats_auto_provision":      "feedback.nats.auto_provision",
}

// envTransformFunc transforms environment variable names to koanf paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - MODEL_DIR -> models.dir
//   - NATS_URL -> feedback.nats.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
