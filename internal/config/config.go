// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package config

import (
	"time"

	"github.com/tomtom215/vitrine/internal/feedback"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/personalize"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults for every setting
//  2. Config File: optional YAML file (CONFIG_PATH, ./config.yaml, /etc/vitrine/config.yaml)
//  3. Environment Variables: mapped names such as HTTP_PORT or MODEL_DIR
//
// Sections that belong to a single component reuse that component's own
// configuration type, so the component validates its own invariants.
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server      ServerConfig       `koanf:"server"`
	Security    SecurityConfig     `koanf:"security"`
	Logging     LoggingConfig      `koanf:"logging"`
	Features    FeaturesConfig     `koanf:"features"`
	Persona     PersonaConfig      `koanf:"persona"`
	Models      ModelsConfig       `koanf:"models"`
	Predict     predict.Config     `koanf:"predict"`
	Tokens      tokens.Policy      `koanf:"tokens"`
	Personalize personalize.Config `koanf:"personalize"`
	Feedback    feedback.Config    `koanf:"feedback"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds the HTTP edge protections. Authentication is not
// part of this service.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// MaxBodyBytes caps request bodies on the decision routes.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console. Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// FeaturesConfig selects the optional feature groups. The core groups
// (temporal, device, viewport, historical) are always enabled.
//
// Environment Variables:
//   - FEATURE_GROUPS: comma-separated, e.g. "environment,social,composite"
type FeaturesConfig struct {
	Groups []string `koanf:"groups"`
}

// PersonaConfig holds catalog, matching and session assignment settings.
type PersonaConfig struct {
	// CatalogPath is a YAML or JSON catalog file. Empty uses the built-in catalog.
	CatalogPath string `koanf:"catalog_path"`

	// AssignmentTTL is how long a session keeps its persona. Default: 24h
	AssignmentTTL time.Duration `koanf:"assignment_ttl"`

	// Store is memory or badger.
	Store persona.StoreType `koanf:"store"`

	// StorePath is the BadgerDB directory. Empty with the badger store runs
	// Badger in memory.
	StorePath string `koanf:"store_path"`

	// SweepInterval is how often expired assignments are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	Matcher persona.MatcherConfig `koanf:"matcher"`
}

// ModelsConfig locates the trained model artifacts.
type ModelsConfig struct {
	// Dir holds classifier.json and regressor.json.
	Dir string `koanf:"dir"`

	// Baseline serves the built-in baseline models when Dir is empty or its
	// artifacts fail to load. With Baseline off, a missing model means every
	// prediction falls back to the default tokens.
	Baseline bool `koanf:"baseline"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (s *ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
