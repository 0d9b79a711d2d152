// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/vitrine/internal/features"
	"github.com/tomtom215/vitrine/internal/feedback"
	"github.com/tomtom215/vitrine/internal/persona"
)

// Validate checks that the configuration is usable. Sections owned by a
// component delegate to that component's Validate.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateFeatures,
		c.validatePersona,
		c.Predict.Validate,
		c.Tokens.Validate,
		c.Personalize.Validate,
		c.validateFeedback,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP read and write timeouts must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			// Wildcard origins are development-only.
			if c.Server.IsProduction() {
				return fmt.Errorf("CORS_ORIGINS must not contain * when ENVIRONMENT=production")
			}
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return err
		}
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	if c.Security.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateFeatures() error {
	if _, err := c.Features.GroupSet(); err != nil {
		return fmt.Errorf("FEATURE_GROUPS is invalid: %w", err)
	}
	return nil
}

// GroupSet resolves the configured group names. Core groups are always set.
func (f *FeaturesConfig) GroupSet() (features.Group, error) {
	return features.ParseGroups(f.Groups)
}

func (c *Config) validatePersona() error {
	p := &c.Persona
	if p.AssignmentTTL < time.Minute {
		return fmt.Errorf("PERSONA_ASSIGNMENT_TTL must be at least 1m")
	}
	if p.SweepInterval < time.Second {
		return fmt.Errorf("PERSONA_SWEEP_INTERVAL must be at least 1s")
	}
	switch p.Store {
	case persona.StoreMemory, persona.StoreBadger:
	default:
		return fmt.Errorf("PERSONA_STORE must be one of: memory, badger")
	}
	if err := p.Matcher.Validate(); err != nil {
		return fmt.Errorf("persona matcher: %w", err)
	}
	return nil
}

func (c *Config) validateFeedback() error {
	if err := c.Feedback.Validate(); err != nil {
		return err
	}
	if c.Feedback.Backend == feedback.BackendNATS {
		if err := validateNATSURL(c.Feedback.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	return nil
}
