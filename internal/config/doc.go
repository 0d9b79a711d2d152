// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package config provides centralized configuration management for Vitrine.

Configuration is loaded with Koanf v2 from three layers, later layers
overriding earlier ones:

 1. Built-in defaults (structs provider)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/vitrine/config.yaml
 3. Mapped environment variables

# Configuration Structure

  - server: listen address, timeouts, environment mode
  - security: CORS origins, rate limiting, request body cap
  - logging: level, format, caller
  - features: optional feature groups (environment, social, composite)
  - persona: catalog file, assignment TTL, store backend, matcher seed and floor
  - models: artifact directory and baseline model switch
  - predict: deadline, cache TTL and capacity, worker pool, circuit breaker
  - tokens: synthesis thresholds and accent colors
  - personalize: confidence threshold of the merge policy
  - feedback: publisher backend (channel or nats), topic, buffer size

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default 0.0.0.0:8080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development, staging, production

Security:
  - CORS_ORIGINS: comma-separated; * is rejected in production
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - MAX_BODY_BYTES (default 64KiB)

Decision core:
  - FEATURE_GROUPS: e.g. "environment,social"; empty means core groups only
  - PERSONA_CATALOG_PATH, PERSONA_ASSIGNMENT_TTL (default 24h)
  - PERSONA_STORE (memory, badger), PERSONA_STORE_PATH, PERSONA_SWEEP_INTERVAL
  - PERSONA_SEED, PERSONA_FLOOR_SCORE
  - MODEL_DIR, MODEL_BASELINE
  - PREDICT_TIMEOUT (default 75ms), PREDICT_CACHE_TTL, PREDICT_CACHE_CAPACITY, PREDICT_WORKERS
  - CONFIDENCE_THRESHOLD (default 0.55)

Feedback:
  - FEEDBACK_BACKEND (channel, nats), FEEDBACK_TOPIC, FEEDBACK_BUFFER_SIZE
  - NATS_URL, NATS_MAX_RECONNECTS, NATS_RECONNECT_WAIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	groups, _ := cfg.Features.GroupSet()
	builder := features.NewBuilder(groups)

Config is immutable after Load and safe for concurrent reads.
*/
package config
