// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package main is the entry point for the Vitrine server.
//
// Vitrine decides how a storefront page should look for one anonymous
// visit. From client context signals it predicts design tokens with local
// models, assigns the session a simulated customer persona, and merges both
// into one token set.
//
// # Startup
//
//  1. Configuration: Koanf v2 defaults, optional YAML file, environment
//  2. Logging: zerolog with the configured level and format
//  3. Persona catalog and assignment store (memory or badger)
//  4. Feature layout, model artifacts (or baseline models), prediction service
//  5. Token synthesizer and decision engine
//  6. Feedback publisher (in-process channel or NATS JetStream) and sink
//  7. Supervisor tree: housekeeping, feedback sink, HTTP server
//
// # Signal Handling
//
// On SIGINT or SIGTERM readiness starts failing, the HTTP server drains
// in-flight requests for HTTP_SHUTDOWN_TIMEOUT, the feedback sink flushes
// its buffer, and the assignment store is closed.
//
// # Example Usage
//
// Development with the built-in catalog and baseline models:
//
//	./vitrine
//
// Production with trained artifacts, durable assignments and NATS feedback:
//
//	export ENVIRONMENT=production
//	export CORS_ORIGINS=https://shop.example.com
//	export MODEL_DIR=/var/lib/vitrine/models
//	export PERSONA_CATALOG_PATH=/etc/vitrine/personas.yaml
//	export PERSONA_STORE=badger PERSONA_STORE_PATH=/var/lib/vitrine/assignments
//	export FEEDBACK_BACKEND=nats NATS_URL=nats://nats:4222
//	./vitrine
package main
