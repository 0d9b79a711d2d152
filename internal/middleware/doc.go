// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package middleware provides HTTP middleware for the decision API.

Key Components:

  - RequestID: X-Request-ID propagation (UUID v4 when absent) and
    X-Session-ID capture into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge, labeled by
    chi route pattern
  - AccessLog: one structured log line per request, warn above a latency
    threshold

All middleware has the func(http.Handler) http.Handler shape and plugs
straight into chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog(middleware.DefaultSlowRequestThreshold))

CORS and rate limiting come from go-chi/cors and go-chi/httprate and are
wired in the api package.
*/
package middleware
