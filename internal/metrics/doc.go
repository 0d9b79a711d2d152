// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
exposed at /metrics by promhttp.

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Persona Metrics:
  - persona_assignments_total: Assignments by outcome (counter)
    Labels: outcome (cached, matched, adopted, override, fallback)
  - persona_match_score: Winning score of fresh matches (histogram)
  - persona_assignments_purged_total: Expired assignments swept (counter)

Prediction Metrics:
  - predictions_total: Predictions by outcome (counter)
    Labels: outcome (hit, miss, fallback)
  - prediction_duration_seconds: Prediction latency (histogram)
    Labels: outcome
  - prediction_fallbacks_total: Default-token responses (counter)
    Labels: reason (timeout, model_unavailable, breaker_open, inference_error, canceled)
  - prediction_confidence: Served confidence (histogram)
    Labels: kind (classification, regression)

Cache Metrics:
  - cache_hits_total, cache_misses_total (counter)
  - cache_entries (gauge)
  - cache_corrupt_entries_total (counter)
    Labels: cache

Feedback Metrics:
  - feedback_signals_total: Signals by outcome (counter)
    Labels: outcome (accepted, dropped, published, failed)
  - feedback_queue_depth: Pending signals (gauge)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests by result (counter)
    Labels: name, result
  - circuit_breaker_state_transitions_total (counter)
    Labels: name, from_state, to_state

Example PromQL queries:

	# Prediction fallback ratio
	sum(rate(predictions_total{outcome="fallback"}[5m])) / sum(rate(predictions_total[5m]))

	# Token cache hit rate
	rate(cache_hits_total{cache="tokens"}[5m]) / (rate(cache_hits_total{cache="tokens"}[5m]) + rate(cache_misses_total{cache="tokens"}[5m]))

	# p95 prediction latency
	histogram_quantile(0.95, rate(prediction_duration_seconds_bucket[5m]))

# Thread Safety

All recording functions are safe for concurrent use.

# Cardinality Management

Labels are drawn from fixed constant sets. Session IDs, persona IDs and
fingerprints are never used as labels.
*/
package metrics
