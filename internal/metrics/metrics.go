// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Persona assignment outcomes.
const (
	AssignmentCached   = "cached"
	AssignmentMatched  = "matched"
	AssignmentAdopted  = "adopted"
	AssignmentOverride = "override"
	AssignmentFallback = "fallback"
)

// Prediction outcomes.
const (
	PredictionHit      = "hit"
	PredictionMiss     = "miss"
	PredictionFallback = "fallback"
)

// Feedback outcomes.
const (
	FeedbackAccepted  = "accepted"
	FeedbackDropped   = "dropped"
	FeedbackPublished = "published"
	FeedbackFailed    = "failed"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}, // personalization stays well under a second
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Persona Metrics
	PersonaAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_assignments_total",
			Help: "Total persona assignments by outcome",
		},
		[]string{"outcome"}, // "cached", "matched", "adopted", "override", "fallback"
	)

	PersonaMatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "persona_match_score",
			Help:    "Winning persona score of fresh matches (0-100)",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	PersonaAssignmentsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persona_assignments_purged_total",
			Help: "Total expired persona assignments removed by the sweeper",
		},
	)

	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total token predictions by outcome",
		},
		[]string{"outcome"}, // "hit", "miss", "fallback"
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Token prediction latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25},
		},
		[]string{"outcome"},
	)

	PredictionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_fallbacks_total",
			Help: "Total predictions answered with default tokens, by reason",
		},
		[]string{"reason"},
	)

	PredictionConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Model confidence of served predictions (0-1)",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"kind"}, // "classification", "regression"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"cache"},
	)

	CacheCorruptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_corrupt_entries_total",
			Help: "Total cache entries that failed to decode and were discarded",
		},
		[]string{"cache"},
	)

	// Feedback Metrics
	FeedbackSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_signals_total",
			Help: "Total feedback signals by outcome",
		},
		[]string{"outcome"}, // "accepted", "dropped", "published", "failed"
	)

	FeedbackQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_queue_depth",
			Help: "Feedback signals waiting to be published",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "feature_layout", "catalog_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordPersonaAssignment records a persona assignment outcome
func RecordPersonaAssignment(outcome string) {
	PersonaAssignments.WithLabelValues(outcome).Inc()
}

// ObservePersonaMatchScore records the winning score of a fresh match
func ObservePersonaMatchScore(score float64) {
	PersonaMatchScore.Observe(score)
}

// RecordAssignmentsPurged records assignments removed by a sweep
func RecordAssignmentsPurged(n int) {
	if n > 0 {
		PersonaAssignmentsPurged.Add(float64(n))
	}
}

// RecordPrediction records a prediction outcome and its latency
func RecordPrediction(outcome string, duration time.Duration) {
	PredictionsTotal.WithLabelValues(outcome).Inc()
	PredictionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordPredictionFallback records why default tokens were served
func RecordPredictionFallback(reason string) {
	PredictionFallbacks.WithLabelValues(reason).Inc()
}

// ObservePredictionConfidence records model confidence of a served prediction
func ObservePredictionConfidence(classification, regression float64) {
	PredictionConfidence.WithLabelValues("classification").Observe(classification)
	PredictionConfidence.WithLabelValues("regression").Observe(regression)
}

// RecordCacheLookup records a hit or miss on the named cache
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

// UpdateCacheSize sets the entry gauge of the named cache
func UpdateCacheSize(cache string, entries int) {
	CacheSize.WithLabelValues(cache).Set(float64(entries))
}

// RecordCacheCorruption records an undecodable cache entry
func RecordCacheCorruption(cache string) {
	CacheCorruptions.WithLabelValues(cache).Inc()
}

// RecordFeedback records a feedback signal outcome
func RecordFeedback(outcome string) {
	FeedbackSignals.WithLabelValues(outcome).Inc()
}

// UpdateFeedbackQueueDepth sets the pending feedback gauge
func UpdateFeedbackQueueDepth(depth int) {
	FeedbackQueueDepth.Set(float64(depth))
}

// SetAppInfo publishes build and runtime layout information
func SetAppInfo(version, goVersion, featureLayout, catalogVersion string) {
	AppInfo.WithLabelValues(version, goVersion, featureLayout, catalogVersion).Set(1)
}
