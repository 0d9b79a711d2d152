// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package predict

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/features"
	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// Fallback reasons reported on Response.
const (
	ReasonTimeout           = "timeout"
	ReasonModelUnavailable  = "model_unavailable"
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonBreakerOpen       = "breaker_open"
	ReasonInferenceError    = "inference_error"
	ReasonCanceled          = "canceled"
	ReasonWorkersBusy       = "workers_busy"
)

var (
	// ErrInferenceTimeout is returned when the models did not answer within
	// Config.Timeout. It counts as a breaker failure.
	ErrInferenceTimeout = errors.New("inference timed out")

	// ErrWorkersBusy is returned when no inference worker freed up within
	// Config.Timeout. It counts as a breaker failure.
	ErrWorkersBusy = errors.New("inference workers busy")
)

const tokenCacheName = "tokens"

// Config tunes the prediction service.
type Config struct {
	// Timeout is the internal deadline for one prediction.
	Timeout time.Duration `koanf:"timeout"`

	// CacheTTL is how long a computed token set is reused for its fingerprint.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheCapacity bounds the number of cached fingerprints.
	CacheCapacity int `koanf:"cache_capacity"`

	// Workers bounds concurrent inferences.
	Workers int `koanf:"workers"`

	// FallbackLogInterval throttles fallback warnings to one per interval.
	FallbackLogInterval time.Duration `koanf:"fallback_log_interval"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             75 * time.Millisecond,
		CacheTTL:            5 * time.Minute,
		CacheCapacity:       10000,
		Workers:             runtime.GOMAXPROCS(0),
		FallbackLogInterval: 10 * time.Second,
		Breaker:             DefaultBreakerConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("prediction timeout must be positive, got %v", c.Timeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("prediction cache_ttl must be positive, got %v", c.CacheTTL)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("prediction cache_capacity cannot be negative, got %d", c.CacheCapacity)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("prediction workers must be positive, got %d", c.Workers)
	}
	if c.FallbackLogInterval <= 0 {
		return fmt.Errorf("prediction fallback_log_interval must be positive, got %v", c.FallbackLogInterval)
	}
	return c.Breaker.Validate()
}

// Confidence is the model confidence of a prediction. Both values are zero
// for fallback responses.
type Confidence struct {
	Classification float64 `json:"classification"`
	Regression     float64 `json:"regression"`
}

// Response is the result of Predict. It always carries a usable token set.
type Response struct {
	Tokens           tokens.Set `json:"tokens"`
	Confidence       Confidence `json:"confidence"`
	ProcessingTimeMS float64    `json:"processing_time_ms"`
	CacheHit         bool       `json:"cache_hit"`
	Fallback         bool       `json:"fallback"`
	FallbackReason   string     `json:"fallback_reason,omitempty"`
	Fingerprint      string     `json:"fingerprint"`
	FeatureVersion   string     `json:"feature_version"`
}

// prediction is the cached payload for one fingerprint.
type prediction struct {
	Tokens     tokens.Set `json:"tokens"`
	Confidence Confidence `json:"confidence"`
}

// Status describes the service for health reporting.
type Status struct {
	ClassifierLoaded bool   `json:"classifier_loaded"`
	RegressorLoaded  bool   `json:"regressor_loaded"`
	Signature        string `json:"signature"`
	BreakerState     string `json:"breaker_state"`
	CacheEntries     int    `json:"cache_entries"`
}

// Service maps feature vectors to design tokens.
//
// Lookups go through a fingerprint cache that stores the encoded response
// payload. On a miss, concurrent callers for one fingerprint share a single
// inference that runs on a bounded worker pool behind a circuit breaker.
// Waiting for a worker and waiting for the models share one Config.Timeout
// deadline; either expiring is reported to the breaker as a failure, so a
// hung model opens it. At most Config.Workers model calls run at once, hung
// or not. A model call that finishes after its callers gave up still fills
// the cache. Any failure degrades to tokens.Default with zero confidence,
// which is never cached.
type Service struct {
	models    Models
	signature string
	config    Config
	logger    zerolog.Logger

	cache   *cache.Keyed[[]byte]
	flights singleflight.Group
	breaker *gobreaker.CircuitBreaker[*prediction]
	workers chan struct{}

	fallbackLog *rate.Limiter
	inflight    sync.WaitGroup
}

// NewService creates a prediction service for vectors with the given layout
// signature. Nil models are allowed and make every prediction fall back.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewService(models Models, signature string, cfg Config, logger zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prediction config: %w", err)
	}
	if signature == "" {
		return nil, errors.New("feature signature is required")
	}
	if models.Classifier != nil && models.Classifier.Signature() != signature {
		return nil, fmt.Errorf("%w: classifier %q, layout %q", ErrSignatureMismatch, models.Classifier.Signature(), signature)
	}
	if models.Regressor != nil && models.Regressor.Signature() != signature {
		return nil, fmt.Errorf("%w: regressor %q, layout %q", ErrSignatureMismatch, models.Regressor.Signature(), signature)
	}

	return &Service{
		models:      models,
		signature:   signature,
		config:      cfg,
		logger:      logger.With().Str("component", "predict").Logger(),
		cache:       cache.NewKeyed[[]byte](cfg.CacheTTL, cache.WithCapacity(cfg.CacheCapacity)),
		breaker:     newInferenceBreaker(cfg.Breaker),
		workers:     make(chan struct{}, cfg.Workers),
		fallbackLog: rate.NewLimiter(rate.Every(cfg.FallbackLogInterval), 1),
	}, nil
}

// Signature returns the feature layout signature the service accepts.
func (s *Service) Signature() string { return s.signature }

// Predict returns tokens for v. It never fails; see Service.
func (s *Service) Predict(ctx context.Context, v features.Vector) Response {
	start := time.Now()
	fingerprint := v.Fingerprint()

	if v.Signature != s.signature {
		return s.fallback(start, fingerprint, ReasonSignatureMismatch,
			fmt.Errorf("%w: vector %q, service %q", ErrSignatureMismatch, v.Signature, s.signature))
	}
	if !s.models.Available() {
		return s.fallback(start, fingerprint, ReasonModelUnavailable, ErrModelUnavailable)
	}

	if p, ok := s.lookup(fingerprint); ok {
		metrics.RecordCacheLookup(tokenCacheName, true)
		resp := s.respond(start, fingerprint, p)
		resp.CacheHit = true
		metrics.RecordPrediction(metrics.PredictionHit, time.Since(start))
		return resp
	}
	metrics.RecordCacheLookup(tokenCacheName, false)

	values := make([]float64, len(v.Values))
	copy(values, v.Values)

	ch := s.flights.DoChan(fingerprint, func() (interface{}, error) {
		return s.infer(fingerprint, values)
	})

	timer := time.NewTimer(s.config.Timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return s.fallback(start, fingerprint, reasonFor(res.Err), res.Err)
		}
		resp := s.respond(start, fingerprint, res.Val.(*prediction))
		metrics.RecordPrediction(metrics.PredictionMiss, time.Since(start))
		metrics.ObservePredictionConfidence(resp.Confidence.Classification, resp.Confidence.Regression)
		return resp
	case <-timer.C:
		return s.fallback(start, fingerprint, ReasonTimeout,
			fmt.Errorf("inference exceeded %v", s.config.Timeout))
	case <-ctx.Done():
		return s.fallback(start, fingerprint, ReasonCanceled, ctx.Err())
	}
}

// Status reports model availability and cache state.
func (s *Service) Status() Status {
	return Status{
		ClassifierLoaded: s.models.Classifier != nil,
		RegressorLoaded:  s.models.Regressor != nil,
		Signature:        s.signature,
		BreakerState:     s.breaker.State().String(),
		CacheEntries:     s.cache.Len(),
	}
}

// PurgeExpired drops expired cache entries and reports how many.
func (s *Service) PurgeExpired() int {
	n := s.cache.PurgeExpired()
	metrics.UpdateCacheSize(tokenCacheName, s.cache.Len())
	return n
}

// Close waits for in-flight inferences, bounded by ctx.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lookup decodes a cached payload. An entry that fails to decode is dropped
// and reported as a miss.
func (s *Service) lookup(fingerprint string) (*prediction, bool) {
	data, ok := s.cache.Get(fingerprint)
	if !ok {
		return nil, false
	}
	var p prediction
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.RecordCacheCorruption(tokenCacheName)
		s.logger.Debug().Err(err).Str("fingerprint", fingerprint).Msg("Discarding undecodable cache entry")
		s.cache.Delete(fingerprint)
		return nil, false
	}
	return &p, true
}

// infer runs inside a singleflight call, detached from any one caller.
func (s *Service) infer(fingerprint string, values []float64) (*prediction, error) {
	p, err := s.breaker.Execute(func() (*prediction, error) {
		return s.runOnWorker(fingerprint, values)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(float64(s.breaker.Counts().ConsecutiveFailures))
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return p, nil
}

// runOnWorker takes a worker slot and runs the models on their own
// goroutine, which releases the slot when the models return. The wait for
// both is bounded by Config.Timeout.
func (s *Service) runOnWorker(fingerprint string, values []float64) (*prediction, error) {
	deadline := time.NewTimer(s.config.Timeout)
	defer deadline.Stop()

	select {
	case s.workers <- struct{}{}:
	case <-deadline.C:
		return nil, ErrWorkersBusy
	}

	type result struct {
		p   *prediction
		err error
	}
	done := make(chan result, 1)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() { <-s.workers }()

		p, err := s.runModels(values)
		if err == nil {
			p, err = s.store(fingerprint, p)
		}
		done <- result{p, err}
	}()

	select {
	case r := <-done:
		return r.p, r.err
	case <-deadline.C:
		return nil, fmt.Errorf("%w after %v", ErrInferenceTimeout, s.config.Timeout)
	}
}

// store caches p and returns the decoded form of exactly what was cached.
func (s *Service) store(fingerprint string, p *prediction) (*prediction, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode prediction: %w", err)
	}
	s.cache.Set(fingerprint, data)
	metrics.UpdateCacheSize(tokenCacheName, s.cache.Len())

	var cached prediction
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &cached, nil
}

// runModels calls both models, converting a panic into an error.
func (s *Service) runModels(values []float64) (p *prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inference panic: %v", r)
		}
	}()

	classification, err := s.models.Classifier.Classify(values)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	regression, err := s.models.Regressor.Regress(values)
	if err != nil {
		return nil, fmt.Errorf("regress: %w", err)
	}

	return &prediction{
		Tokens: TokensFrom(classification, regression),
		Confidence: Confidence{
			Classification: classification.Confidence(),
			Regression:     regression.Confidence(),
		},
	}, nil
}

func (s *Service) respond(start time.Time, fingerprint string, p *prediction) Response {
	return Response{
		Tokens:           p.Tokens,
		Confidence:       p.Confidence,
		ProcessingTimeMS: elapsedMS(start),
		Fingerprint:      fingerprint,
		FeatureVersion:   s.signature,
	}
}

func (s *Service) fallback(start time.Time, fingerprint, reason string, err error) Response {
	metrics.RecordPredictionFallback(reason)
	metrics.RecordPrediction(metrics.PredictionFallback, time.Since(start))

	if s.fallbackLog.Allow() {
		s.logger.Warn().Err(err).Str("reason", reason).Str("fingerprint", fingerprint).
			Msg("Serving default tokens")
	}

	return Response{
		Tokens:           tokens.Default(),
		ProcessingTimeMS: elapsedMS(start),
		Fallback:         true,
		FallbackReason:   reason,
		Fingerprint:      fingerprint,
		FeatureVersion:   s.signature,
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonBreakerOpen
	case errors.Is(err, ErrModelUnavailable):
		return ReasonModelUnavailable
	case errors.Is(err, ErrInferenceTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrWorkersBusy):
		return ReasonWorkersBusy
	default:
		return ReasonInferenceError
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
