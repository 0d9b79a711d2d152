// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package personalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/vitrine/internal/features"
	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/signals"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// Merge modes reported on Result.
const (
	// MergeOverlay lays persona tokens over the model's.
	MergeOverlay = "overlay"

	// MergeEnrich keeps the model's tokens and fills gaps from the persona.
	MergeEnrich = "enrich"
)

// DefaultConfidenceThreshold is the classification confidence below which
// persona tokens take precedence.
const DefaultConfidenceThreshold = 0.55

// Config tunes the engine.
type Config struct {
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{ConfidenceThreshold: DefaultConfidenceThreshold}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0, 1], got %v", c.ConfidenceThreshold)
	}
	return nil
}

// Predictor produces model tokens for a feature vector.
type Predictor interface {
	Predict(ctx context.Context, v features.Vector) predict.Response
}

// PersonaAssigner resolves the persona of a session.
type PersonaAssigner interface {
	Assign(ctx context.Context, req persona.AssignRequest) (*persona.AssignResult, error)
	Lookup(ctx context.Context, sessionID string) (*persona.AssignResult, error)
	Release(ctx context.Context, sessionID string) error
	Catalog() *persona.Catalog
}

// Request is one personalization call.
type Request struct {
	SessionID string
	PersonaID string
	Context   *signals.RawContext
}

// Result combines the model prediction and the session persona.
type Result struct {
	SessionID        string                `json:"session_id"`
	Tokens           tokens.Set            `json:"tokens"`
	MergeMode        string                `json:"merge_mode"`
	Prediction       predict.Response      `json:"prediction"`
	Persona          *persona.AssignResult `json:"persona"`
	PersonaTokens    tokens.Set            `json:"persona_tokens"`
	ProcessingTimeMS float64               `json:"processing_time_ms"`
}

// Engine runs the decision pipeline: normalize once, then predict and
// assign a persona concurrently, then merge the two token sets.
type Engine struct {
	normalizer  *signals.Normalizer
	builder     *features.Builder
	predictor   Predictor
	assigner    PersonaAssigner
	synthesizer *tokens.Synthesizer
	config      Config
	logger      zerolog.Logger
}

// NewEngine wires the pipeline components.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(normalizer *signals.Normalizer, builder *features.Builder, predictor Predictor,
	assigner PersonaAssigner, synthesizer *tokens.Synthesizer, cfg Config, logger zerolog.Logger) (*Engine, error) {
	switch {
	case normalizer == nil:
		return nil, errors.New("normalizer is required")
	case builder == nil:
		return nil, errors.New("feature builder is required")
	case predictor == nil:
		return nil, errors.New("predictor is required")
	case assigner == nil:
		return nil, errors.New("persona assigner is required")
	case synthesizer == nil:
		return nil, errors.New("token synthesizer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid personalize config: %w", err)
	}
	return &Engine{
		normalizer:  normalizer,
		builder:     builder,
		predictor:   predictor,
		assigner:    assigner,
		synthesizer: synthesizer,
		config:      cfg,
		logger:      logger.With().Str("component", "personalize").Logger(),
	}, nil
}

// Catalog returns the persona catalog.
func (e *Engine) Catalog() *persona.Catalog {
	return e.assigner.Catalog()
}

// Layout returns the feature layout fed to the predictor.
func (e *Engine) Layout() features.Layout {
	return e.builder.Layout()
}

// Predict normalizes raw and returns model tokens. It never fails.
func (e *Engine) Predict(ctx context.Context, raw *signals.RawContext) predict.Response {
	normalized := e.normalizer.Normalize(raw)
	return e.predictor.Predict(ctx, e.builder.Build(&normalized))
}

// AssignPersona resolves the persona for a session. A nil raw context
// matches against the neutral context.
func (e *Engine) AssignPersona(ctx context.Context, sessionID, personaID string, raw *signals.RawContext) (*persona.AssignResult, error) {
	req := persona.AssignRequest{SessionID: sessionID, PersonaID: personaID}
	if raw != nil {
		normalized := e.normalizer.Normalize(raw)
		req.Context = &normalized
	}
	return e.assigner.Assign(ctx, req)
}

// LookupPersona returns the session's live assignment without matching.
// It returns persona.ErrAssignmentNotFound when there is none.
func (e *Engine) LookupPersona(ctx context.Context, sessionID string) (*persona.AssignResult, error) {
	return e.assigner.Lookup(ctx, sessionID)
}

// ReleasePersona drops the session's assignment so the next request
// matches afresh.
func (e *Engine) ReleasePersona(ctx context.Context, sessionID string) error {
	return e.assigner.Release(ctx, sessionID)
}

// Personalize runs the full pipeline.
//
// Only an unknown PersonaID is returned as an error. Other persona failures
// degrade to persona.DefaultProfile and prediction failures already degrade
// to default tokens, so a Result is always produced otherwise.
func (e *Engine) Personalize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	normalized := e.normalizer.Normalize(req.Context)

	var (
		prediction predict.Response
		assignment *persona.AssignResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prediction = e.predictor.Predict(gctx, e.builder.Build(&normalized))
		return nil
	})
	g.Go(func() error {
		res, err := e.assigner.Assign(gctx, persona.AssignRequest{
			SessionID: sessionID,
			PersonaID: req.PersonaID,
			Context:   &normalized,
		})
		if err != nil {
			if errors.Is(err, persona.ErrPersonaNotFound) {
				return err
			}
			logging.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).
				Msg("Persona assignment failed, using default persona")
			res = &persona.AssignResult{SessionID: sessionID, Persona: persona.DefaultProfile(), Fresh: true}
		}
		assignment = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	personaTokens := e.synthesizer.Synthesize(&assignment.Persona)
	merged, mode := e.merge(prediction, personaTokens)

	e.logger.Debug().
		Str("session_id", sessionID).
		Str("persona_id", assignment.Persona.ID).
		Str("merge_mode", mode).
		Bool("fallback", prediction.Fallback).
		Float64("confidence", prediction.Confidence.Classification).
		Msg("Personalized")

	return &Result{
		SessionID:        sessionID,
		Tokens:           merged,
		MergeMode:        mode,
		Prediction:       prediction,
		Persona:          assignment,
		PersonaTokens:    personaTokens,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

func (e *Engine) merge(p predict.Response, personaTokens tokens.Set) (tokens.Set, string) {
	if p.Fallback || p.Confidence.Classification < e.config.ConfidenceThreshold {
		return tokens.Merge(p.Tokens, personaTokens), MergeOverlay
	}
	return tokens.Enrich(p.Tokens, personaTokens), MergeEnrich
}
