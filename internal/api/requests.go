// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"time"

	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/signals"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// PredictRequest is the body of POST /api/v1/predict.
// Context fields are tolerant: wrongly typed values are dropped and
// out-of-range values clamped, never rejected.
type PredictRequest struct {
	Context   *signals.RawContext `json:"context"`
	RequestID string              `json:"request_id,omitempty" validate:"omitempty,max=128"`
}

// PredictResponse echoes the caller's request ID next to the prediction.
type PredictResponse struct {
	predict.Response
	RequestID string `json:"request_id,omitempty"`
}

// PersonaRequest is the body of POST /api/v1/persona. The whole body is
// optional; the session may also come from the X-Session-ID header.
type PersonaRequest struct {
	SessionID string              `json:"session_id,omitempty" validate:"omitempty,session_id"`
	PersonaID string              `json:"persona_id,omitempty" validate:"omitempty,max=64"`
	Context   *signals.RawContext `json:"context,omitempty"`
}

// SessionParams holds the session path parameter of the persona routes.
type SessionParams struct {
	SessionID string `validate:"required,session_id"`
}

// PersonaResponse is the persona in effect for a session. Score and
// Breakdown are absent for overrides and default personas.
type PersonaResponse struct {
	Persona   persona.Profile    `json:"persona"`
	Fresh     bool               `json:"fresh"`
	SessionID string             `json:"session_id"`
	ExpiresAt time.Time          `json:"expires_at"`
	Score     *float64           `json:"score,omitempty"`
	Breakdown *persona.Breakdown `json:"breakdown,omitempty"`
}

func newPersonaResponse(res *persona.AssignResult) PersonaResponse {
	resp := PersonaResponse{
		Persona:   res.Persona,
		Fresh:     res.Fresh,
		SessionID: res.SessionID,
		ExpiresAt: res.Assignment.ExpiresAt,
	}
	switch {
	case res.Match != nil:
		score := res.Match.Score
		breakdown := res.Match.Breakdown
		resp.Score = &score
		resp.Breakdown = &breakdown
	case res.Assignment.Breakdown != nil:
		score := res.Assignment.Score
		breakdown := *res.Assignment.Breakdown
		resp.Score = &score
		resp.Breakdown = &breakdown
	}
	return resp
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	SessionID       string    `json:"session_id,omitempty"`
	PersonaID       string    `json:"persona_id,omitempty"`
	Action          string    `json:"action"`
	Element         string    `json:"element"`
	Timestamp       time.Time `json:"timestamp"`
	SessionDuration float64   `json:"session_duration"`
}

// PersonalizeRequest is the body of POST /api/v1/personalize.
type PersonalizeRequest struct {
	SessionID string              `json:"session_id,omitempty" validate:"omitempty,session_id"`
	PersonaID string              `json:"persona_id,omitempty" validate:"omitempty,max=64"`
	Context   *signals.RawContext `json:"context"`
}

// PersonalizeResponse is the merged decision for one page view.
type PersonalizeResponse struct {
	SessionID        string           `json:"session_id"`
	Tokens           tokens.Set       `json:"tokens"`
	MergeMode        string           `json:"merge_mode"`
	Persona          PersonaResponse  `json:"persona"`
	Prediction       predict.Response `json:"prediction"`
	ProcessingTimeMS float64          `json:"processing_time_ms"`
}

// PersonaSummary is one catalog entry in GET /api/v1/personas.
type PersonaSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
	Region      string `json:"region"`
	BudgetTier  string `json:"budget_tier"`
}

// PersonaCatalogResponse lists the loaded catalog.
type PersonaCatalogResponse struct {
	Version  string           `json:"version"`
	Personas []PersonaSummary `json:"personas"`
}
