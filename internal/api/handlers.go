// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/vitrine/internal/feedback"
	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/middleware"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/personalize"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/signals"
	"github.com/tomtom215/vitrine/internal/validation"
)

// DecisionEngine is the decision pipeline behind the HTTP surface.
// *personalize.Engine implements it.
type DecisionEngine interface {
	Predict(ctx context.Context, raw *signals.RawContext) predict.Response
	AssignPersona(ctx context.Context, sessionID, personaID string, raw *signals.RawContext) (*persona.AssignResult, error)
	LookupPersona(ctx context.Context, sessionID string) (*persona.AssignResult, error)
	ReleasePersona(ctx context.Context, sessionID string) error
	Personalize(ctx context.Context, req personalize.Request) (*personalize.Result, error)
	Catalog() *persona.Catalog
}

// FeedbackSink accepts interaction signals without blocking.
type FeedbackSink interface {
	Submit(sig feedback.Signal) error
}

// ModelStatus reports the prediction service state for readiness.
type ModelStatus interface {
	Status() predict.Status
}

// Handler serves the decision endpoints.
//
// Handler methods are split across files:
//   - handlers.go: decision endpoints
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	engine    DecisionEngine
	feedback  FeedbackSink
	models    ModelStatus
	startTime time.Time
	draining  atomic.Bool
}

// NewHandler creates the API handler. feedback and models may be nil: the
// feedback endpoint then answers 503 and readiness omits model status.
func NewHandler(engine DecisionEngine, sink FeedbackSink, models ModelStatus) *Handler {
	return &Handler{
		engine:    engine,
		feedback:  sink,
		models:    models,
		startTime: time.Now(),
	}
}

// SetDraining marks the process as shutting down. Readiness then fails so
// load balancers stop routing new traffic while in-flight requests finish.
func (h *Handler) SetDraining() {
	h.draining.Store(true)
}

// Predict handles POST /api/v1/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PredictRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	resp := h.engine.Predict(r.Context(), req.Context)
	rw.JSON(http.StatusOK, PredictResponse{Response: resp, RequestID: req.RequestID})
}

// Persona handles POST /api/v1/persona.
func (h *Handler) Persona(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PersonaRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionIDHeader)
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	res, err := h.engine.AssignPersona(r.Context(), req.SessionID, req.PersonaID, req.Context)
	if err != nil {
		h.writeAssignError(rw, r, err)
		return
	}
	rw.JSON(http.StatusOK, newPersonaResponse(res))
}

// PersonaLookup handles GET /api/v1/persona/{sessionID}. It reports the
// live assignment without matching.
func (h *Handler) PersonaLookup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	params := SessionParams{SessionID: chi.URLParam(r, "sessionID")}
	if verr := validation.ValidateStruct(&params); verr != nil {
		rw.ValidationError(verr)
		return
	}

	res, err := h.engine.LookupPersona(r.Context(), params.SessionID)
	switch {
	case errors.Is(err, persona.ErrAssignmentNotFound):
		rw.NotFound("no persona assigned to session")
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Persona lookup failed")
		rw.InternalError("persona lookup failed")
	default:
		rw.JSON(http.StatusOK, newPersonaResponse(res))
	}
}

// PersonaRelease handles DELETE /api/v1/persona/{sessionID}. The next
// request for the session is matched afresh. Releasing an unassigned
// session succeeds.
func (h *Handler) PersonaRelease(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	params := SessionParams{SessionID: chi.URLParam(r, "sessionID")}
	if verr := validation.ValidateStruct(&params); verr != nil {
		rw.ValidationError(verr)
		return
	}

	if err := h.engine.ReleasePersona(r.Context(), params.SessionID); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Persona release failed")
		rw.InternalError("persona release failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Personalize handles POST /api/v1/personalize.
func (h *Handler) Personalize(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PersonalizeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionIDHeader)
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	res, err := h.engine.Personalize(r.Context(), personalize.Request{
		SessionID: req.SessionID,
		PersonaID: req.PersonaID,
		Context:   req.Context,
	})
	if err != nil {
		h.writeAssignError(rw, r, err)
		return
	}
	rw.JSON(http.StatusOK, PersonalizeResponse{
		SessionID:        res.SessionID,
		Tokens:           res.Tokens,
		MergeMode:        res.MergeMode,
		Persona:          newPersonaResponse(res.Persona),
		Prediction:       res.Prediction,
		ProcessingTimeMS: res.ProcessingTimeMS,
	})
}

func (h *Handler) writeAssignError(rw *ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, persona.ErrPersonaNotFound) {
		rw.NotFound(err.Error())
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Msg("Persona assignment failed")
	rw.InternalError("persona assignment failed")
}

// Feedback handles POST /api/v1/feedback. Accepted signals are answered
// with 202 before they are published.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.feedback == nil {
		rw.ServiceUnavailable("feedback collection is disabled")
		return
	}

	var req FeedbackRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionIDHeader)
	}

	err := h.feedback.Submit(feedback.Signal{
		SessionID:          req.SessionID,
		PersonaID:          req.PersonaID,
		Action:             req.Action,
		Element:            req.Element,
		Timestamp:          req.Timestamp,
		SessionDurationSec: req.SessionDuration,
	})
	var verr *validation.RequestValidationError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.As(err, &verr):
		rw.ValidationError(verr)
	case errors.Is(err, feedback.ErrBufferFull):
		w.Header().Set("Retry-After", "1")
		rw.ServiceUnavailable(err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Feedback submission failed")
		rw.InternalError("feedback submission failed")
	}
}

// Personas handles GET /api/v1/personas.
func (h *Handler) Personas(w http.ResponseWriter, r *http.Request) {
	catalog := h.engine.Catalog()
	profiles := catalog.Profiles()

	resp := PersonaCatalogResponse{
		Version:  catalog.Version(),
		Personas: make([]PersonaSummary, 0, len(profiles)),
	}
	for i := range profiles {
		p := &profiles[i]
		resp.Personas = append(resp.Personas, PersonaSummary{
			ID:          p.ID,
			Name:        p.Name,
			AccountType: p.AccountType,
			Region:      p.Region,
			BudgetTier:  p.BudgetTier,
		})
	}
	NewResponseWriter(w, r).Success(resp)
}
