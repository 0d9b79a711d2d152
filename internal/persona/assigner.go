// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package persona

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/signals"
)

// DefaultAssignmentTTL is how long a session keeps its persona.
const DefaultAssignmentTTL = 24 * time.Hour

// AssignRequest asks for the persona of a session.
type AssignRequest struct {
	// SessionID identifies the visitor session. Empty generates a new one.
	SessionID string

	// Context is used for matching. Nil matches against the neutral context.
	Context *signals.NormalizedContext

	// PersonaID, when set, overrides matching and replaces any assignment.
	PersonaID string
}

// AssignResult is the persona in effect for a session.
type AssignResult struct {
	SessionID  string       `json:"session_id"`
	Persona    Profile      `json:"persona"`
	Fresh      bool         `json:"fresh"`
	Assignment Assignment   `json:"assignment"`
	Match      *MatchResult `json:"match,omitempty"`
}

// Assigner manages the session to persona lifecycle: cached assignments are
// returned unchanged until they expire or are overridden, and the first
// request for a session matches exactly once even under concurrency.
type Assigner struct {
	matcher *Matcher
	store   AssignmentStore
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	flights singleflight.Group
}

// NewAssigner creates an Assigner. A non-positive ttl selects DefaultAssignmentTTL.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAssigner(matcher *Matcher, store AssignmentStore, ttl time.Duration, logger zerolog.Logger) (*Assigner, error) {
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if store == nil {
		return nil, errors.New("assignment store is required")
	}
	if ttl <= 0 {
		ttl = DefaultAssignmentTTL
	}
	return &Assigner{
		matcher: matcher,
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With().Str("component", "persona_assigner").Logger(),
	}, nil
}

// Catalog returns the catalog personas are drawn from.
func (a *Assigner) Catalog() *Catalog {
	return a.matcher.Catalog()
}

// Assign resolves the persona for req.SessionID.
//
// Behavior:
//   - PersonaID set: the persona replaces any assignment (ErrPersonaNotFound
//     if it is not in the catalog)
//   - live assignment: returned unchanged with Fresh=false
//   - none or expired: a fresh match is stored; concurrent first requests
//     for one session share a single match and all observe the same persona
func (a *Assigner) Assign(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if req.PersonaID != "" {
		return a.override(ctx, sessionID, req.PersonaID)
	}

	v, err, _ := a.flights.Do(sessionID, func() (interface{}, error) {
		return a.resolve(ctx, sessionID, req.Context)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*AssignResult)
	return &res, nil
}

// Lookup returns the live assignment without matching.
func (a *Assigner) Lookup(ctx context.Context, sessionID string) (*AssignResult, error) {
	stored, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, ok := a.matcher.Catalog().Get(stored.PersonaID)
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return &AssignResult{SessionID: sessionID, Persona: p, Assignment: *stored}, nil
}

// Release drops the session's assignment; the next Assign matches afresh.
func (a *Assigner) Release(ctx context.Context, sessionID string) error {
	return a.store.Delete(ctx, sessionID)
}

// Sweep purges expired assignments from the store and records how many
// were removed.
func (a *Assigner) Sweep(ctx context.Context) (int, error) {
	n, err := a.store.PurgeExpired(ctx)
	metrics.RecordAssignmentsPurged(n)
	if err != nil {
		return n, fmt.Errorf("purge expired assignments: %w", err)
	}
	return n, nil
}

func (a *Assigner) override(ctx context.Context, sessionID, personaID string) (*AssignResult, error) {
	p, ok := a.matcher.Catalog().Get(personaID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, personaID)
	}
	now := a.now()
	asg := &Assignment{
		SessionID:  sessionID,
		PersonaID:  p.ID,
		Source:     SourceOverride,
		AssignedAt: now,
		ExpiresAt:  now.Add(a.ttl),
	}
	if err := a.store.Put(ctx, asg); err != nil {
		return nil, fmt.Errorf("store override: %w", err)
	}
	metrics.RecordPersonaAssignment(metrics.AssignmentOverride)
	a.logger.Debug().Str("session_id", sessionID).Str("persona_id", p.ID).Msg("Persona override applied")
	return &AssignResult{SessionID: sessionID, Persona: p, Fresh: true, Assignment: *asg}, nil
}

func (a *Assigner) resolve(ctx context.Context, sessionID string, c *signals.NormalizedContext) (*AssignResult, error) {
	stored, err := a.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		if p, ok := a.matcher.Catalog().Get(stored.PersonaID); ok {
			metrics.RecordPersonaAssignment(metrics.AssignmentCached)
			return &AssignResult{SessionID: sessionID, Persona: p, Assignment: *stored}, nil
		}
		// Persona left the catalog since assignment; match again.
		a.logger.Warn().Str("session_id", sessionID).Str("persona_id", stored.PersonaID).
			Msg("Assigned persona no longer in catalog")
		if err := a.store.Delete(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("drop stale assignment: %w", err)
		}
	case !errors.Is(err, ErrAssignmentNotFound):
		return nil, fmt.Errorf("load assignment: %w", err)
	}

	if c == nil {
		neutral := signals.Normalize(nil)
		c = &neutral
	}
	match := a.matcher.Match(c, sessionID)
	breakdown := match.Breakdown
	now := a.now()
	candidate := &Assignment{
		SessionID:  sessionID,
		PersonaID:  match.Persona.ID,
		Source:     SourceMatch,
		Score:      match.Score,
		Breakdown:  &breakdown,
		Fallback:   match.Fallback,
		AssignedAt: now,
		ExpiresAt:  now.Add(a.ttl),
	}

	actual, created, err := a.store.PutIfAbsent(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("store assignment: %w", err)
	}
	if !created {
		// Another writer got there first; adopt its assignment.
		p, ok := a.matcher.Catalog().Get(actual.PersonaID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, actual.PersonaID)
		}
		metrics.RecordPersonaAssignment(metrics.AssignmentAdopted)
		return &AssignResult{SessionID: sessionID, Persona: p, Assignment: *actual}, nil
	}

	if match.Fallback {
		metrics.RecordPersonaAssignment(metrics.AssignmentFallback)
	} else {
		metrics.RecordPersonaAssignment(metrics.AssignmentMatched)
	}
	metrics.ObservePersonaMatchScore(match.Score)
	a.logger.Debug().
		Str("session_id", sessionID).
		Str("persona_id", match.Persona.ID).
		Float64("score", match.Score).
		Bool("fallback", match.Fallback).
		Msg("Persona assigned")

	return &AssignResult{
		SessionID:  sessionID,
		Persona:    match.Persona,
		Fresh:      true,
		Assignment: *actual,
		Match:      &match,
	}, nil
}
