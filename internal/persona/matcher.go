// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package persona

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/signals"
)

// Fallback reasons reported on MatchResult.
const (
	FallbackEmptyCatalog = "empty_catalog"
	FallbackBelowFloor   = "below_floor"
)

// MatcherConfig tunes persona matching.
type MatcherConfig struct {
	// Seed is mixed into every jitter source. Zero selects 42.
	Seed int64 `json:"seed" koanf:"seed"`

	// FloorScore is the minimum winning total; below it the matcher picks a
	// catalog entry uniformly at random instead.
	FloorScore float64 `json:"floor_score" koanf:"floor_score"`
}

// DefaultMatcherConfig returns production defaults.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Seed:       42,
		FloorScore: 15,
	}
}

// Validate checks the configuration.
func (c *MatcherConfig) Validate() error {
	if c.FloorScore < 0 || c.FloorScore > MaxScore {
		return fmt.Errorf("floor_score must be within [0, %.0f], got %.2f", MaxScore, c.FloorScore)
	}
	return nil
}

// MatchResult is the outcome of one matching pass.
type MatchResult struct {
	Persona        Profile   `json:"persona"`
	Score          float64   `json:"score"`
	Breakdown      Breakdown `json:"breakdown"`
	MatchedAt      time.Time `json:"matched_at"`
	Fallback       bool      `json:"fallback"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
}

// Matcher scores every catalog persona against a context and picks the best.
//
// Jitter is session-seeded: the same session ID always draws the same jitter
// sequence, so rematching a session within its TTL reproduces the original
// choice. Calls without a session ID draw from a shared seeded source.
type Matcher struct {
	catalog *Catalog
	config  MatcherConfig
	logger  zerolog.Logger
	now     func() time.Time

	// jitter supplies count uniform draws for a session; replaced in tests.
	jitter func(sessionID string, count int) []float64

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewMatcher creates a matcher over catalog.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMatcher(catalog *Catalog, cfg MatcherConfig, logger zerolog.Logger) (*Matcher, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher config: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	m := &Matcher{
		catalog: catalog,
		config:  cfg,
		logger:  logger.With().Str("component", "persona_matcher").Logger(),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // jitter is for diversity, not security
	}
	m.jitter = m.draws
	return m, nil
}

// Catalog returns the catalog the matcher scores against.
func (m *Matcher) Catalog() *Catalog {
	return m.catalog
}

// Match selects a persona for c. It never fails: an empty catalog yields
// DefaultProfile and a winning score below the floor yields a uniform pick.
func (m *Matcher) Match(c *signals.NormalizedContext, sessionID string) MatchResult {
	matchedAt := m.now()
	n := m.catalog.Len()
	if n == 0 {
		return MatchResult{
			Persona:        DefaultProfile(),
			MatchedAt:      matchedAt,
			Fallback:       true,
			FallbackReason: FallbackEmptyCatalog,
		}
	}

	draws := m.jitter(sessionID, n+1)

	best := -1
	var bestBreakdown Breakdown
	for i := 0; i < n; i++ {
		p := m.catalog.At(i)
		b := Score(c, &p)
		// Jitter goes on last, after every deterministic criterion.
		b.Jitter = draws[i] * JitterPoints
		// Strict comparison keeps the earlier catalog entry on ties.
		if best < 0 || b.Total() > bestBreakdown.Total() {
			best = i
			bestBreakdown = b
		}
	}

	if bestBreakdown.Total() < m.config.FloorScore {
		pick := int(draws[n] * float64(n))
		if pick >= n {
			pick = n - 1
		}
		p := m.catalog.At(pick)
		b := Score(c, &p)
		b.Jitter = draws[pick] * JitterPoints
		m.logger.Debug().
			Float64("best_score", bestBreakdown.Total()).
			Float64("floor", m.config.FloorScore).
			Str("persona_id", p.ID).
			Msg("No persona above floor, picked uniformly")
		return MatchResult{
			Persona:        p,
			Score:          b.Total(),
			Breakdown:      b,
			MatchedAt:      matchedAt,
			Fallback:       true,
			FallbackReason: FallbackBelowFloor,
		}
	}

	return MatchResult{
		Persona:   m.catalog.At(best),
		Score:     bestBreakdown.Total(),
		Breakdown: bestBreakdown,
		MatchedAt: matchedAt,
	}
}

// draws returns count uniform values in [0, 1).
func (m *Matcher) draws(sessionID string, count int) []float64 {
	out := make([]float64, count)
	if sessionID != "" {
		rng := rand.New(rand.NewSource(sessionSeed(sessionID, m.config.Seed))) //nolint:gosec // jitter is for diversity, not security
		for i := range out {
			out[i] = rng.Float64()
		}
		return out
	}

	m.rngMu.Lock()
	for i := range out {
		out[i] = m.rng.Float64()
	}
	m.rngMu.Unlock()
	return out
}

// sessionSeed derives a per-session PRNG seed from FNV-64a of the session ID
// mixed with the configured seed.
func sessionSeed(sessionID string, seed int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	return int64(h.Sum64() ^ uint64(seed)) //nolint:gosec // wraparound is intended
}
