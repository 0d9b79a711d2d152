// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package tokens

import (
	"fmt"
	"regexp"

	"github.com/tomtom215/vitrine/internal/persona"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Policy holds the tunable thresholds of the synthesis rules.
type Policy struct {
	// YoungAgeBelow is the first age that no longer gets the small font bucket.
	YoungAgeBelow int `koanf:"young_age_below"`

	// SeniorAgeFrom is the first age that gets the large font bucket.
	SeniorAgeFrom int `koanf:"senior_age_from"`

	// BusinessAccent is the brand-neutral accent for business accounts.
	BusinessAccent string `koanf:"business_accent"`

	// DefaultAccent is used for individuals without a favorite color.
	DefaultAccent string `koanf:"default_accent"`
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		YoungAgeBelow:  40,
		SeniorAgeFrom:  60,
		BusinessAccent: "#475569",
		DefaultAccent:  DefaultAccentColor,
	}
}

// Validate checks the policy.
func (p *Policy) Validate() error {
	if p.YoungAgeBelow <= 0 || p.SeniorAgeFrom <= p.YoungAgeBelow {
		return fmt.Errorf("age thresholds must satisfy 0 < young_age_below (%d) < senior_age_from (%d)", p.YoungAgeBelow, p.SeniorAgeFrom)
	}
	if !hexColorPattern.MatchString(p.BusinessAccent) {
		return fmt.Errorf("business_accent %q is not a hex color", p.BusinessAccent)
	}
	if !hexColorPattern.MatchString(p.DefaultAccent) {
		return fmt.Errorf("default_accent %q is not a hex color", p.DefaultAccent)
	}
	return nil
}

type bucket struct {
	class string
	value string
}

type fontBucket struct {
	class      string
	size       string
	lineHeight string
}

var (
	fontSmall  = fontBucket{class: "font-scale-small", size: "15px", lineHeight: "1.45"}
	fontMedium = fontBucket{class: "font-scale-medium", size: "16px", lineHeight: "1.5"}
	fontLarge  = fontBucket{class: "font-scale-large", size: "18px", lineHeight: "1.6"}
)

var motionBuckets = map[string]bucket{
	persona.AnimationNone:    {class: "motion-none", value: "0ms"},
	persona.AnimationReduced: {class: "motion-reduced", value: "150ms"},
	persona.AnimationFull:    {class: "motion-full", value: "300ms"},
}

var densityBuckets = map[string]bucket{
	persona.DensityCompact:     {class: "density-compact", value: "4px"},
	persona.DensityComfortable: {class: "density-comfortable", value: "8px"},
	persona.DensitySpacious:    {class: "density-spacious", value: "12px"},
}

var layoutBuckets = map[string]bucket{
	persona.LayoutList:  {class: "layout-list", value: "2px"},
	persona.LayoutGrid:  {class: "layout-grid", value: "6px"},
	persona.LayoutCards: {class: "layout-cards", value: "12px"},
}

var colorModes = map[string]string{
	persona.SchemeLight: "color-mode-light",
	persona.SchemeDark:  "color-mode-dark",
	persona.SchemeAuto:  "color-mode-auto",
}

var typographies = map[string]string{
	persona.TypographySans:  "typography-sans",
	persona.TypographySerif: "typography-serif",
	persona.TypographyMono:  "typography-mono",
}

// Synthesizer turns a persona into a supplementary token set with bucketed
// rules. Every rule is total: unrecognized values take the middle bucket.
type Synthesizer struct {
	policy Policy
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(policy Policy) (*Synthesizer, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid token policy: %w", err)
	}
	return &Synthesizer{policy: policy}, nil
}

// Synthesize maps p to tokens.
func (s *Synthesizer) Synthesize(p *persona.Profile) Set {
	font := s.fontBucket(p.Age)
	motion := pick(motionBuckets, p.Preferences.Animation, persona.AnimationReduced)
	density := pick(densityBuckets, p.Preferences.Density, persona.DensityComfortable)
	layout := pick(layoutBuckets, p.Preferences.Layout, persona.LayoutGrid)
	colorMode := pick(colorModes, p.Preferences.ColorScheme, persona.SchemeAuto)
	typography := pick(typographies, p.Preferences.Typography, persona.TypographySans)

	return New(
		[]string{font.class, motion.class, density.class, layout.class, colorMode, typography},
		map[string]string{
			VarFontSizeBase:      font.size,
			VarLineHeight:        font.lineHeight,
			VarAnimationDuration: motion.value,
			VarSpacingUnit:       density.value,
			VarBorderRadius:      layout.value,
			VarAccentColor:       s.accent(p),
		},
	)
}

func (s *Synthesizer) fontBucket(age int) fontBucket {
	switch {
	case age < s.policy.YoungAgeBelow:
		return fontSmall
	case age < s.policy.SeniorAgeFrom:
		return fontMedium
	default:
		return fontLarge
	}
}

// accent prefers the persona's own color, then the account-type default.
func (s *Synthesizer) accent(p *persona.Profile) string {
	if hexColorPattern.MatchString(p.Preferences.AccentColor) {
		return p.Preferences.AccentColor
	}
	if p.IsBusiness() {
		return s.policy.BusinessAccent
	}
	return s.policy.DefaultAccent
}

func pick[V any](table map[string]V, key, middle string) V {
	if v, ok := table[key]; ok {
		return v
	}
	return table[middle]
}
