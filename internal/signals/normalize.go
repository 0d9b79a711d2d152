// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package signals

import (
	"math"
	"strings"
	"time"

	"github.com/tomtom215/vitrine/internal/cache"
)

// Domain bounds for clamped fields.
const (
	MinViewportWidth  = 1
	MaxViewportWidth  = 7680
	MinViewportHeight = 1
	MaxViewportHeight = 4320

	MinDevicePixelRatio = 0.5
	MaxDevicePixelRatio = 5.0

	MaxTimezoneOffsetMinutes = 14 * 60
	MaxRTTMillis             = 10000
	MaxDownlinkMbps          = 10000
	MaxSessionDurationSec    = 24 * 60 * 60
	MaxHistoryDays           = 3650
)

// Neutral defaults applied when a signal is absent or unusable.
const (
	DefaultViewportWidth       = 1280
	DefaultViewportHeight      = 800
	DefaultDevicePixelRatio    = 1.0
	DefaultColorDepth          = 24
	DefaultHardwareConcurrency = 4
	DefaultDeviceMemoryGB      = 4.0
	DefaultDownlinkMbps        = 5.0
	DefaultRTTMillis           = 100.0
	DefaultFontScale           = 1.0
	DefaultLocale              = "und"
	DefaultTimezone            = "UTC"
	Unknown                    = "unknown"
	NoPreference               = "no-preference"
)

var (
	effectiveTypes  = []string{"slow-2g", "2g", "3g", "4g"}
	connectionTypes = []string{"ethernet", "wifi", "cellular", "bluetooth", "wimax", "other", "none"}
	colorSchemes    = []string{"light", "dark"}
	contrastLevels  = []string{"more", "less", "custom"}
	orientations    = []string{"portrait", "landscape"}
)

// Resolved IANA zones are cached; unknown names are cached as nil.
const (
	zoneCacheTTL      = 24 * time.Hour
	zoneCacheCapacity = 1024
)

// Normalizer converts RawContext values into NormalizedContext values.
// It is safe for concurrent use.
type Normalizer struct {
	now          func() time.Time
	zones        *cache.Keyed[*time.Location]
	loadLocation func(string) (*time.Location, error)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the clock used when a context carries no time signals.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:          time.Now,
		zones:        cache.NewKeyed[*time.Location](zoneCacheTTL, cache.WithCapacity(zoneCacheCapacity)),
		loadLocation: time.LoadLocation,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize normalizes raw with the package default Normalizer.
func Normalize(raw *RawContext) NormalizedContext {
	return defaultNormalizer.Normalize(raw)
}

// Normalize produces a fully populated, in-domain context from raw.
// A nil raw context yields the all-defaults context. It never panics.
func (n *Normalizer) Normalize(raw *RawContext) NormalizedContext {
	if raw == nil {
		raw = &RawContext{}
	}

	var c NormalizedContext

	n.normalizeTime(raw, &c)

	c.Locale = normalizeLocale(raw.Locale)
	c.Region = ResolveRegion(deref(raw.Region), c.Locale, c.Timezone)

	c.ViewportWidth = clampInt(raw.ViewportWidth, MinViewportWidth, MaxViewportWidth, DefaultViewportWidth)
	c.ViewportHeight = clampInt(raw.ViewportHeight, MinViewportHeight, MaxViewportHeight, DefaultViewportHeight)
	c.ScreenWidth = clampInt(raw.ScreenWidth, MinViewportWidth, MaxViewportWidth, c.ViewportWidth)
	c.ScreenHeight = clampInt(raw.ScreenHeight, MinViewportHeight, MaxViewportHeight, c.ViewportHeight)
	c.DevicePixelRatio = clampFloat(raw.DevicePixelRatio, MinDevicePixelRatio, MaxDevicePixelRatio, DefaultDevicePixelRatio)
	c.ColorDepth = clampInt(raw.ColorDepth, 1, 48, DefaultColorDepth)

	defaultOrientation := "landscape"
	if c.ViewportHeight > c.ViewportWidth {
		defaultOrientation = "portrait"
	}
	c.Orientation = enumValue(raw.Orientation, orientations, defaultOrientation)

	c.MaxTouchPoints = clampInt(raw.MaxTouchPoints, 0, 256, 0)
	c.TouchEnabled = boolValue(raw.TouchEnabled, c.MaxTouchPoints > 0)
	c.HardwareConcurrency = clampInt(raw.HardwareConcurrency, 1, 256, DefaultHardwareConcurrency)
	c.DeviceMemoryGB = clampFloat(raw.DeviceMemoryGB, 0.25, 1024, DefaultDeviceMemoryGB)
	c.Platform = freeText(raw.Platform, 64)
	c.MobileHint = boolValue(raw.MobileHint, false)

	c.EffectiveType = enumValue(raw.EffectiveType, effectiveTypes, Unknown)
	c.ConnectionType = enumValue(raw.ConnectionType, connectionTypes, Unknown)
	c.DownlinkMbps = clampFloat(raw.DownlinkMbps, 0, MaxDownlinkMbps, DefaultDownlinkMbps)
	c.RTTMillis = clampFloat(raw.RTTMillis, 0, MaxRTTMillis, DefaultRTTMillis)
	c.SaveData = boolValue(raw.SaveData, false)
	c.Connection = connectionQuality(raw, &c)

	c.PrefersReducedMotion = boolValue(raw.PrefersReducedMotion, false)
	c.ColorScheme = enumValue(raw.ColorScheme, colorSchemes, NoPreference)
	c.Contrast = enumValue(raw.Contrast, contrastLevels, NoPreference)
	c.ForcedColors = boolValue(raw.ForcedColors, false)
	c.FontScale = clampFloat(raw.FontScale, 0.5, 3.0, DefaultFontScale)

	c.CookiesEnabled = boolValue(raw.CookiesEnabled, true)
	c.LocalStorage = boolValue(raw.LocalStorage, true)
	c.DoNotTrack = boolValue(raw.DoNotTrack, false)
	c.Authenticated = boolValue(raw.Authenticated, false)
	c.ReturningVisitor = boolValue(raw.ReturningVisitor, false)

	c.SessionDurationSec = clampFloat(raw.SessionDurationSec, 0, MaxSessionDurationSec, 0)
	c.PageViews = clampInt(raw.PageViews, 0, 10000, 0)
	c.ScrollDepth = clampFloat(raw.ScrollDepth, 0, 1, 0)
	c.ClickCount = clampInt(raw.ClickCount, 0, 100000, 0)
	c.TouchErrorRate = clampFloat(raw.TouchErrorRate, 0, 1, 0)
	c.MouseErrorRate = clampFloat(raw.MouseErrorRate, 0, 1, 0)
	c.DwellTimeSec = clampFloat(raw.DwellTimeSec, 0, MaxSessionDurationSec, 0)
	c.ZoomEvents = clampInt(raw.ZoomEvents, 0, 10000, 0)
	c.TypingSpeedCPM = clampFloat(raw.TypingSpeedCPM, 0, 2000, 0)

	if h := raw.History; h != nil {
		c.HasHistory = true
		c.History = HistoryStats{
			AvgSessionDurationSec: clampFloat(h.AvgSessionDurationSec, 0, MaxSessionDurationSec, 0),
			TotalInteractions:     clampFloat(h.TotalInteractions, 0, 1e7, 0),
			DaysSinceFirstSeen:    clampFloat(h.DaysSinceFirstSeen, 0, MaxHistoryDays, 0),
		}
	}
	if co := raw.Cohort; co != nil {
		c.HasCohort = true
		c.Cohort = CohortStats{
			DarkModeFraction:       clampFloat(co.DarkModeFraction, 0, 1, 0),
			ReducedMotionFraction:  clampFloat(co.ReducedMotionFraction, 0, 1, 0),
			CompactDensityFraction: clampFloat(co.CompactDensityFraction, 0, 1, 0),
			AvgFontScale:           clampFloat(co.AvgFontScale, 0.5, 3.0, DefaultFontScale),
		}
	}

	return c
}

// normalizeTime resolves local hour, minute, and weekday.
// Explicit fields win over the timestamp, which wins over the clock.
func (n *Normalizer) normalizeTime(raw *RawContext, c *NormalizedContext) {
	c.TimezoneOffsetMinutes = clampInt(raw.TimezoneOffsetMinutes, -MaxTimezoneOffsetMinutes, MaxTimezoneOffsetMinutes, 0)
	c.Timezone = DefaultTimezone
	if tz := strings.TrimSpace(deref(raw.Timezone)); tz != "" && len(tz) <= 64 {
		c.Timezone = tz
	}

	var ts time.Time
	if raw.Timestamp != nil && !raw.Timestamp.IsZero() {
		ts = *raw.Timestamp
	} else {
		ts = n.now()
	}
	local := n.localTime(ts, raw.TimezoneOffsetMinutes != nil, c.TimezoneOffsetMinutes, c.Timezone)

	c.Hour = clampInt(raw.Hour, 0, 23, local.Hour())
	c.Minute = clampInt(raw.Minute, 0, 59, local.Minute())
	c.DayOfWeek = clampInt(raw.DayOfWeek, 0, 6, int(local.Weekday()))
	if raw.Hour != nil && raw.Minute == nil {
		c.Minute = 0
	}
}

func (n *Normalizer) localTime(ts time.Time, hasOffset bool, offsetMinutes int, tz string) time.Time {
	if hasOffset {
		return ts.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
	}
	if tz != DefaultTimezone {
		if loc := n.location(tz); loc != nil {
			return ts.In(loc)
		}
	}
	return ts.UTC()
}

// location resolves an IANA zone name, reading zoneinfo at most once per
// name while the cache entry lives.
func (n *Normalizer) location(name string) *time.Location {
	if loc, ok := n.zones.Get(name); ok {
		return loc
	}
	loc, err := n.loadLocation(name)
	if err != nil {
		loc = nil
	}
	n.zones.Set(name, loc)
	return loc
}

// connectionQuality buckets the network signals. Connection type and
// effective type are authoritative; measured throughput is consulted only
// when it was actually reported.
func connectionQuality(raw *RawContext, c *NormalizedContext) string {
	if c.SaveData {
		return ConnectionSlow
	}
	switch c.ConnectionType {
	case "ethernet":
		return ConnectionFast
	case "none":
		return ConnectionSlow
	}
	switch c.EffectiveType {
	case "slow-2g", "2g":
		return ConnectionSlow
	case "3g":
		return ConnectionMedium
	case "4g":
		if raw.RTTMillis != nil && c.RTTMillis > 300 {
			return ConnectionMedium
		}
		return ConnectionFast
	}
	if raw.DownlinkMbps != nil {
		switch {
		case c.DownlinkMbps >= 5:
			return ConnectionFast
		case c.DownlinkMbps >= 1.5:
			return ConnectionMedium
		default:
			return ConnectionSlow
		}
	}
	if c.ConnectionType == "wifi" {
		return ConnectionFast
	}
	return ConnectionMedium
}

func clampInt(v *int, lo, hi, def int) int {
	if v == nil {
		return def
	}
	switch {
	case *v < lo:
		return lo
	case *v > hi:
		return hi
	default:
		return *v
	}
}

func clampFloat(v *float64, lo, hi, def float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return math.Min(hi, math.Max(lo, *v))
}

func boolValue(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// enumValue lower-cases s and returns it when allowed. Absent values get def;
// present but unrecognized values map to Unknown.
func enumValue(s *string, allowed []string, def string) string {
	if s == nil {
		return def
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	if v == def {
		return def
	}
	return Unknown
}

func freeText(s *string, maxLen int) string {
	v := strings.ToLower(strings.TrimSpace(deref(s)))
	if v == "" {
		return Unknown
	}
	if len(v) > maxLen {
		v = v[:maxLen]
	}
	return v
}

// normalizeLocale canonicalizes a BCP 47 tag to "ll" or "ll-CC".
func normalizeLocale(s *string) string {
	v := strings.TrimSpace(strings.ReplaceAll(deref(s), "_", "-"))
	if v == "" || len(v) > 35 {
		return DefaultLocale
	}
	parts := strings.Split(v, "-")
	lang := strings.ToLower(parts[0])
	if len(lang) < 2 || len(lang) > 3 {
		return DefaultLocale
	}
	for _, p := range parts[1:] {
		if len(p) == 2 {
			return lang + "-" + strings.ToUpper(p)
		}
	}
	return lang
}
