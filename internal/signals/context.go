// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package signals

import "time"

// RawContext is the browser-side snapshot of a single visit.
// Every field is optional; nil means the signal was not captured.
type RawContext struct {
	// Time and locale
	Timestamp             *time.Time `json:"timestamp,omitempty"`
	Hour                  *int       `json:"hour,omitempty"`
	Minute                *int       `json:"minute,omitempty"`
	DayOfWeek             *int       `json:"day_of_week,omitempty"` // 0 = Sunday
	TimezoneOffsetMinutes *int       `json:"timezone_offset_minutes,omitempty"`
	Timezone              *string    `json:"timezone,omitempty"`
	Locale                *string    `json:"locale,omitempty"`
	Region                *string    `json:"region,omitempty"`

	// Viewport and screen
	ViewportWidth    *int     `json:"viewport_width,omitempty"`
	ViewportHeight   *int     `json:"viewport_height,omitempty"`
	ScreenWidth      *int     `json:"screen_width,omitempty"`
	ScreenHeight     *int     `json:"screen_height,omitempty"`
	DevicePixelRatio *float64 `json:"device_pixel_ratio,omitempty"`
	Orientation      *string  `json:"orientation,omitempty"`
	ColorDepth       *int     `json:"color_depth,omitempty"`

	// Device capability
	TouchEnabled        *bool    `json:"touch_enabled,omitempty"`
	MaxTouchPoints      *int     `json:"max_touch_points,omitempty"`
	HardwareConcurrency *int     `json:"hardware_concurrency,omitempty"`
	DeviceMemoryGB      *float64 `json:"device_memory_gb,omitempty"`
	Platform            *string  `json:"platform,omitempty"`
	MobileHint          *bool    `json:"mobile_hint,omitempty"`

	// Network
	EffectiveType  *string  `json:"effective_type,omitempty"`
	ConnectionType *string  `json:"connection_type,omitempty"`
	DownlinkMbps   *float64 `json:"downlink_mbps,omitempty"`
	RTTMillis      *float64 `json:"rtt_ms,omitempty"`
	SaveData       *bool    `json:"save_data,omitempty"`

	// Accessibility
	PrefersReducedMotion *bool    `json:"prefers_reduced_motion,omitempty"`
	ColorScheme          *string  `json:"color_scheme,omitempty"`
	Contrast             *string  `json:"contrast,omitempty"`
	ForcedColors         *bool    `json:"forced_colors,omitempty"`
	FontScale            *float64 `json:"font_scale,omitempty"`

	// Storage and privacy
	CookiesEnabled   *bool `json:"cookies_enabled,omitempty"`
	LocalStorage     *bool `json:"local_storage,omitempty"`
	DoNotTrack       *bool `json:"do_not_track,omitempty"`
	Authenticated    *bool `json:"authenticated,omitempty"`
	ReturningVisitor *bool `json:"returning_visitor,omitempty"`

	// Rolling behavior within the current session
	SessionDurationSec *float64 `json:"session_duration_sec,omitempty"`
	PageViews          *int     `json:"page_views,omitempty"`
	ScrollDepth        *float64 `json:"scroll_depth,omitempty"`
	ClickCount         *int     `json:"click_count,omitempty"`
	TouchErrorRate     *float64 `json:"touch_error_rate,omitempty"`
	MouseErrorRate     *float64 `json:"mouse_error_rate,omitempty"`
	DwellTimeSec       *float64 `json:"dwell_time_sec,omitempty"`
	ZoomEvents         *int     `json:"zoom_events,omitempty"`
	TypingSpeedCPM     *float64 `json:"typing_speed_cpm,omitempty"`

	// Optional aggregates supplied by collaborators
	History *History `json:"history,omitempty"`
	Cohort  *Cohort  `json:"cohort,omitempty"`
}

// History holds rolling aggregates over a visitor's recent sessions.
type History struct {
	AvgSessionDurationSec *float64 `json:"avg_session_duration_sec,omitempty"`
	TotalInteractions     *float64 `json:"total_interactions,omitempty"`
	DaysSinceFirstSeen    *float64 `json:"days_since_first_seen,omitempty"`
}

// Cohort holds aggregate preferences observed among similar visitors.
type Cohort struct {
	DarkModeFraction       *float64 `json:"dark_mode_fraction,omitempty"`
	ReducedMotionFraction  *float64 `json:"reduced_motion_fraction,omitempty"`
	CompactDensityFraction *float64 `json:"compact_density_fraction,omitempty"`
	AvgFontScale           *float64 `json:"avg_font_scale,omitempty"`
}

// HistoryStats is the normalized form of History.
type HistoryStats struct {
	AvgSessionDurationSec float64 `json:"avg_session_duration_sec"`
	TotalInteractions     float64 `json:"total_interactions"`
	DaysSinceFirstSeen    float64 `json:"days_since_first_seen"`
}

// CohortStats is the normalized form of Cohort.
type CohortStats struct {
	DarkModeFraction       float64 `json:"dark_mode_fraction"`
	ReducedMotionFraction  float64 `json:"reduced_motion_fraction"`
	CompactDensityFraction float64 `json:"compact_density_fraction"`
	AvgFontScale           float64 `json:"avg_font_scale"`
}

// NormalizedContext is a RawContext with every field present and in-domain.
// It is built once per request by the Normalizer and never mutated afterwards.
type NormalizedContext struct {
	Hour                  int    `json:"hour"`
	Minute                int    `json:"minute"`
	DayOfWeek             int    `json:"day_of_week"`
	TimezoneOffsetMinutes int    `json:"timezone_offset_minutes"`
	Timezone              string `json:"timezone"`
	Locale                string `json:"locale"`
	Region                string `json:"region"`

	ViewportWidth    int     `json:"viewport_width"`
	ViewportHeight   int     `json:"viewport_height"`
	ScreenWidth      int     `json:"screen_width"`
	ScreenHeight     int     `json:"screen_height"`
	DevicePixelRatio float64 `json:"device_pixel_ratio"`
	Orientation      string  `json:"orientation"`
	ColorDepth       int     `json:"color_depth"`

	TouchEnabled        bool    `json:"touch_enabled"`
	MaxTouchPoints      int     `json:"max_touch_points"`
	HardwareConcurrency int     `json:"hardware_concurrency"`
	DeviceMemoryGB      float64 `json:"device_memory_gb"`
	Platform            string  `json:"platform"`
	MobileHint          bool    `json:"mobile_hint"`

	EffectiveType  string  `json:"effective_type"`
	ConnectionType string  `json:"connection_type"`
	DownlinkMbps   float64 `json:"downlink_mbps"`
	RTTMillis      float64 `json:"rtt_ms"`
	SaveData       bool    `json:"save_data"`
	Connection     string  `json:"connection_quality"`

	PrefersReducedMotion bool    `json:"prefers_reduced_motion"`
	ColorScheme          string  `json:"color_scheme"`
	Contrast             string  `json:"contrast"`
	ForcedColors         bool    `json:"forced_colors"`
	FontScale            float64 `json:"font_scale"`

	CookiesEnabled   bool `json:"cookies_enabled"`
	LocalStorage     bool `json:"local_storage"`
	DoNotTrack       bool `json:"do_not_track"`
	Authenticated    bool `json:"authenticated"`
	ReturningVisitor bool `json:"returning_visitor"`

	SessionDurationSec float64 `json:"session_duration_sec"`
	PageViews          int     `json:"page_views"`
	ScrollDepth        float64 `json:"scroll_depth"`
	ClickCount         int     `json:"click_count"`
	TouchErrorRate     float64 `json:"touch_error_rate"`
	MouseErrorRate     float64 `json:"mouse_error_rate"`
	DwellTimeSec       float64 `json:"dwell_time_sec"`
	ZoomEvents         int     `json:"zoom_events"`
	TypingSpeedCPM     float64 `json:"typing_speed_cpm"`

	HasHistory bool         `json:"has_history"`
	History    HistoryStats `json:"history"`
	HasCohort  bool         `json:"has_cohort"`
	Cohort     CohortStats  `json:"cohort"`
}

// Device classes resolved from viewport width.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Connection quality buckets.
const (
	ConnectionSlow   = "slow"
	ConnectionMedium = "medium"
	ConnectionFast   = "fast"
)

// Day parts used for time-of-day correlations.
const (
	DayPartNight    = "night"
	DayPartMorning  = "morning"
	DayPartBusiness = "business"
	DayPartWeekend  = "weekend_day"
	DayPartEvening  = "evening"
)

// Viewport width thresholds (CSS pixels).
const (
	MobileMaxWidth = 767
	TabletMaxWidth = 1024
)

// DeviceClass classifies the visit by viewport width:
// below 768 is mobile, 768 through 1024 is tablet, anything wider is desktop.
func (c *NormalizedContext) DeviceClass() string {
	switch {
	case c.ViewportWidth <= MobileMaxWidth:
		return DeviceMobile
	case c.ViewportWidth <= TabletMaxWidth:
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

// IsWeekend reports whether the local day is Saturday or Sunday.
func (c *NormalizedContext) IsWeekend() bool {
	return c.DayOfWeek == int(time.Saturday) || c.DayOfWeek == int(time.Sunday)
}

// IsBusinessHours reports whether the local time falls on a weekday between
// 09:00 and 17:59.
func (c *NormalizedContext) IsBusinessHours() bool {
	return !c.IsWeekend() && c.Hour >= 9 && c.Hour < 18
}

// IsEvening reports whether the local hour is between 18:00 and 22:59.
func (c *NormalizedContext) IsEvening() bool {
	return c.Hour >= 18 && c.Hour < 23
}

// DayPart buckets the local time for persona scoring.
func (c *NormalizedContext) DayPart() string {
	switch {
	case c.Hour < 6 || c.Hour >= 23:
		return DayPartNight
	case c.Hour < 9:
		return DayPartMorning
	case c.Hour < 18:
		if c.IsWeekend() {
			return DayPartWeekend
		}
		return DayPartBusiness
	default:
		return DayPartEvening
	}
}

// FractionalHour returns the local time of day in hours, e.g. 14.5 for 14:30.
func (c *NormalizedContext) FractionalHour() float64 {
	return float64(c.Hour) + float64(c.Minute)/60
}

// PrefersDark reports whether the visitor asked for a dark color scheme.
func (c *NormalizedContext) PrefersDark() bool {
	return c.ColorScheme == "dark"
}

// HighContrast reports whether the visitor asked for increased contrast.
func (c *NormalizedContext) HighContrast() bool {
	return c.Contrast == "more" || c.ForcedColors
}
