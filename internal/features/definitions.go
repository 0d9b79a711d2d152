// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package features

import (
	"math"

	"github.com/tomtom215/vitrine/internal/signals"
)

// feature is a single vector position.
type feature struct {
	name  string
	group Group

	// neutral replaces a non-finite raw value before scaling.
	neutral float64
	scaler  Scaler
	extract func(c *signals.NormalizedContext) float64

	// present gates optional inputs; absent positions are zero-filled.
	present func(c *signals.NormalizedContext) bool
}

// Activity peaks (fractional local hour) and widths for the intensity curve.
const (
	middayPeak   = 12.5
	middayWidth  = 2.5
	eveningPeak  = 20.5
	eveningWidth = 2.0
)

// Reference ranges for viewport scaling.
const (
	minArea     = 320 * 480
	maxArea     = 3840 * 2160
	minDiagonal = 576.0  // 320x480
	maxDiagonal = 4405.0 // 3840x2160
)

func hasHistory(c *signals.NormalizedContext) bool { return c.HasHistory }

func hasCohort(c *signals.NormalizedContext) bool { return c.HasCohort }

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// definitions lists every feature in canonical vector order.
// Appending, removing, or reordering entries requires bumping Version.
var definitions = []feature{
	// Temporal
	{name: "hour_sin", group: GroupTemporal, scaler: cyclicScaler, extract: func(c *signals.NormalizedContext) float64 {
		return math.Sin(2 * math.Pi * c.FractionalHour() / 24)
	}},
	{name: "hour_cos", group: GroupTemporal, scaler: cyclicScaler, extract: func(c *signals.NormalizedContext) float64 {
		return math.Cos(2 * math.Pi * c.FractionalHour() / 24)
	}},
	{name: "dow_sin", group: GroupTemporal, scaler: cyclicScaler, extract: func(c *signals.NormalizedContext) float64 {
		return math.Sin(2 * math.Pi * float64(c.DayOfWeek) / 7)
	}},
	{name: "dow_cos", group: GroupTemporal, scaler: cyclicScaler, extract: func(c *signals.NormalizedContext) float64 {
		return math.Cos(2 * math.Pi * float64(c.DayOfWeek) / 7)
	}},
	{name: "is_business_hours", group: GroupTemporal, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.IsBusinessHours())
	}},
	{name: "is_weekend", group: GroupTemporal, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.IsWeekend())
	}},
	{name: "activity_intensity", group: GroupTemporal, neutral: 0.5, scaler: MinMaxScaler{0, 1}, extract: func(c *signals.NormalizedContext) float64 {
		return ActivityIntensity(c.FractionalHour())
	}},

	// Device
	{name: "is_mobile", group: GroupDevice, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.DeviceClass() == signals.DeviceMobile)
	}},
	{name: "is_tablet", group: GroupDevice, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.DeviceClass() == signals.DeviceTablet)
	}},
	{name: "is_desktop", group: GroupDevice, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.DeviceClass() == signals.DeviceDesktop)
	}},
	{name: "touch_capable", group: GroupDevice, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.TouchEnabled || c.MaxTouchPoints > 0)
	}},
	{name: "pixel_ratio", group: GroupDevice, neutral: 1, scaler: MinMaxScaler{1, 4}, extract: func(c *signals.NormalizedContext) float64 {
		return c.DevicePixelRatio
	}},

	// Viewport
	{name: "viewport_area", group: GroupViewport, neutral: 1280 * 800, scaler: MinMaxScaler{minArea, maxArea}, extract: func(c *signals.NormalizedContext) float64 {
		return float64(c.ViewportWidth) * float64(c.ViewportHeight)
	}},
	{name: "viewport_aspect", group: GroupViewport, neutral: 1.6, scaler: MinMaxScaler{0.25, 4}, extract: func(c *signals.NormalizedContext) float64 {
		return float64(c.ViewportWidth) / float64(c.ViewportHeight)
	}},
	{name: "viewport_diagonal", group: GroupViewport, neutral: 1509, scaler: MinMaxScaler{minDiagonal, maxDiagonal}, extract: func(c *signals.NormalizedContext) float64 {
		return math.Hypot(float64(c.ViewportWidth), float64(c.ViewportHeight))
	}},
	{name: "pixel_density", group: GroupViewport, neutral: 6, scaler: MinMaxScaler{5, 9}, extract: func(c *signals.NormalizedContext) float64 {
		physical := float64(c.ViewportWidth) * float64(c.ViewportHeight) * c.DevicePixelRatio * c.DevicePixelRatio
		return math.Log10(physical)
	}},

	// Historical
	{name: "hist_avg_session_duration", group: GroupHistorical, present: hasHistory, scaler: RobustScaler{Median: 180, IQR: 420, Limit: 10}, extract: func(c *signals.NormalizedContext) float64 {
		return c.History.AvgSessionDurationSec
	}},
	{name: "hist_total_interactions", group: GroupHistorical, present: hasHistory, scaler: RobustScaler{Median: 25, IQR: 120, Limit: 10}, extract: func(c *signals.NormalizedContext) float64 {
		return c.History.TotalInteractions
	}},
	{name: "hist_days_since_first_seen", group: GroupHistorical, present: hasHistory, scaler: RobustScaler{Median: 14, IQR: 60, Limit: 10}, extract: func(c *signals.NormalizedContext) float64 {
		return c.History.DaysSinceFirstSeen
	}},

	// Environment
	{name: "network_quality", group: GroupEnvironment, neutral: 0.5, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		switch c.Connection {
		case signals.ConnectionFast:
			return 1
		case signals.ConnectionSlow:
			return 0
		default:
			return 0.5
		}
	}},
	{name: "downlink", group: GroupEnvironment, neutral: signals.DefaultDownlinkMbps, scaler: MinMaxScaler{0, 10}, extract: func(c *signals.NormalizedContext) float64 {
		return c.DownlinkMbps
	}},
	{name: "rtt", group: GroupEnvironment, neutral: signals.DefaultRTTMillis, scaler: MinMaxScaler{0, 1000}, extract: func(c *signals.NormalizedContext) float64 {
		return c.RTTMillis
	}},
	{name: "save_data", group: GroupEnvironment, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.SaveData)
	}},
	{name: "reduced_motion", group: GroupEnvironment, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.PrefersReducedMotion)
	}},
	{name: "prefers_dark", group: GroupEnvironment, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.PrefersDark())
	}},
	{name: "high_contrast", group: GroupEnvironment, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.HighContrast())
	}},
	{name: "font_scale", group: GroupEnvironment, neutral: 1, scaler: MinMaxScaler{0.75, 2}, extract: func(c *signals.NormalizedContext) float64 {
		return c.FontScale
	}},

	// Social
	{name: "cohort_dark_mode_fraction", group: GroupSocial, present: hasCohort, scaler: MinMaxScaler{0, 1}, extract: func(c *signals.NormalizedContext) float64 {
		return c.Cohort.DarkModeFraction
	}},
	{name: "cohort_reduced_motion_fraction", group: GroupSocial, present: hasCohort, scaler: MinMaxScaler{0, 1}, extract: func(c *signals.NormalizedContext) float64 {
		return c.Cohort.ReducedMotionFraction
	}},
	{name: "cohort_compact_density_fraction", group: GroupSocial, present: hasCohort, scaler: MinMaxScaler{0, 1}, extract: func(c *signals.NormalizedContext) float64 {
		return c.Cohort.CompactDensityFraction
	}},
	{name: "cohort_font_scale", group: GroupSocial, present: hasCohort, neutral: 1, scaler: MinMaxScaler{0.75, 2}, extract: func(c *signals.NormalizedContext) float64 {
		return c.Cohort.AvgFontScale
	}},

	// Composite
	{name: "touch_mouse_error_ratio", group: GroupComposite, neutral: 0, scaler: MinMaxScaler{-4.62, 4.62}, extract: func(c *signals.NormalizedContext) float64 {
		// log ratio, smoothed so zero error rates stay finite
		return math.Log((c.TouchErrorRate + 0.01) / (c.MouseErrorRate + 0.01))
	}},
	{name: "authenticated_engagement", group: GroupComposite, scaler: MinMaxScaler{0, 8}, extract: func(c *signals.NormalizedContext) float64 {
		multiplier := 1.0
		if c.Authenticated {
			multiplier = 1.5
		}
		return multiplier * math.Log1p(float64(c.PageViews)+float64(c.ClickCount)/5)
	}},
	{name: "mobile_slow_network", group: GroupComposite, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.DeviceClass() == signals.DeviceMobile && c.Connection == signals.ConnectionSlow)
	}},
	{name: "evening_dark", group: GroupComposite, scaler: Identity{}, extract: func(c *signals.NormalizedContext) float64 {
		return flag(c.IsEvening() && c.PrefersDark())
	}},
}

// ActivityIntensity returns storefront traffic intensity in [0, 1] for a
// fractional local hour: the larger of two bells centered on the midday and
// evening peaks, measured on the 24-hour circle.
func ActivityIntensity(hour float64) float64 {
	return math.Max(bell(hour, middayPeak, middayWidth), bell(hour, eveningPeak, eveningWidth))
}

func bell(hour, peak, width float64) float64 {
	d := math.Abs(hour - peak)
	if d > 12 {
		d = 24 - d
	}
	return math.Exp(-(d * d) / (2 * width * width))
}
