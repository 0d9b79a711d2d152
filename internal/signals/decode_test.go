// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package signals

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestRawContext_UnmarshalJSON_Tolerant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, raw *RawContext)
	}{
		{
			name:  "fractional viewport truncated",
			input: `{"viewport_width":390.5}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.ViewportWidth == nil || *raw.ViewportWidth != 390 {
					t.Errorf("ViewportWidth = %v, want 390", raw.ViewportWidth)
				}
			},
		},
		{
			name:  "integer overflow saturates",
			input: `{"viewport_width":99999999999999999999,"timezone_offset_minutes":-99999999999999999999}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.ViewportWidth == nil || *raw.ViewportWidth != math.MaxInt32 {
					t.Errorf("ViewportWidth = %v, want MaxInt32", raw.ViewportWidth)
				}
				if raw.TimezoneOffsetMinutes == nil || *raw.TimezoneOffsetMinutes != math.MinInt32 {
					t.Errorf("TimezoneOffsetMinutes = %v, want MinInt32", raw.TimezoneOffsetMinutes)
				}
			},
		},
		{
			name:  "numeric string hour",
			input: `{"hour":"20"}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.Hour == nil || *raw.Hour != 20 {
					t.Errorf("Hour = %v, want 20", raw.Hour)
				}
			},
		},
		{
			name:  "unparsable hour dropped",
			input: `{"hour":"noon","day_of_week":6}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.Hour != nil {
					t.Errorf("Hour = %d, want nil", *raw.Hour)
				}
				if raw.DayOfWeek == nil || *raw.DayOfWeek != 6 {
					t.Errorf("DayOfWeek = %v, want 6", raw.DayOfWeek)
				}
			},
		},
		{
			name:  "string and numeric booleans",
			input: `{"touch_enabled":"true","save_data":0,"authenticated":"maybe"}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.TouchEnabled == nil || !*raw.TouchEnabled {
					t.Errorf("TouchEnabled = %v, want true", raw.TouchEnabled)
				}
				if raw.SaveData == nil || *raw.SaveData {
					t.Errorf("SaveData = %v, want false", raw.SaveData)
				}
				if raw.Authenticated != nil {
					t.Errorf("Authenticated = %v, want nil", *raw.Authenticated)
				}
			},
		},
		{
			name:  "wrong kinds left nil",
			input: `{"locale":42,"device_pixel_ratio":{"x":1},"platform":["mac"],"viewport_height":null}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.Locale != nil || raw.DevicePixelRatio != nil || raw.Platform != nil || raw.ViewportHeight != nil {
					t.Errorf("expected nil fields, got %+v", raw)
				}
			},
		},
		{
			name:  "epoch millis timestamp",
			input: `{"timestamp":1773225000000}`,
			check: func(t *testing.T, raw *RawContext) {
				want := time.UnixMilli(1773225000000).UTC()
				if raw.Timestamp == nil || !raw.Timestamp.Equal(want) {
					t.Errorf("Timestamp = %v, want %v", raw.Timestamp, want)
				}
			},
		},
		{
			name:  "bad timestamp dropped",
			input: `{"timestamp":"yesterday"}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.Timestamp != nil {
					t.Errorf("Timestamp = %v, want nil", raw.Timestamp)
				}
			},
		},
		{
			name:  "nested history tolerant",
			input: `{"history":{"avg_session_duration_sec":"120","total_interactions":true},"cohort":"n/a"}`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.History == nil || raw.History.AvgSessionDurationSec == nil || *raw.History.AvgSessionDurationSec != 120 {
					t.Fatalf("History = %+v, want avg 120", raw.History)
				}
				if raw.History.TotalInteractions != nil {
					t.Errorf("TotalInteractions = %v, want nil", *raw.History.TotalInteractions)
				}
				if raw.Cohort == nil || raw.Cohort.DarkModeFraction != nil {
					t.Errorf("Cohort = %+v, want empty block", raw.Cohort)
				}
			},
		},
		{
			name:  "non-object context is empty",
			input: `"mobile"`,
			check: func(t *testing.T, raw *RawContext) {
				if raw.ViewportWidth != nil || raw.Hour != nil {
					t.Errorf("expected empty context, got %+v", raw)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawContext
			if err := json.Unmarshal([]byte(tt.input), &raw); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			tt.check(t, &raw)
		})
	}
}

func TestRawContext_UnmarshalJSON_NormalizesInDomain(t *testing.T) {
	var raw RawContext
	input := `{"viewport_width":99999999999999999999,"viewport_height":-5.5,"hour":"99","device_pixel_ratio":"1e400"}`
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	c := NewNormalizer(WithClock(fixedClock)).Normalize(&raw)
	if c.ViewportWidth != MaxViewportWidth {
		t.Errorf("ViewportWidth = %d, want %d", c.ViewportWidth, MaxViewportWidth)
	}
	if c.ViewportHeight != 1 {
		t.Errorf("ViewportHeight = %d, want 1", c.ViewportHeight)
	}
	if c.Hour != 23 {
		t.Errorf("Hour = %d, want 23", c.Hour)
	}
	if math.IsInf(c.DevicePixelRatio, 0) || math.IsNaN(c.DevicePixelRatio) {
		t.Errorf("DevicePixelRatio = %v, want finite", c.DevicePixelRatio)
	}
}
