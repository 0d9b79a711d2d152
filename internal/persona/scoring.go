// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package persona

import "github.com/tomtom215/vitrine/internal/signals"

// Criterion weights. The deterministic criteria sum to 85; jitter adds up to 15.
const (
	RegionPoints           = 25.0
	DeviceAgePoints        = 20.0
	TimeAccountPoints      = 20.0
	WeekendPoints          = 10.0
	ConnectionVisualPoints = 10.0
	JitterPoints           = 15.0
	MaxScore               = RegionPoints + DeviceAgePoints + TimeAccountPoints + WeekendPoints + ConnectionVisualPoints + JitterPoints
)

// Breakdown holds per-criterion points for one candidate.
type Breakdown struct {
	Region           float64 `json:"region"`
	DeviceAge        float64 `json:"device_age"`
	TimeAccount      float64 `json:"time_account"`
	Weekend          float64 `json:"weekend"`
	ConnectionVisual float64 `json:"connection_visual"`
	Jitter           float64 `json:"jitter"`
}

// Deterministic returns the points from the five context criteria.
func (b Breakdown) Deterministic() float64 {
	return b.Region + b.DeviceAge + b.TimeAccount + b.Weekend + b.ConnectionVisual
}

// Total returns the full score including jitter.
func (b Breakdown) Total() float64 {
	return b.Deterministic() + b.Jitter
}

// Age brackets: 18-24, 25-34, 35-44, 45-54, 55-64, 65+.
func ageBracket(age int) int {
	switch {
	case age < 25:
		return 0
	case age < 35:
		return 1
	case age < 45:
		return 2
	case age < 55:
		return 3
	case age < 65:
		return 4
	default:
		return 5
	}
}

const rowBusinessDesktop = "business_desktop"

// deviceAgeTable awards up to DeviceAgePoints by device row and age bracket.
// Mobile skews young; desktop and especially business desktop skew older.
var deviceAgeTable = map[string][6]float64{
	signals.DeviceMobile:  {20, 18, 14, 10, 7, 5},
	signals.DeviceTablet:  {8, 12, 16, 18, 17, 15},
	signals.DeviceDesktop: {6, 10, 14, 17, 18, 16},
	rowBusinessDesktop:    {4, 10, 16, 20, 18, 12},
}

// timeAccountTable awards up to TimeAccountPoints by day part and account type.
var timeAccountTable = map[string]map[string]float64{
	signals.DayPartBusiness: {AccountBusiness: 20, AccountIndividual: 8},
	signals.DayPartWeekend:  {AccountBusiness: 6, AccountIndividual: 16},
	signals.DayPartMorning:  {AccountBusiness: 12, AccountIndividual: 12},
	signals.DayPartEvening:  {AccountBusiness: 4, AccountIndividual: 20},
	signals.DayPartNight:    {AccountBusiness: 2, AccountIndividual: 16},
}

// connectionVisualTable awards up to ConnectionVisualPoints for how well the
// persona's animation appetite suits the visitor's network.
var connectionVisualTable = map[string]map[string]float64{
	signals.ConnectionFast:   {AnimationFull: 10, AnimationReduced: 7, AnimationNone: 5},
	signals.ConnectionMedium: {AnimationFull: 6, AnimationReduced: 10, AnimationNone: 8},
	signals.ConnectionSlow:   {AnimationFull: 2, AnimationReduced: 7, AnimationNone: 10},
}

// Score computes the deterministic criteria for one candidate. Jitter is zero.
func Score(c *signals.NormalizedContext, p *Profile) Breakdown {
	var b Breakdown

	if p.Region == c.Region {
		b.Region = RegionPoints
	}

	row := c.DeviceClass()
	if row == signals.DeviceDesktop && p.IsBusiness() {
		row = rowBusinessDesktop
	}
	b.DeviceAge = deviceAgeTable[row][ageBracket(p.Age)]

	b.TimeAccount = timeAccountTable[c.DayPart()][p.AccountType]

	if c.IsWeekend() && p.AccountType == AccountIndividual {
		b.Weekend = WeekendPoints
	}

	if byAnimation, ok := connectionVisualTable[c.Connection]; ok {
		b.ConnectionVisual = byAnimation[p.Preferences.Animation]
	}

	return b
}
