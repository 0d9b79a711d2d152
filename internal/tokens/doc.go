// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package tokens defines design token sets and the rule-based persona
// synthesizer.
//
// A Set travels as one value: sorted unique CSS classes plus CSS custom
// properties. Classes are grouped by the prefix before their last '-'
// ("density-compact" is in group "density"), which is what Merge and Enrich
// use to decide which class wins.
package tokens
