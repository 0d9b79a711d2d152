// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package features encodes a normalized visit context as the fixed-length
// numeric vector consumed by the prediction models.
//
// Positions are grouped (temporal, device, viewport, historical, environment,
// social, composite) and each group is scaled with its own policy: cyclic
// values are standardized sine/cosine pairs, bounded ratios are min-max
// scaled, heavy-tailed history counts use a robust median/IQR scaler. The
// four core groups are always present (19 positions); the optional groups
// bring the vector up to 35 positions.
//
// The layout is a contract with trained models. Layout.Signature combines the
// schema Version with the enabled groups and travels with every Vector.
package features
