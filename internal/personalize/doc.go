// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package personalize combines model predictions with session personas.
//
// Engine.Personalize normalizes the raw context once and then runs two
// branches concurrently: feature vector to predict.Service, and session to
// persona.Assigner. The persona is rendered through tokens.Synthesizer and
// merged with the model's tokens. When the prediction fell back or its
// classification confidence is below Config.ConfidenceThreshold the persona
// overlays the model (MergeOverlay); otherwise the persona only fills groups
// the model left out (MergeEnrich).
package personalize
