// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package predict

import (
	"fmt"

	"github.com/tomtom215/vitrine/internal/features"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// baselineQuality is the regression quality reported by the hand-tuned priors.
const baselineQuality = 0.6

type label struct {
	name    string
	bias    float64
	weights map[string]float64
}

type baselineHead struct {
	name   string
	labels []label
}

// Hand-tuned priors keyed by feature name. Features missing from the layout
// are skipped, so the baseline works with any group selection.
var baselineHeads = []baselineHead{
	{name: "density", labels: []label{
		{name: "compact", bias: 0, weights: map[string]float64{"is_mobile": 1.4, "save_data": 0.6, "cohort_compact_density_fraction": 1.0}},
		{name: "comfortable", bias: 0.6, weights: map[string]float64{"is_tablet": 0.4, "is_desktop": 0.3}},
		{name: "spacious", bias: 0, weights: map[string]float64{"viewport_area": 1.2, "font_scale": 1.5, "high_contrast": 0.8}},
	}},
	{name: "typography", labels: []label{
		{name: "sans", bias: 1.0, weights: map[string]float64{"is_mobile": 0.4}},
		{name: "serif", bias: 0, weights: map[string]float64{"is_weekend": 0.6, "evening_dark": 0.3}},
		{name: "mono", bias: -0.5, weights: map[string]float64{"is_business_hours": 0.5, "is_desktop": 0.4, "authenticated_engagement": 0.5}},
	}},
	{name: "color_mode", labels: []label{
		{name: "light", bias: 0.6, weights: map[string]float64{"is_business_hours": 0.5, "high_contrast": 0.3}},
		{name: "dark", bias: 0, weights: map[string]float64{"prefers_dark": 2.5, "evening_dark": 1.0, "cohort_dark_mode_fraction": 1.0}},
		{name: "auto", bias: 0.3, weights: map[string]float64{}},
	}},
}

type baselineOutput struct {
	name      string
	variable  string
	bias      float64
	weights   map[string]float64
	min, max  float64
	unit      string
	precision int
}

var baselineOutputs = []baselineOutput{
	{name: "font_size_base", variable: tokens.VarFontSizeBase, bias: 15.2, min: 12, max: 24, unit: "px",
		weights: map[string]float64{"font_scale": 4, "high_contrast": 1, "is_mobile": -0.5}},
	{name: "spacing_unit", variable: tokens.VarSpacingUnit, bias: 7, min: 4, max: 16, unit: "px",
		weights: map[string]float64{"viewport_area": 3, "is_mobile": -2, "font_scale": 2}},
	{name: "border_radius", variable: tokens.VarBorderRadius, bias: 6, min: 0, max: 16, unit: "px",
		weights: map[string]float64{"is_mobile": 2, "touch_capable": 1, "is_business_hours": -2}},
	{name: "line_height", variable: tokens.VarLineHeight, bias: 1.48, min: 1.2, max: 2, precision: 2,
		weights: map[string]float64{"font_scale": 0.2, "high_contrast": 0.1}},
	{name: "animation_duration", variable: tokens.VarAnimationDuration, bias: 180, min: 0, max: 400, unit: "ms",
		weights: map[string]float64{"reduced_motion": -200, "mobile_slow_network": -100, "save_data": -80, "network_quality": 60}},
}

// BaselineModels builds hand-tuned models for layout, for deployments that
// ship no trained artifacts.
func BaselineModels(layout features.Layout) (Models, error) {
	dim := layout.Len()
	weightsFor := func(named map[string]float64) []float64 {
		w := make([]float64, dim)
		for name, v := range named {
			if i, ok := layout.Index(name); ok {
				w[i] = v
			}
		}
		return w
	}

	heads := make([]Head, 0, len(baselineHeads))
	for _, bh := range baselineHeads {
		h := Head{Name: bh.name}
		for _, l := range bh.labels {
			h.Labels = append(h.Labels, l.name)
			h.Weight = append(h.Weight, weightsFor(l.weights))
			h.Bias = append(h.Bias, l.bias)
		}
		heads = append(heads, h)
	}
	classifier, err := NewSoftmaxClassifier(layout.Signature(), dim, heads)
	if err != nil {
		return Models{}, fmt.Errorf("baseline classifier: %w", err)
	}

	outputs := make([]Output, 0, len(baselineOutputs))
	for _, bo := range baselineOutputs {
		outputs = append(outputs, Output{
			Name:      bo.name,
			Variable:  bo.variable,
			Weights:   weightsFor(bo.weights),
			Bias:      bo.bias,
			Min:       bo.min,
			Max:       bo.max,
			Unit:      bo.unit,
			Precision: bo.precision,
		})
	}
	regressor, err := NewLinearRegressor(layout.Signature(), dim, baselineQuality, outputs)
	if err != nil {
		return Models{}, fmt.Errorf("baseline regressor: %w", err)
	}

	return Models{Classifier: classifier, Regressor: regressor}, nil
}
