// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package features

import "math"

// Scaler maps a raw feature value onto the scale the models were trained on.
type Scaler interface {
	Transform(x float64) float64
}

// Identity passes values through unchanged. Used for binary flags.
type Identity struct{}

// Transform implements Scaler.
func (Identity) Transform(x float64) float64 { return x }

// StandardScaler centers by Mean and divides by Std.
// A non-positive Std only centers.
type StandardScaler struct {
	Mean float64
	Std  float64
}

// Transform implements Scaler.
func (s StandardScaler) Transform(x float64) float64 {
	if s.Std <= 0 {
		return x - s.Mean
	}
	return (x - s.Mean) / s.Std
}

// MinMaxScaler maps [Min, Max] onto [0, 1], clipping values outside the range.
type MinMaxScaler struct {
	Min float64
	Max float64
}

// Transform implements Scaler.
func (s MinMaxScaler) Transform(x float64) float64 {
	span := s.Max - s.Min
	if span <= 0 {
		return 0
	}
	return clip((x-s.Min)/span, 0, 1)
}

// RobustScaler centers by Median and divides by the interquartile range,
// so a handful of very long sessions does not flatten everyone else.
// Output is clipped to [-Limit, Limit] when Limit is positive.
type RobustScaler struct {
	Median float64
	IQR    float64
	Limit  float64
}

// Transform implements Scaler.
func (s RobustScaler) Transform(x float64) float64 {
	iqr := s.IQR
	if iqr <= 0 {
		iqr = 1
	}
	v := (x - s.Median) / iqr
	if s.Limit > 0 {
		v = clip(v, -s.Limit, s.Limit)
	}
	return v
}

// cyclicScaler standardizes sine/cosine encodings. Over a uniform period
// sin and cos have mean 0 and standard deviation 1/sqrt(2).
var cyclicScaler = StandardScaler{Mean: 0, Std: math.Sqrt2 / 2}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
