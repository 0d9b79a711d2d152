// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package predict

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomtom215/vitrine/internal/tokens"
)

var (
	// ErrModelUnavailable is returned when a model was not loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrSignatureMismatch is returned when a vector or artifact was built for
	// a different feature layout.
	ErrSignatureMismatch = errors.New("feature signature mismatch")

	// ErrDimensionMismatch is returned when a vector length differs from the
	// model's input dimension.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Classifier predicts categorical style labels.
type Classifier interface {
	// Signature is the feature layout the model was trained on.
	Signature() string
	Classify(values []float64) (Classification, error)
}

// Regressor predicts continuous style variables.
type Regressor interface {
	// Signature is the feature layout the model was trained on.
	Signature() string
	Regress(values []float64) (Regression, error)
}

// Models groups the two prediction models. A nil field is an unavailable model.
type Models struct {
	Classifier Classifier
	Regressor  Regressor
}

// Available reports whether both models are loaded.
func (m Models) Available() bool {
	return m.Classifier != nil && m.Regressor != nil
}

// Head is one softmax output of the classifier.
type Head struct {
	Name   string      `json:"name"`
	Labels []string    `json:"labels"`
	Weight [][]float64 `json:"weights"` // [label][feature]
	Bias   []float64   `json:"bias"`
}

// LabelScore is the winning label of one head.
type LabelScore struct {
	Head          string             `json:"head"`
	Label         string             `json:"label"`
	Probability   float64            `json:"probability"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Class returns the CSS class for the label, e.g. head "color_mode" and
// label "dark" give "color-mode-dark".
func (l LabelScore) Class() string {
	return strings.ReplaceAll(l.Head, "_", "-") + "-" + l.Label
}

// Classification is the output of a Classifier.
type Classification struct {
	Labels []LabelScore `json:"labels"`
}

// Confidence is the mean winning probability over heads.
func (c Classification) Confidence() float64 {
	if len(c.Labels) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range c.Labels {
		sum += l.Probability
	}
	return sum / float64(len(c.Labels))
}

// SoftmaxClassifier is a set of independent linear softmax heads.
type SoftmaxClassifier struct {
	signature string
	dimension int
	heads     []Head
}

// NewSoftmaxClassifier validates heads against dimension.
func NewSoftmaxClassifier(signature string, dimension int, heads []Head) (*SoftmaxClassifier, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("classifier dimension must be positive, got %d", dimension)
	}
	if len(heads) == 0 {
		return nil, errors.New("classifier has no heads")
	}
	for _, h := range heads {
		if h.Name == "" || len(h.Labels) < 2 {
			return nil, fmt.Errorf("head %q needs a name and at least two labels", h.Name)
		}
		if len(h.Weight) != len(h.Labels) || len(h.Bias) != len(h.Labels) {
			return nil, fmt.Errorf("head %q: weights/bias do not match %d labels", h.Name, len(h.Labels))
		}
		for i, row := range h.Weight {
			if len(row) != dimension {
				return nil, fmt.Errorf("head %q label %q: %d weights, want %d", h.Name, h.Labels[i], len(row), dimension)
			}
		}
	}
	return &SoftmaxClassifier{signature: signature, dimension: dimension, heads: heads}, nil
}

// Signature implements Classifier.
func (c *SoftmaxClassifier) Signature() string { return c.signature }

// Classify implements Classifier.
func (c *SoftmaxClassifier) Classify(values []float64) (Classification, error) {
	if len(values) != c.dimension {
		return Classification{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), c.dimension)
	}

	out := Classification{Labels: make([]LabelScore, 0, len(c.heads))}
	for _, h := range c.heads {
		logits := make([]float64, len(h.Labels))
		for i := range h.Labels {
			logits[i] = dot(h.Weight[i], values) + h.Bias[i]
		}
		probs, err := softmax(logits)
		if err != nil {
			return Classification{}, fmt.Errorf("head %s: %w", h.Name, err)
		}

		best := 0
		byLabel := make(map[string]float64, len(h.Labels))
		for i, p := range probs {
			byLabel[h.Labels[i]] = p
			if p > probs[best] {
				best = i
			}
		}
		out.Labels = append(out.Labels, LabelScore{
			Head:          h.Name,
			Label:         h.Labels[best],
			Probability:   probs[best],
			Probabilities: byLabel,
		})
	}
	return out, nil
}

// Output is one continuous style variable of the regressor.
type Output struct {
	Name      string    `json:"name"`
	Variable  string    `json:"variable,omitempty"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Unit      string    `json:"unit,omitempty"`
	Precision int       `json:"precision"`
}

// VariableName returns the CSS custom property for the output.
func (o *Output) VariableName() string {
	if o.Variable != "" {
		return o.Variable
	}
	return "--" + strings.ReplaceAll(o.Name, "_", "-")
}

// OutputValue is one predicted variable.
type OutputValue struct {
	Name      string  `json:"name"`
	Variable  string  `json:"variable"`
	Raw       float64 `json:"raw"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	InRange   bool    `json:"in_range"`
}

// Regression is the output of a Regressor.
type Regression struct {
	Values  []OutputValue `json:"values"`
	Quality float64       `json:"quality"`
}

// Confidence scales the artifact quality by the share of outputs that
// landed inside their declared range before clamping.
func (r Regression) Confidence() float64 {
	if len(r.Values) == 0 {
		return 0
	}
	in := 0
	for _, v := range r.Values {
		if v.InRange {
			in++
		}
	}
	return r.Quality * float64(in) / float64(len(r.Values))
}

// LinearRegressor predicts each output with an independent linear model.
type LinearRegressor struct {
	signature string
	dimension int
	quality   float64
	outputs   []Output
}

// NewLinearRegressor validates outputs against dimension.
func NewLinearRegressor(signature string, dimension int, quality float64, outputs []Output) (*LinearRegressor, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("regressor dimension must be positive, got %d", dimension)
	}
	if quality < 0 || quality > 1 || math.IsNaN(quality) {
		return nil, fmt.Errorf("regressor quality must be within [0, 1], got %v", quality)
	}
	if len(outputs) == 0 {
		return nil, errors.New("regressor has no outputs")
	}
	for _, o := range outputs {
		if o.Name == "" {
			return nil, errors.New("regressor output without a name")
		}
		if len(o.Weights) != dimension {
			return nil, fmt.Errorf("output %q: %d weights, want %d", o.Name, len(o.Weights), dimension)
		}
		if !(o.Min < o.Max) {
			return nil, fmt.Errorf("output %q: min %v must be below max %v", o.Name, o.Min, o.Max)
		}
		if o.Precision < 0 || o.Precision > 4 {
			return nil, fmt.Errorf("output %q: precision %d outside [0, 4]", o.Name, o.Precision)
		}
	}
	return &LinearRegressor{signature: signature, dimension: dimension, quality: quality, outputs: outputs}, nil
}

// Signature implements Regressor.
func (r *LinearRegressor) Signature() string { return r.signature }

// Regress implements Regressor.
func (r *LinearRegressor) Regress(values []float64) (Regression, error) {
	if len(values) != r.dimension {
		return Regression{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), r.dimension)
	}

	out := Regression{Values: make([]OutputValue, 0, len(r.outputs)), Quality: r.quality}
	for i := range r.outputs {
		o := &r.outputs[i]
		raw := dot(o.Weights, values) + o.Bias
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return Regression{}, fmt.Errorf("output %s: non-finite prediction", o.Name)
		}
		value := math.Min(math.Max(raw, o.Min), o.Max)
		out.Values = append(out.Values, OutputValue{
			Name:      o.Name,
			Variable:  o.VariableName(),
			Raw:       raw,
			Value:     value,
			Formatted: strconv.FormatFloat(value, 'f', o.Precision, 64) + o.Unit,
			InRange:   raw >= o.Min && raw <= o.Max,
		})
	}
	return out, nil
}

// TokensFrom converts model outputs into a token set.
func TokensFrom(c Classification, r Regression) tokens.Set {
	classes := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		classes = append(classes, l.Class())
	}
	vars := make(map[string]string, len(r.Values))
	for _, v := range r.Values {
		vars[v.Variable] = v.Formatted
	}
	return tokens.New(classes, vars)
}

func dot(w, x []float64) float64 {
	sum := 0.0
	for i := range w {
		sum += w[i] * x[i]
	}
	return sum
}

// softmax is numerically stable: the max logit is subtracted first.
func softmax(logits []float64) ([]float64, error) {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, errors.New("non-finite logit")
		}
		if l > maxLogit {
			maxLogit = l
		}
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}
