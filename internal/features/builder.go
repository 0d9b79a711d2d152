// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package features

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/tomtom215/vitrine/internal/signals"
)

// Vector is the model input for one request.
type Vector struct {
	Values    []float64 `json:"values"`
	Signature string    `json:"signature"`
}

// Len returns the number of positions.
func (v Vector) Len() int { return len(v.Values) }

// Fingerprint returns a stable hex SHA-256 over the signature and the IEEE-754
// bits of every value. Two vectors share a fingerprint only when they are
// bit-for-bit identical under the same layout.
func (v Vector) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(v.Signature))
	h.Write([]byte{0})
	var buf [8]byte
	for _, x := range v.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Builder converts normalized contexts into vectors for a fixed layout.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	layout Layout
	defs   []feature
}

// NewBuilder creates a Builder for the given groups. Core groups are always
// enabled regardless of the argument.
func NewBuilder(groups Group) *Builder {
	groups |= CoreGroups
	groups &= AllGroups

	defs := make([]feature, 0, len(definitions))
	for _, d := range definitions {
		if groups&d.group != 0 {
			defs = append(defs, d)
		}
	}
	return &Builder{
		layout: newLayout(groups, defs),
		defs:   defs,
	}
}

// Layout returns the layout the builder produces.
func (b *Builder) Layout() Layout {
	return b.layout
}

// Build encodes c. The result always has Layout().Len() finite values.
func (b *Builder) Build(c *signals.NormalizedContext) Vector {
	if c == nil {
		empty := signals.Normalize(nil)
		c = &empty
	}
	values := make([]float64, len(b.defs))
	for i := range b.defs {
		values[i] = b.defs[i].value(c)
	}
	return Vector{Values: values, Signature: b.layout.Signature()}
}

func (f *feature) value(c *signals.NormalizedContext) float64 {
	if f.present != nil && !f.present(c) {
		return 0
	}
	raw := f.extract(c)
	if !finite(raw) {
		raw = f.neutral
	}
	if v := f.scaler.Transform(raw); finite(v) {
		return v
	}
	if v := f.scaler.Transform(f.neutral); finite(v) {
		return v
	}
	return 0
}
