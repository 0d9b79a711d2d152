// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package tokens

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Variable names emitted by the synthesizer and the prediction models.
const (
	VarFontSizeBase      = "--font-size-base"
	VarSpacingUnit       = "--spacing-unit"
	VarBorderRadius      = "--border-radius"
	VarLineHeight        = "--line-height"
	VarAnimationDuration = "--animation-duration"
	VarAccentColor       = "--accent-color"
)

// Class groups. A class belongs to the group named by everything before its
// last '-': "color-mode-dark" is in group "color-mode".
const (
	GroupDensity    = "density"
	GroupTypography = "typography"
	GroupColorMode  = "color-mode"
	GroupFontScale  = "font-scale"
	GroupMotion     = "motion"
	GroupLayout     = "layout"
)

// DefaultAccentColor is the storefront brand accent.
const DefaultAccentColor = "#2563eb"

// Set is an immutable design token set: CSS class names plus CSS custom
// property values. The zero value is an empty set.
type Set struct {
	classes []string
	vars    map[string]string
}

type setJSON struct {
	Classes   []string          `json:"classes"`
	Variables map[string]string `json:"variables"`
}

// New builds a Set. Classes are deduplicated and sorted; empty class names
// and variable names are dropped.
func New(classes []string, vars map[string]string) Set {
	s := Set{}

	if len(classes) > 0 {
		seen := make(map[string]struct{}, len(classes))
		out := make([]string, 0, len(classes))
		for _, c := range classes {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
		sort.Strings(out)
		s.classes = out
	}

	if len(vars) > 0 {
		s.vars = make(map[string]string, len(vars))
		for k, v := range vars {
			if k == "" {
				continue
			}
			s.vars[k] = v
		}
	}
	return s
}

// Default returns the static baseline served whenever a model cannot answer.
func Default() Set {
	return New(
		[]string{"density-comfortable", "typography-sans", "color-mode-light"},
		map[string]string{
			VarFontSizeBase:      "16px",
			VarSpacingUnit:       "8px",
			VarBorderRadius:      "6px",
			VarLineHeight:        "1.5",
			VarAnimationDuration: "150ms",
			VarAccentColor:       DefaultAccentColor,
		},
	)
}

// Classes returns the sorted class names.
func (s Set) Classes() []string {
	out := make([]string, len(s.classes))
	copy(out, s.classes)
	return out
}

// Variables returns a copy of the variable map.
func (s Set) Variables() map[string]string {
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Variable returns one variable value.
func (s Set) Variable(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// HasClass reports whether class is in the set.
func (s Set) HasClass(class string) bool {
	i := sort.SearchStrings(s.classes, class)
	return i < len(s.classes) && s.classes[i] == class
}

// ClassInGroup returns the set's class in group, if any.
func (s Set) ClassInGroup(group string) (string, bool) {
	for _, c := range s.classes {
		if ClassGroup(c) == group {
			return c, true
		}
	}
	return "", false
}

// IsEmpty reports whether the set has no classes and no variables.
func (s Set) IsEmpty() bool {
	return len(s.classes) == 0 && len(s.vars) == 0
}

// Equal reports whether both sets hold the same classes and variables.
func (s Set) Equal(o Set) bool {
	if len(s.classes) != len(o.classes) || len(s.vars) != len(o.vars) {
		return false
	}
	for i := range s.classes {
		if s.classes[i] != o.classes[i] {
			return false
		}
	}
	for k, v := range s.vars {
		if ov, ok := o.vars[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as {"classes": [...], "variables": {...}}.
// Classes are sorted and map keys are emitted in order, so equal sets always
// encode to identical bytes.
func (s Set) MarshalJSON() ([]byte, error) {
	doc := setJSON{Classes: s.classes, Variables: s.vars}
	if doc.Classes == nil {
		doc.Classes = []string{}
	}
	if doc.Variables == nil {
		doc.Variables = map[string]string{}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the MarshalJSON form.
func (s *Set) UnmarshalJSON(data []byte) error {
	var doc setJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = New(doc.Classes, doc.Variables)
	return nil
}

// ClassGroup returns the group of a class name.
func ClassGroup(class string) string {
	if i := strings.LastIndexByte(class, '-'); i > 0 {
		return class[:i]
	}
	return class
}

// Merge lays overlay on top of base: every class group present in overlay
// replaces that group in base, and overlay variables win.
func Merge(base, overlay Set) Set {
	overlayGroups := make(map[string]struct{}, len(overlay.classes))
	for _, c := range overlay.classes {
		overlayGroups[ClassGroup(c)] = struct{}{}
	}

	classes := make([]string, 0, len(base.classes)+len(overlay.classes))
	for _, c := range base.classes {
		if _, replaced := overlayGroups[ClassGroup(c)]; !replaced {
			classes = append(classes, c)
		}
	}
	classes = append(classes, overlay.classes...)

	vars := make(map[string]string, len(base.vars)+len(overlay.vars))
	for k, v := range base.vars {
		vars[k] = v
	}
	for k, v := range overlay.vars {
		vars[k] = v
	}
	return New(classes, vars)
}

// Enrich fills in what base lacks from extra: class groups absent from base
// and variables base does not define. Nothing in base is changed.
func Enrich(base, extra Set) Set {
	baseGroups := make(map[string]struct{}, len(base.classes))
	for _, c := range base.classes {
		baseGroups[ClassGroup(c)] = struct{}{}
	}

	classes := make([]string, 0, len(base.classes)+len(extra.classes))
	classes = append(classes, base.classes...)
	for _, c := range extra.classes {
		if _, have := baseGroups[ClassGroup(c)]; !have {
			classes = append(classes, c)
		}
	}

	vars := make(map[string]string, len(base.vars)+len(extra.vars))
	for k, v := range extra.vars {
		vars[k] = v
	}
	for k, v := range base.vars {
		vars[k] = v
	}
	return New(classes, vars)
}
