// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package features

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is the feature schema version. Bump it whenever the order, count,
// or scaling of any feature changes; trained models are bound to it.
const Version = 3

// Group identifies a block of related features.
type Group uint8

// Feature groups in vector order.
const (
	GroupTemporal Group = 1 << iota
	GroupDevice
	GroupViewport
	GroupHistorical
	GroupEnvironment
	GroupSocial
	GroupComposite
)

// CoreGroups are always part of the vector.
const CoreGroups = GroupTemporal | GroupDevice | GroupViewport | GroupHistorical

// AllGroups enables every group.
const AllGroups = CoreGroups | GroupEnvironment | GroupSocial | GroupComposite

var groupOrder = []Group{
	GroupTemporal,
	GroupDevice,
	GroupViewport,
	GroupHistorical,
	GroupEnvironment,
	GroupSocial,
	GroupComposite,
}

var groupNames = map[Group]string{
	GroupTemporal:    "temporal",
	GroupDevice:      "device",
	GroupViewport:    "viewport",
	GroupHistorical:  "historical",
	GroupEnvironment: "environment",
	GroupSocial:      "social",
	GroupComposite:   "composite",
}

// String returns the group name.
func (g Group) String() string {
	if n, ok := groupNames[g]; ok {
		return n
	}
	return "group(" + strconv.Itoa(int(g)) + ")"
}

// ParseGroups converts group names into a set. Core groups are always included.
func ParseGroups(names []string) (Group, error) {
	set := CoreGroups
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		found := false
		for g, n := range groupNames {
			if n == name {
				set |= g
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown feature group %q", name)
		}
	}
	return set, nil
}

// Layout describes the ordered feature positions produced for a group set.
type Layout struct {
	Version int
	Groups  Group
	names   []string
	index   map[string]int
}

func newLayout(groups Group, defs []feature) Layout {
	l := Layout{
		Version: Version,
		Groups:  groups,
		names:   make([]string, len(defs)),
		index:   make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		l.names[i] = d.name
		l.index[d.name] = i
	}
	return l
}

// Len returns the number of positions in the vector.
func (l Layout) Len() int { return len(l.names) }

// Names returns the feature names in vector order.
func (l Layout) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Index returns the position of a named feature.
func (l Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Signature identifies the layout, e.g. "v3:temporal+device+viewport+historical".
// Vectors and model artifacts carry it so mismatches can be rejected.
func (l Layout) Signature() string {
	parts := make([]string, 0, len(groupOrder))
	for _, g := range groupOrder {
		if l.Groups&g != 0 {
			parts = append(parts, g.String())
		}
	}
	return "v" + strconv.Itoa(l.Version) + ":" + strings.Join(parts, "+")
}
