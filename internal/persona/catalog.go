// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package persona

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/vitrine/internal/validation"
)

//go:embed catalog_default.yaml
var defaultCatalogYAML []byte

// ErrPersonaNotFound is returned when a persona ID is not in the catalog.
var ErrPersonaNotFound = errors.New("persona not found")

// Catalog is the static, versioned list of personas. Order is significant:
// it breaks score ties. A Catalog is immutable after construction.
type Catalog struct {
	version  string
	profiles []Profile
	byID     map[string]int
}

type catalogDocument struct {
	Version  string    `koanf:"version"`
	Personas []Profile `koanf:"personas"`
}

// NewCatalog validates profiles and builds a catalog. Every profile must pass
// struct validation and IDs must be unique. An empty profile list is allowed;
// matching then falls back to DefaultProfile.
func NewCatalog(version string, profiles []Profile) (*Catalog, error) {
	c := &Catalog{
		version:  version,
		profiles: make([]Profile, len(profiles)),
		byID:     make(map[string]int, len(profiles)),
	}
	copy(c.profiles, profiles)

	for i := range c.profiles {
		p := &c.profiles[i]
		if verr := validation.ValidateStruct(p); verr != nil {
			return nil, fmt.Errorf("persona %d (%q): %w", i, p.ID, verr)
		}
		if p.ID == DefaultProfileID {
			return nil, fmt.Errorf("persona %d: id %q is reserved", i, p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona %d: duplicate id %q", i, p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// LoadCatalog reads a catalog file. YAML and JSON are both accepted since the
// YAML parser reads JSON documents. An empty path loads the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	k := koanf.New(".")

	if path == "" {
		if err := k.Load(rawbytes.Provider(defaultCatalogYAML), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse built-in catalog: %w", err)
		}
	} else if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}

	var doc catalogDocument
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Version == "" {
		return nil, errors.New("catalog version is required")
	}
	return NewCatalog(doc.Version, doc.Personas)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog("")
	if err != nil {
		panic(fmt.Sprintf("built-in persona catalog is invalid: %v", err))
	}
	return c
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of personas.
func (c *Catalog) Len() int { return len(c.profiles) }

// At returns the persona at position i.
func (c *Catalog) At(i int) Profile { return c.profiles[i] }

// Profiles returns a copy of the personas in catalog order.
func (c *Catalog) Profiles() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Get looks up a persona by ID. The reserved default ID always resolves.
func (c *Catalog) Get(id string) (Profile, bool) {
	if i, ok := c.byID[id]; ok {
		return c.profiles[i], true
	}
	if id == DefaultProfileID {
		return DefaultProfile(), true
	}
	return Profile{}, false
}
