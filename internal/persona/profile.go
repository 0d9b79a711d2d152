// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package persona

// Account types.
const (
	AccountIndividual = "individual"
	AccountBusiness   = "business"
)

// Preference values.
const (
	SchemeLight = "light"
	SchemeDark  = "dark"
	SchemeAuto  = "auto"

	DensityCompact     = "compact"
	DensityComfortable = "comfortable"
	DensitySpacious    = "spacious"

	TypographySans  = "sans"
	TypographySerif = "serif"
	TypographyMono  = "mono"

	AnimationNone    = "none"
	AnimationReduced = "reduced"
	AnimationFull    = "full"

	LayoutList  = "list"
	LayoutGrid  = "grid"
	LayoutCards = "cards"
)

// Preferences is the visual preference block of a profile.
type Preferences struct {
	ColorScheme string `json:"color_scheme" koanf:"color_scheme" validate:"required,oneof=light dark auto"`
	AccentColor string `json:"accent_color,omitempty" koanf:"accent_color" validate:"omitempty,hexcolor"`
	Density     string `json:"density" koanf:"density" validate:"required,oneof=compact comfortable spacious"`
	Typography  string `json:"typography" koanf:"typography" validate:"required,oneof=sans serif mono"`
	Animation   string `json:"animation" koanf:"animation" validate:"required,oneof=none reduced full"`
	Layout      string `json:"layout" koanf:"layout" validate:"required,oneof=list grid cards"`
}

// Profile is one catalog persona: a simulated customer standing in for real
// account data.
type Profile struct {
	ID          string      `json:"id" koanf:"id" validate:"required,max=64"`
	Name        string      `json:"name" koanf:"name" validate:"required,max=128"`
	AccountType string      `json:"account_type" koanf:"account_type" validate:"required,oneof=individual business"`
	Age         int         `json:"age" koanf:"age" validate:"gte=18,lte=100"`
	Region      string      `json:"region" koanf:"region" validate:"required,oneof=north_america latin_america europe asia_pacific middle_east_africa"`
	FleetSize   int         `json:"fleet_size" koanf:"fleet_size" validate:"gte=0"`
	BudgetTier  string      `json:"budget_tier" koanf:"budget_tier" validate:"required,oneof=low medium high enterprise"`
	Preferences Preferences `json:"preferences" koanf:"preferences"`
}

// IsBusiness reports whether the persona represents a business account.
func (p *Profile) IsBusiness() bool {
	return p.AccountType == AccountBusiness
}

// DefaultProfileID identifies the built-in persona used when the catalog is empty.
const DefaultProfileID = "default"

// DefaultProfile returns the built-in neutral persona.
func DefaultProfile() Profile {
	return Profile{
		ID:          DefaultProfileID,
		Name:        "Default Shopper",
		AccountType: AccountIndividual,
		Age:         40,
		Region:      "north_america",
		BudgetTier:  "medium",
		Preferences: Preferences{
			ColorScheme: SchemeAuto,
			Density:     DensityComfortable,
			Typography:  TypographySans,
			Animation:   AnimationReduced,
			Layout:      LayoutGrid,
		},
	}
}
