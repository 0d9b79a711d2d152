// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package signals

import "strings"

// Storefront regions.
const (
	RegionNorthAmerica     = "north_america"
	RegionLatinAmerica     = "latin_america"
	RegionEurope           = "europe"
	RegionAsiaPacific      = "asia_pacific"
	RegionMiddleEastAfrica = "middle_east_africa"
	RegionUnknown          = Unknown
)

// Regions lists every resolvable region except RegionUnknown.
var Regions = []string{
	RegionNorthAmerica,
	RegionLatinAmerica,
	RegionEurope,
	RegionAsiaPacific,
	RegionMiddleEastAfrica,
}

var regionAliases = map[string]string{
	"na":           RegionNorthAmerica,
	"northamerica": RegionNorthAmerica,
	"latam":        RegionLatinAmerica,
	"latinamerica": RegionLatinAmerica,
	"southamerica": RegionLatinAmerica,
	"eu":           RegionEurope,
	"emea":         RegionEurope,
	"apac":         RegionAsiaPacific,
	"asiapacific":  RegionAsiaPacific,
	"asia":         RegionAsiaPacific,
	"oceania":      RegionAsiaPacific,
	"mea":          RegionMiddleEastAfrica,
	"middleeast":   RegionMiddleEastAfrica,
	"africa":       RegionMiddleEastAfrica,
}

var countryRegions = map[string]string{
	"US": RegionNorthAmerica, "CA": RegionNorthAmerica,

	"MX": RegionLatinAmerica, "BR": RegionLatinAmerica, "AR": RegionLatinAmerica,
	"CL": RegionLatinAmerica, "CO": RegionLatinAmerica, "PE": RegionLatinAmerica,
	"VE": RegionLatinAmerica, "UY": RegionLatinAmerica, "EC": RegionLatinAmerica,
	"GT": RegionLatinAmerica, "CR": RegionLatinAmerica, "PA": RegionLatinAmerica,
	"DO": RegionLatinAmerica, "PR": RegionLatinAmerica, "BO": RegionLatinAmerica,
	"PY": RegionLatinAmerica, "CU": RegionLatinAmerica,

	"GB": RegionEurope, "IE": RegionEurope, "FR": RegionEurope, "DE": RegionEurope,
	"ES": RegionEurope, "PT": RegionEurope, "IT": RegionEurope, "NL": RegionEurope,
	"BE": RegionEurope, "LU": RegionEurope, "CH": RegionEurope, "AT": RegionEurope,
	"SE": RegionEurope, "NO": RegionEurope, "DK": RegionEurope, "FI": RegionEurope,
	"IS": RegionEurope, "PL": RegionEurope, "CZ": RegionEurope, "SK": RegionEurope,
	"HU": RegionEurope, "RO": RegionEurope, "BG": RegionEurope, "GR": RegionEurope,
	"HR": RegionEurope, "SI": RegionEurope, "RS": RegionEurope, "UA": RegionEurope,
	"EE": RegionEurope, "LV": RegionEurope, "LT": RegionEurope,

	"JP": RegionAsiaPacific, "CN": RegionAsiaPacific, "KR": RegionAsiaPacific,
	"TW": RegionAsiaPacific, "HK": RegionAsiaPacific, "SG": RegionAsiaPacific,
	"IN": RegionAsiaPacific, "ID": RegionAsiaPacific, "MY": RegionAsiaPacific,
	"TH": RegionAsiaPacific, "VN": RegionAsiaPacific, "PH": RegionAsiaPacific,
	"AU": RegionAsiaPacific, "NZ": RegionAsiaPacific, "PK": RegionAsiaPacific,
	"BD": RegionAsiaPacific,

	"AE": RegionMiddleEastAfrica, "SA": RegionMiddleEastAfrica, "QA": RegionMiddleEastAfrica,
	"IL": RegionMiddleEastAfrica, "TR": RegionMiddleEastAfrica, "EG": RegionMiddleEastAfrica,
	"ZA": RegionMiddleEastAfrica, "NG": RegionMiddleEastAfrica, "KE": RegionMiddleEastAfrica,
	"MA": RegionMiddleEastAfrica, "JO": RegionMiddleEastAfrica, "KW": RegionMiddleEastAfrica,
	"IR": RegionMiddleEastAfrica, "GH": RegionMiddleEastAfrica,
}

// Timezones under America/ that belong to Latin America.
var latinAmericaZones = []string{
	"America/Sao_Paulo", "America/Argentina", "America/Buenos_Aires", "America/Mexico_City",
	"America/Bogota", "America/Lima", "America/Santiago", "America/Caracas",
	"America/Montevideo", "America/Guayaquil", "America/Guatemala", "America/Costa_Rica",
	"America/Panama", "America/La_Paz", "America/Asuncion", "America/Havana",
	"America/Santo_Domingo", "America/Puerto_Rico", "America/Monterrey", "America/Tijuana",
}

// Timezones under Asia/ that belong to the Middle East.
var middleEastZones = []string{
	"Asia/Dubai", "Asia/Riyadh", "Asia/Qatar", "Asia/Jerusalem", "Asia/Tel_Aviv",
	"Asia/Tehran", "Asia/Amman", "Asia/Kuwait", "Asia/Baghdad", "Asia/Beirut",
	"Asia/Muscat", "Asia/Bahrain",
}

// ResolveRegion picks the storefront region from, in order, an explicit
// region value, the locale's country subtag, and the IANA timezone prefix.
func ResolveRegion(explicit, locale, timezone string) string {
	if r := canonicalRegion(explicit); r != "" {
		return r
	}
	if i := strings.LastIndexByte(locale, '-'); i >= 0 {
		if r, ok := countryRegions[locale[i+1:]]; ok {
			return r
		}
	}
	if r := timezoneRegion(timezone); r != "" {
		return r
	}
	return RegionUnknown
}

func canonicalRegion(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}
	for _, r := range Regions {
		if v == r {
			return r
		}
	}
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(v)
	if r, ok := regionAliases[key]; ok {
		return r
	}
	if r, ok := countryRegions[strings.ToUpper(v)]; ok {
		return r
	}
	return ""
}

func timezoneRegion(tz string) string {
	switch {
	case strings.HasPrefix(tz, "America/"):
		if hasAnyPrefix(tz, latinAmericaZones) {
			return RegionLatinAmerica
		}
		return RegionNorthAmerica
	case strings.HasPrefix(tz, "Europe/"):
		return RegionEurope
	case strings.HasPrefix(tz, "Asia/"):
		if hasAnyPrefix(tz, middleEastZones) {
			return RegionMiddleEastAfrica
		}
		return RegionAsiaPacific
	case strings.HasPrefix(tz, "Australia/"), strings.HasPrefix(tz, "Pacific/"):
		return RegionAsiaPacific
	case strings.HasPrefix(tz, "Africa/"):
		return RegionMiddleEastAfrica
	}
	return ""
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
