package domain

import "strings"

// euCountries is the fixed EU shipping band. GB is deliberately absent (it
// maps to the uk region together with IE), NO/CH/IS/LI ride the EU rates.
var euCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {}, "NO": {},
	"CH": {}, "IS": {}, "LI": {},
}

// RegionOf maps an ISO-3166 alpha-2 country code to its shipping region.
// Exact matches win over the EU set; anything unknown falls back to world.
// The lookup is case-insensitive and never fails.
func RegionOf(countryCode string) RegionKey {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	switch code {
	case "US", "USA":
		return RegionUS
	case "CA":
		return RegionCA
	case "GB", "UK", "IE":
		return RegionUK
	case "AU":
		return RegionAU
	case "NZ":
		return RegionNZ
	case "SG":
		return RegionSG
	case "JP":
		return RegionJP
	case "BR":
		return RegionBR
	}
	if _, ok := euCountries[code]; ok {
		return RegionEU
	}
	return RegionWorld
}

// KindOf resolves the shipping kind for a cart line. An explicit hint (set at
// cart-add time) is used verbatim; otherwise the product name is matched
// case-insensitively against term groups in fixed priority order. Unknown
// names classify as the default kind.
func KindOf(hint ProductKind, name string) ProductKind {
	if hint != "" {
		return hint
	}
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "tee", "t-shirt", "shirt"):
		return KindTee
	case containsAny(lower, "hoodie", "pullover", "sweatshirt"):
		return KindHoodie
	case containsAny(lower, "print", "poster"):
		return KindPrint
	case containsAny(lower, "book"):
		return KindBook
	case containsAny(lower, "tote", "bag"):
		return KindTote
	}
	return KindDefault
}

// euBandCountries is the narrower set used for minimum-charge bands. Unlike
// the rate region above it excludes NO/CH/IS/LI, which ship at EU rates but
// charge the world-band minimum.
var euBandCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// InEUBand reports whether the country belongs to the EU minimum-charge band.
func InEUBand(countryCode string) bool {
	_, ok := euBandCountries[strings.ToUpper(strings.TrimSpace(countryCode))]
	return ok
}

func containsAny(haystack string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
