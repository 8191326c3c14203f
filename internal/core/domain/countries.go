package domain

// countryCodes maps legacy country names (Portuguese and English spellings)
// to ISO-3166 alpha-2 codes. Used only when migrating old persisted data;
// live lookups go through the geocoding client.
var countryCodes = map[string]string{
	"Brasil":          "BR",
	"Brazil":          "BR",
	"Argentina":       "AR",
	"Chile":           "CL",
	"Peru":            "PE",
	"Uruguai":         "UY",
	"Uruguay":         "UY",
	"Paraguai":        "PY",
	"Paraguay":        "PY",
	"Bolívia":         "BO",
	"Bolivia":         "BO",
	"Colômbia":        "CO",
	"Colombia":        "CO",
	"Venezuela":       "VE",
	"Equador":         "EC",
	"Ecuador":         "EC",
	"Guiana":          "GY",
	"Guyana":          "GY",
	"Suriname":        "SR",
	"Guiana Francesa": "GF",
	"French Guiana":   "GF",
}

// DefaultCountryCode is assumed when a legacy country name is not in the
// migration table.
const DefaultCountryCode = "BR"

// CountryCodeFor resolves a legacy country name to its alpha-2 code,
// falling back to DefaultCountryCode.
func CountryCodeFor(name string) string {
	if code, ok := countryCodes[name]; ok {
		return code
	}
	return DefaultCountryCode
}
