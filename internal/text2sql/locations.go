package text2sql

import "strings"

// Allow-listed location values. Only values found here may flow into the
// bind list; everything else resolves to an always-false predicate.
var allowedCities = map[string]bool{
	"kuala lumpur":  true,
	"kl":            true,
	"petaling jaya": true,
	"pj":            true,
	"subang jaya":   true,
	"shah alam":     true,
	"putrajaya":     true,
	"cyberjaya":     true,
	"george town":   true,
	"penang":        true,
	"johor bahru":   true,
	"jb":            true,
}

var allowedStates = map[string]bool{
	"selangor":     true,
	"kuala lumpur": true,
	"kl":           true,
	"putrajaya":    true,
	"penang":       true,
	"johor":        true,
}

// cityAliases maps common abbreviations to their canonical city names.
var cityAliases = map[string]string{
	"kl": "Kuala Lumpur",
	"pj": "Petaling Jaya",
	"jb": "Johor Bahru",
}

// CanonicalLocation normalizes a raw location phrase: trim and case-fold,
// resolve aliases, then title-case for display. Resolution is idempotent.
func CanonicalLocation(raw string) string {
	location := strings.ToLower(strings.TrimSpace(raw))

	if canonical, ok := cityAliases[location]; ok {
		return canonical
	}

	return titleCase(location)
}

// isAllowedLocation reports whether a location is in the city or state
// allow-list.
func isAllowedLocation(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return allowedCities[l] || allowedStates[l]
}

// titleCase capitalizes the first letter of each word. The location universe
// is ASCII, so byte-wise capitalization is sufficient.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
