// Package text2sql converts natural-language outlet questions into safe,
// parameterized SQL over the outlets table.
//
// Translation is driven by a fixed, priority-ordered table of recognizer
// rules; the first matching rule wins. User-derived text never reaches the
// SQL template itself: extracted locations must pass an allow-list before
// they are handed over as bind values, and anything that fails validation
// degrades to a query matching zero rows. Input that matches no rule at all
// resolves to the full listing rather than an error.
package text2sql

import (
	"regexp"
	"strings"
)

// QueryType tags a translation with the recognized question category.
type QueryType string

const (
	QueryTypeLocation          QueryType = "location"
	QueryTypeDriveThru         QueryType = "drive_thru"
	QueryTypeWifi              QueryType = "wifi"
	QueryTypeLocationDriveThru QueryType = "location_drive_thru"
	QueryTypeLocationWifi      QueryType = "location_wifi"
	QueryTypeOperatingHours    QueryType = "operating_hours"
	QueryTypeCount             QueryType = "count"
	QueryTypeAll               QueryType = "all"
)

// Translation is the result of translating one utterance. SQL carries only
// placeholders; every user-derived value travels through Binds.
type Translation struct {
	SQL        string        `json:"sql"`
	Binds      []interface{} `json:"binds"`
	QueryType  QueryType     `json:"query_type"`
	Location   string        `json:"location,omitempty"`
	OutletName string        `json:"outlet_name,omitempty"`
	Valid      bool          `json:"valid"`
}

// Query templates. The row templates select * and leave the column order to
// the executor.
const (
	sqlByLocation        = "SELECT * FROM outlets WHERE LOWER(city) = LOWER(?) OR LOWER(state) = LOWER(?) ORDER BY outlet_name"
	sqlLocationDriveThru = "SELECT * FROM outlets WHERE (LOWER(city) = LOWER(?) OR LOWER(state) = LOWER(?)) AND has_drive_thru = TRUE ORDER BY outlet_name"
	sqlLocationWifi      = "SELECT * FROM outlets WHERE (LOWER(city) = LOWER(?) OR LOWER(state) = LOWER(?)) AND has_wifi = TRUE ORDER BY outlet_name"
	sqlDriveThru         = "SELECT * FROM outlets WHERE has_drive_thru = TRUE ORDER BY city, outlet_name"
	sqlWifi              = "SELECT * FROM outlets WHERE has_wifi = TRUE ORDER BY city, outlet_name"
	sqlOperatingHours    = "SELECT * FROM outlets WHERE LOWER(outlet_name) LIKE LOWER(?) OR LOWER(address) LIKE LOWER(?) ORDER BY outlet_name LIMIT 5"
	sqlCountByLocation   = "SELECT COUNT(*) as count FROM outlets WHERE LOWER(city) = LOWER(?) OR LOWER(state) = LOWER(?)"
	sqlAllOutlets        = "SELECT * FROM outlets ORDER BY state, city, outlet_name"
	sqlNoRows            = "SELECT * FROM outlets WHERE 1=0"
	sqlZeroCount         = "SELECT 0 as count"
)

// rule pairs a recognizer pattern with the builder that turns its match into
// a Translation.
type rule struct {
	pattern *regexp.Regexp
	build   func(matches []string) Translation
}

// Translator converts outlet questions into parameterized SQL. It holds no
// mutable state and is safe for concurrent use.
type Translator struct {
	rules []rule
}

// NewTranslator creates a translator with the fixed recognizer rule set.
func NewTranslator() *Translator {
	t := &Translator{}

	t.rules = []rule{
		// Combined rules come before the plain location rules so a less
		// specific pattern cannot shadow the more specific match.
		{regexp.MustCompile(`outlets?\s+in\s+([a-z0-9\s'\-;]+?)\s+with\s+drive[\s-]?thro?u?gh?`), t.locationWithDriveThru},
		{regexp.MustCompile(`outlets?\s+in\s+([a-z0-9\s'\-;]+?)\s+(?:that\s+)?(?:have|has)\s+wifi`), t.locationWithWifi},

		// Location rules. The character class is deliberately wide so that
		// invalid input is captured and rejected by the allow-list instead
		// of silently falling through.
		{regexp.MustCompile(`outlets?\s+in\s+([a-z0-9\s'\-;]+?)\s*$`), t.byLocation},
		{regexp.MustCompile(`(?:find|show|list|get)\s+(?:me\s+)?(?:all\s+)?outlets?\s+in\s+([a-z0-9\s'\-;]+)`), t.byLocation},
		{regexp.MustCompile(`where\s+(?:are|is)\s+(?:the\s+)?outlets?\s+in\s+([a-z0-9\s'\-;]+)`), t.byLocation},

		// Amenity rules
		{regexp.MustCompile(`(?:which|what)\s+outlets?\s+(?:have|has)\s+drive[\s-]?thro?u?gh?`), t.withDriveThru},
		{regexp.MustCompile(`outlets?\s+with\s+drive[\s-]?thro?u?gh?`), t.withDriveThru},
		{regexp.MustCompile(`drive[\s-]?thro?u?gh?\s+outlets?`), t.withDriveThru},
		{regexp.MustCompile(`(?:which|what)\s+outlets?\s+(?:have|has)\s+wifi`), t.withWifi},
		{regexp.MustCompile(`outlets?\s+with\s+wifi`), t.withWifi},
		{regexp.MustCompile(`outlets?\s+(?:that\s+)?(?:have|has)\s+wifi`), t.withWifi},
		{regexp.MustCompile(`wifi\s+outlets?`), t.withWifi},

		// Operating hours
		{regexp.MustCompile(`(?:opening|operating)\s+hours?\s+(?:for|of)\s+(.+?)(?:\s+outlet)?$`), t.operatingHours},
		{regexp.MustCompile(`when\s+(?:does|is)\s+(.+?)\s+(?:outlet\s+)?open`), t.operatingHours},

		// Counts
		{regexp.MustCompile(`how\s+many\s+outlets?\s+(?:are\s+)?(?:there\s+)?in\s+([a-z\s]+)`), t.countByLocation},
		{regexp.MustCompile(`count\s+outlets?\s+in\s+([a-z\s]+)`), t.countByLocation},

		// Full listing
		{regexp.MustCompile(`^(?:show|list|get)\s+(?:me\s+)?(?:all\s+)?outlets?$`), t.allOutlets},
		{regexp.MustCompile(`^all\s+outlets?$`), t.allOutlets},
	}

	return t
}

// Translate converts an utterance into a parameterized query. It never
// fails: input matching no rule resolves to the full listing.
func (t *Translator) Translate(utterance string) Translation {
	query := strings.ToLower(strings.TrimSpace(utterance))

	for _, r := range t.rules {
		if m := r.pattern.FindStringSubmatch(query); m != nil {
			return r.build(m)
		}
	}

	return t.allOutlets(nil)
}

func (t *Translator) byLocation(matches []string) Translation {
	location := CanonicalLocation(matches[1])

	if !isAllowedLocation(location) {
		return Translation{
			SQL:       sqlNoRows,
			Binds:     []interface{}{},
			QueryType: QueryTypeLocation,
			Location:  location,
			Valid:     false,
		}
	}

	return Translation{
		SQL:       sqlByLocation,
		Binds:     []interface{}{location, location},
		QueryType: QueryTypeLocation,
		Location:  location,
		Valid:     true,
	}
}

func (t *Translator) locationWithDriveThru(matches []string) Translation {
	location := CanonicalLocation(matches[1])

	if !isAllowedLocation(location) {
		return Translation{
			SQL:       sqlNoRows,
			Binds:     []interface{}{},
			QueryType: QueryTypeLocationDriveThru,
			Location:  location,
			Valid:     false,
		}
	}

	return Translation{
		SQL:       sqlLocationDriveThru,
		Binds:     []interface{}{location, location},
		QueryType: QueryTypeLocationDriveThru,
		Location:  location,
		Valid:     true,
	}
}

func (t *Translator) locationWithWifi(matches []string) Translation {
	location := CanonicalLocation(matches[1])

	if !isAllowedLocation(location) {
		return Translation{
			SQL:       sqlNoRows,
			Binds:     []interface{}{},
			QueryType: QueryTypeLocationWifi,
			Location:  location,
			Valid:     false,
		}
	}

	return Translation{
		SQL:       sqlLocationWifi,
		Binds:     []interface{}{location, location},
		QueryType: QueryTypeLocationWifi,
		Location:  location,
		Valid:     true,
	}
}

func (t *Translator) withDriveThru(matches []string) Translation {
	return Translation{
		SQL:       sqlDriveThru,
		Binds:     []interface{}{},
		QueryType: QueryTypeDriveThru,
		Valid:     true,
	}
}

func (t *Translator) withWifi(matches []string) Translation {
	return Translation{
		SQL:       sqlWifi,
		Binds:     []interface{}{},
		QueryType: QueryTypeWifi,
		Valid:     true,
	}
}

func (t *Translator) operatingHours(matches []string) Translation {
	outletName := strings.TrimSpace(matches[1])
	pattern := "%" + outletName + "%"

	return Translation{
		SQL:        sqlOperatingHours,
		Binds:      []interface{}{pattern, pattern},
		QueryType:  QueryTypeOperatingHours,
		OutletName: outletName,
		Valid:      true,
	}
}

func (t *Translator) countByLocation(matches []string) Translation {
	location := CanonicalLocation(matches[1])

	if !isAllowedLocation(location) {
		return Translation{
			SQL:       sqlZeroCount,
			Binds:     []interface{}{},
			QueryType: QueryTypeCount,
			Location:  location,
			Valid:     false,
		}
	}

	return Translation{
		SQL:       sqlCountByLocation,
		Binds:     []interface{}{location, location},
		QueryType: QueryTypeCount,
		Location:  location,
		Valid:     true,
	}
}

func (t *Translator) allOutlets(matches []string) Translation {
	return Translation{
		SQL:       sqlAllOutlets,
		Binds:     []interface{}{},
		QueryType: QueryTypeAll,
		Valid:     true,
	}
}
