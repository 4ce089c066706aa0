package model

import "fmt"

// GeographyType identifies one of the seven geography levels the engine
// can adjust thresholds for.
type GeographyType string

const (
	GeoNation                GeographyType = "nation"
	GeoState                 GeographyType = "state"
	GeoCounty                GeographyType = "county"
	GeoCongressionalDistrict GeographyType = "congressional_district"
	GeoMetroArea             GeographyType = "metro_area"
	GeoPUMA                  GeographyType = "puma"
	GeoTract                 GeographyType = "tract"
)

// NationID is the only valid geography id at the nation level.
const NationID = "US"

// AllGeographyTypes returns the supported geography levels, broadest first.
func AllGeographyTypes() []GeographyType {
	return []GeographyType{
		GeoNation, GeoState, GeoCounty, GeoCongressionalDistrict,
		GeoMetroArea, GeoPUMA, GeoTract,
	}
}

// Valid reports whether g is one of the seven supported geography levels.
func (g GeographyType) Valid() bool {
	switch g {
	case GeoNation, GeoState, GeoCounty, GeoCongressionalDistrict, GeoMetroArea, GeoPUMA, GeoTract:
		return true
	}
	return false
}

// ParseGeographyType converts a string into a GeographyType, failing with a
// GeographyTypeError for anything outside the closed set. String matching is
// deliberately exact: a typo must fail loudly, never resolve to a neighbor.
func ParseGeographyType(s string) (GeographyType, error) {
	g := GeographyType(s)
	if !g.Valid() {
		return "", &GeographyTypeError{Type: s}
	}
	return g, nil
}

// idDigits maps each FIPS-coded geography level to its id length.
// nation ("US") and unknown levels are handled separately.
var idDigits = map[GeographyType]int{
	GeoState:                 2,  // state FIPS
	GeoCounty:                5,  // state + county FIPS
	GeoCongressionalDistrict: 4,  // state FIPS + district number
	GeoMetroArea:             5,  // CBSA code
	GeoPUMA:                  7,  // state FIPS + PUMA code
	GeoTract:                 11, // state + county + tract
}

// ValidateID checks that id has the correct format for the geography level g.
// It returns an InvalidInputError on malformed ids and a GeographyTypeError
// if g itself is not supported. Format validation happens before any lookup
// so a malformed id never reaches the rent tables.
func (g GeographyType) ValidateID(id string) error {
	if !g.Valid() {
		return &GeographyTypeError{Type: string(g)}
	}

	if g == GeoNation {
		if id != NationID {
			return &InvalidInputError{
				Field:  "geography_id",
				Reason: fmt.Sprintf("nation level requires id %q, got %q", NationID, id),
			}
		}
		return nil
	}

	want := idDigits[g]
	if len(id) != want {
		return &InvalidInputError{
			Field:  "geography_id",
			Reason: fmt.Sprintf("%s id must be %d digits, got %q", g, want, id),
		}
	}
	for _, ch := range id {
		if ch < '0' || ch > '9' {
			return &InvalidInputError{
				Field:  "geography_id",
				Reason: fmt.Sprintf("%s id must be numeric, got %q", g, id),
			}
		}
	}
	return nil
}
