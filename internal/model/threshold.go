package model

// ThresholdSource distinguishes authoritative published base thresholds from
// inflation-projected forecasts. Callers branch on this tag to decide whether
// to display a forecast indicator.
type ThresholdSource string

const (
	SourcePublished ThresholdSource = "published"
	SourceForecast  ThresholdSource = "forecast"
)

// BaseThreshold is the national, reference-family, tenure-specific dollar
// figure before family-size and geographic adjustment.
type BaseThreshold struct {
	Year   int             `json:"year"`
	Tenure Tenure          `json:"tenure"`
	Amount float64         `json:"amount"`
	Source ThresholdSource `json:"source"`
	// Rate is the annual projection rate applied from the latest published
	// year. Zero for published values.
	Rate float64 `json:"rate,omitempty"`
}

// Forecast reports whether the value is a projection rather than a
// BLS-published figure.
func (b BaseThreshold) Forecast() bool {
	return b.Source == SourceForecast
}

// RentPair holds the local and national median gross rent for one geography.
type RentPair struct {
	Local    float64 `json:"local"`
	National float64 `json:"national"`
}

// RentTable maps geography id to median-rent data for one (level, year)
// pair. Tables are immutable once loaded; a refresh replaces the whole table.
type RentTable map[string]RentPair

// Threshold is the final SPM threshold for one household, with the three
// components it was computed from.
type Threshold struct {
	Amount        float64       `json:"amount"`
	Base          BaseThreshold `json:"base"`
	Scale         float64       `json:"scale"`
	GeoAdj        float64       `json:"geoadj"`
	Year          int           `json:"year"`
	Tenure        Tenure        `json:"tenure"`
	GeographyType GeographyType `json:"geography_type"`
	GeographyID   string        `json:"geography_id"`
	// Forecast mirrors Base.Forecast so batch consumers see the flag
	// without digging into the component breakdown.
	Forecast bool `json:"forecast"`
}

// GeoAdjEntry is one row of a bulk geographic-adjustment table.
type GeoAdjEntry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	LocalRent    float64 `json:"local_rent"`
	NationalRent float64 `json:"national_rent"`
	GeoAdj       float64 `json:"geoadj"`
}
