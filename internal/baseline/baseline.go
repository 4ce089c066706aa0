// Package baseline resolves base SPM thresholds by year and tenure. Years
// covered by the BLS-published table read directly from it; later years are
// projected forward with a compounded inflation rate and flagged as
// forecasts.
package baseline

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

//go:embed published.yaml
var publishedYAML []byte

// DefaultProjectionRate is the annual CPI projection applied to forecast
// years, compounded from the latest published year.
const DefaultProjectionRate = 0.02

// Options configures a Resolver.
type Options struct {
	// ProjectionRate overrides DefaultProjectionRate when > 0.
	ProjectionRate float64
	// Published overrides the embedded table, e.g. when refreshed from a
	// BLS workbook. Keys are years; each year must cover all three tenures.
	Published map[int]map[model.Tenure]float64
}

// Resolver resolves base thresholds from the published table, projecting
// forward for years beyond it.
type Resolver struct {
	published map[int]map[model.Tenure]float64
	earliest  int
	latest    int
	rate      float64
}

type publishedFile struct {
	Thresholds map[int]map[string]float64 `yaml:"thresholds"`
}

// New creates a Resolver from the embedded published table, or from
// opts.Published when supplied.
func New(opts Options) (*Resolver, error) {
	table := opts.Published
	if table == nil {
		var pf publishedFile
		if err := yaml.Unmarshal(publishedYAML, &pf); err != nil {
			return nil, eris.Wrap(err, "baseline: parse published table")
		}
		table = make(map[int]map[model.Tenure]float64, len(pf.Thresholds))
		for year, byTenure := range pf.Thresholds {
			table[year] = make(map[model.Tenure]float64, len(byTenure))
			for key, amount := range byTenure {
				tenure, err := model.ParseTenure(key)
				if err != nil {
					return nil, eris.Wrapf(err, "baseline: published table year %d", year)
				}
				table[year][tenure] = amount
			}
		}
	}
	if len(table) == 0 {
		return nil, eris.New("baseline: published table is empty")
	}

	earliest, latest := 0, 0
	for year, byTenure := range table {
		for _, tenure := range model.AllTenures() {
			if _, ok := byTenure[tenure]; !ok {
				return nil, eris.Errorf("baseline: published table year %d missing tenure %s", year, tenure)
			}
		}
		if earliest == 0 || year < earliest {
			earliest = year
		}
		if year > latest {
			latest = year
		}
	}

	rate := opts.ProjectionRate
	if rate <= 0 {
		rate = DefaultProjectionRate
	}

	return &Resolver{published: table, earliest: earliest, latest: latest, rate: rate}, nil
}

// LatestPublishedYear returns the most recent year in the published table.
func (r *Resolver) LatestPublishedYear() int { return r.latest }

// EarliestYear returns the first year with published data. Requests before
// it fail with a DataUnavailableError.
func (r *Resolver) EarliestYear() int { return r.earliest }

// BaseThreshold resolves the base threshold for one year and tenure.
// Published years return exact BLS values; later years compound the
// projection rate from the latest published value and carry the forecast
// tag. Forecast resolution never fails on missing future data.
func (r *Resolver) BaseThreshold(year int, tenure model.Tenure) (model.BaseThreshold, error) {
	if !tenure.Valid() {
		return model.BaseThreshold{}, &model.UnknownTenureError{Tenure: string(tenure)}
	}
	if year < r.earliest {
		return model.BaseThreshold{}, &model.DataUnavailableError{
			Year:   year,
			Reason: fmt.Sprintf("earliest published year is %d", r.earliest),
		}
	}

	if year <= r.latest {
		amount, ok := r.published[year][tenure]
		if !ok {
			// Gap year inside the published range; nothing to derive from.
			return model.BaseThreshold{}, &model.DataUnavailableError{Year: year, Reason: "year not in published table"}
		}
		return model.BaseThreshold{
			Year:   year,
			Tenure: tenure,
			Amount: amount,
			Source: model.SourcePublished,
		}, nil
	}

	latest := r.published[r.latest][tenure]
	amount := latest * math.Pow(1+r.rate, float64(year-r.latest))

	zap.L().Debug("baseline: forecast threshold",
		zap.Int("year", year),
		zap.String("tenure", string(tenure)),
		zap.Int("from_year", r.latest),
		zap.Float64("rate", r.rate),
		zap.Float64("amount", amount),
	)

	return model.BaseThreshold{
		Year:   year,
		Tenure: tenure,
		Amount: amount,
		Source: model.SourceForecast,
		Rate:   r.rate,
	}, nil
}

// BaseThresholds resolves all three tenures for one year.
func (r *Resolver) BaseThresholds(year int) (map[model.Tenure]model.BaseThreshold, error) {
	out := make(map[model.Tenure]model.BaseThreshold, 3)
	for _, tenure := range model.AllTenures() {
		bt, err := r.BaseThreshold(year, tenure)
		if err != nil {
			return nil, err
		}
		out[tenure] = bt
	}
	return out, nil
}
