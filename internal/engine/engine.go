// Package engine composes the base-threshold, equivalence-scale, and
// geographic-adjustment resolvers into the public threshold calculation.
package engine

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/PolicyEngine/spm-calculator/internal/baseline"
	"github.com/PolicyEngine/spm-calculator/internal/geoadj"
	"github.com/PolicyEngine/spm-calculator/internal/model"
	"github.com/PolicyEngine/spm-calculator/internal/scale"
)

// Engine owns the public threshold-calculation contract:
// threshold = base × equivalence scale × GEOADJ.
type Engine struct {
	baseline *baseline.Resolver
	geo      *geoadj.Resolver
}

// New creates an Engine over the two stateful resolvers.
func New(base *baseline.Resolver, geo *geoadj.Resolver) *Engine {
	return &Engine{baseline: base, geo: geo}
}

// CalcInput identifies one household and geography.
type CalcInput struct {
	Adults        int
	Children      int
	Tenure        model.Tenure
	GeographyType model.GeographyType
	GeographyID   string
	Year          int
}

// validate rejects bad input before any lookup happens.
func (in CalcInput) validate() error {
	if in.Adults < 0 {
		return &model.InvalidInputError{Field: "adults", Reason: fmt.Sprintf("must be non-negative, got %d", in.Adults)}
	}
	if in.Children < 0 {
		return &model.InvalidInputError{Field: "children", Reason: fmt.Sprintf("must be non-negative, got %d", in.Children)}
	}
	if !in.Tenure.Valid() {
		return &model.UnknownTenureError{Tenure: string(in.Tenure)}
	}
	if !in.GeographyType.Valid() {
		return &model.GeographyTypeError{Type: string(in.GeographyType)}
	}
	return in.GeographyType.ValidateID(in.GeographyID)
}

// Calculate computes the SPM threshold for one household. The only side
// effect is rent-table cache population inside the geoadj resolver.
func (e *Engine) Calculate(ctx context.Context, in CalcInput) (model.Threshold, error) {
	if err := in.validate(); err != nil {
		return model.Threshold{}, err
	}

	base, err := e.baseline.BaseThreshold(in.Year, in.Tenure)
	if err != nil {
		return model.Threshold{}, err
	}

	sc, err := scale.Scale(in.Adults, in.Children)
	if err != nil {
		return model.Threshold{}, err
	}

	adj, err := e.geo.GeoAdj(ctx, in.GeographyType, in.GeographyID, in.Year)
	if err != nil {
		return model.Threshold{}, err
	}

	return model.Threshold{
		Amount:        base.Amount * sc * adj,
		Base:          base,
		Scale:         sc,
		GeoAdj:        adj,
		Year:          in.Year,
		Tenure:        in.Tenure,
		GeographyType: in.GeographyType,
		GeographyID:   in.GeographyID,
		Forecast:      base.Forecast(),
	}, nil
}

// BatchInput holds sequence-typed calculation arguments. Each field must
// have length 1 (broadcast) or the common batch length.
type BatchInput struct {
	Adults         []int
	Children       []int
	Tenures        []model.Tenure
	GeographyTypes []model.GeographyType
	GeographyIDs   []string
	Years          []int
}

// length validates field lengths and returns the common batch length.
// Each field is either a scalar (length 1) or a sequence of the common
// length; mixing two different sequence lengths is rejected.
func (b BatchInput) length() (int, error) {
	n := 1
	check := func(name string, l int) error {
		if l == 0 {
			return &model.InvalidInputError{Field: name, Reason: "missing"}
		}
		if l == 1 {
			return nil
		}
		if n == 1 {
			n = l
			return nil
		}
		if l != n {
			return &model.InvalidInputError{
				Field:  name,
				Reason: fmt.Sprintf("length %d does not match batch length %d", l, n),
			}
		}
		return nil
	}

	for _, f := range []struct {
		name string
		l    int
	}{
		{"adults", len(b.Adults)},
		{"children", len(b.Children)},
		{"tenure", len(b.Tenures)},
		{"geography_type", len(b.GeographyTypes)},
		{"geography_id", len(b.GeographyIDs)},
		{"year", len(b.Years)},
	} {
		if err := check(f.name, f.l); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// at returns the i-th element of a field, broadcasting length-1 slices.
func at[T any](s []T, i int) T {
	if len(s) == 1 {
		return s[0]
	}
	return s[i]
}

// CalculateAll is the vectorized counterpart of Calculate. It is a
// deterministic, ordered, element-wise map over the scalar path, so results
// are bit-identical to calling Calculate per element. No parallelism: exact
// reproducibility is worth more than throughput here.
func (e *Engine) CalculateAll(ctx context.Context, in BatchInput) ([]model.Threshold, error) {
	n, err := in.length()
	if err != nil {
		return nil, err
	}

	out := make([]model.Threshold, n)
	for i := 0; i < n; i++ {
		t, err := e.Calculate(ctx, CalcInput{
			Adults:        at(in.Adults, i),
			Children:      at(in.Children, i),
			Tenure:        at(in.Tenures, i),
			GeographyType: at(in.GeographyTypes, i),
			GeographyID:   at(in.GeographyIDs, i),
			Year:          at(in.Years, i),
		})
		if err != nil {
			return nil, eris.Wrapf(err, "engine: batch element %d", i)
		}
		out[i] = t
	}
	return out, nil
}

// BaseThresholds exposes the all-tenure base table for the given year.
func (e *Engine) BaseThresholds(year int) (map[model.Tenure]model.BaseThreshold, error) {
	return e.baseline.BaseThresholds(year)
}

// GeoAdj exposes the geographic adjustment for one geography.
func (e *Engine) GeoAdj(ctx context.Context, geoType model.GeographyType, geoID string, year int) (float64, error) {
	return e.geo.GeoAdj(ctx, geoType, geoID, year)
}

// SupportedGeographies returns the geography levels the engine can resolve.
func (e *Engine) SupportedGeographies() []model.GeographyType {
	return model.AllGeographyTypes()
}
