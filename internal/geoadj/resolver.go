// Package geoadj derives the SPM geographic adjustment factor (GEOADJ) from
// median-rent ratios. Only the housing share of the threshold is adjusted
// for local costs; the non-housing share is carried at the national level.
package geoadj

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// HousingShare is the housing share of the SPM threshold for renters, fixed
// by methodology. The remaining 0.508 is never geographically adjusted.
const HousingShare = 0.492

// DefaultMaxTables bounds the in-process cache. Seven levels across a
// handful of survey vintages fit comfortably.
const DefaultMaxTables = 16

// Compute applies the GEOADJ formula to a local/national median-rent pair.
func Compute(localRent, nationalRent float64) (float64, error) {
	if nationalRent <= 0 {
		return 0, eris.Errorf("geoadj: national median rent must be positive, got %v", nationalRent)
	}
	if localRent < 0 {
		return 0, eris.Errorf("geoadj: local median rent must be non-negative, got %v", localRent)
	}
	return (localRent/nationalRent)*HousingShare + (1 - HousingShare), nil
}

// Options configures a Resolver.
type Options struct {
	// MaxTables bounds the in-process cache; DefaultMaxTables when <= 0.
	MaxTables int
	// Store is an optional read-through persistence layer. Fetched tables
	// are written back best-effort.
	Store TableStore
}

// Resolver converts (geography level, id, year) into a GEOADJ multiplier,
// backed by a memoizing cache over externally supplied rent tables.
type Resolver struct {
	source RentSource
	store  TableStore
	cache  *tableCache
}

// New creates a Resolver over the given rent source.
func New(source RentSource, opts Options) *Resolver {
	maxTables := opts.MaxTables
	if maxTables <= 0 {
		maxTables = DefaultMaxTables
	}
	return &Resolver{
		source: source,
		store:  opts.Store,
		cache:  newTableCache(maxTables),
	}
}

// GeoAdj resolves the geographic adjustment for one geography. The nation
// level short-circuits to exactly 1.0 by construction; every other level
// resolves through the cached rent table and fails loudly when the id is
// absent. There is no silent fallback to 1.0.
func (r *Resolver) GeoAdj(ctx context.Context, geoType model.GeographyType, geoID string, year int) (float64, error) {
	if !geoType.Valid() {
		return 0, &model.GeographyTypeError{Type: string(geoType)}
	}
	if err := geoType.ValidateID(geoID); err != nil {
		return 0, err
	}

	if geoType == model.GeoNation {
		return 1.0, nil
	}

	table, err := r.loadTable(ctx, geoType, year)
	if err != nil {
		return 0, err
	}

	pair, ok := table[geoID]
	if !ok {
		return 0, &model.GeographyNotFoundError{Type: geoType, ID: geoID, Year: year}
	}

	adj, err := Compute(pair.Local, pair.National)
	if err != nil {
		return 0, eris.Wrapf(err, "geoadj: %s %s year %d", geoType, geoID, year)
	}
	return adj, nil
}

// Table builds the full adjustment table for one geography level in a
// single pass, sorted by id. Intended for exploratory and comparison use,
// not per-household lookups.
func (r *Resolver) Table(ctx context.Context, geoType model.GeographyType, year int) ([]model.GeoAdjEntry, error) {
	if !geoType.Valid() {
		return nil, &model.GeographyTypeError{Type: string(geoType)}
	}
	if geoType == model.GeoNation {
		return []model.GeoAdjEntry{{ID: model.NationID, GeoAdj: 1.0}}, nil
	}

	table, err := r.loadTable(ctx, geoType, year)
	if err != nil {
		return nil, err
	}

	entries := make([]model.GeoAdjEntry, 0, len(table))
	for id, pair := range table {
		adj, err := Compute(pair.Local, pair.National)
		if err != nil {
			return nil, eris.Wrapf(err, "geoadj: %s %s year %d", geoType, id, year)
		}
		entries = append(entries, model.GeoAdjEntry{
			ID:           id,
			LocalRent:    pair.Local,
			NationalRent: pair.National,
			GeoAdj:       adj,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Warm populates the cache for one (level, year) pair without resolving any
// particular geography.
func (r *Resolver) Warm(ctx context.Context, geoType model.GeographyType, year int) (int, error) {
	if !geoType.Valid() {
		return 0, &model.GeographyTypeError{Type: string(geoType)}
	}
	if geoType == model.GeoNation {
		return 0, nil
	}
	table, err := r.loadTable(ctx, geoType, year)
	if err != nil {
		return 0, err
	}
	return len(table), nil
}

// ClearCache purges all cached tables, forcing a reload on next access.
func (r *Resolver) ClearCache() {
	r.cache.clear()
}

// CacheStats returns cache performance counters.
func (r *Resolver) CacheStats() CacheStats {
	return r.cache.stats()
}

// loadTable resolves the rent table for (geoType, year): in-process cache,
// then the optional persistent store, then the upstream source. Fetches for
// the same key are deterministic, so concurrent population needs no lock
// beyond the cache's own; the last writer wins.
func (r *Resolver) loadTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error) {
	if table := r.cache.get(geoType, year); table != nil {
		return table, nil
	}

	if r.store != nil {
		table, err := r.store.GetRentTable(ctx, geoType, year)
		if err != nil {
			zap.L().Warn("geoadj: store read failed, falling through to source",
				zap.String("geo_type", string(geoType)),
				zap.Int("year", year),
				zap.Error(err),
			)
		} else if table != nil {
			r.cache.put(geoType, year, table)
			return table, nil
		}
	}

	table, err := r.source.FetchRentTable(ctx, geoType, year)
	if err != nil {
		return nil, eris.Wrapf(err, "geoadj: fetch rent table %s %d", geoType, year)
	}
	if len(table) == 0 {
		return nil, eris.Errorf("geoadj: empty rent table for %s %d", geoType, year)
	}

	r.cache.put(geoType, year, table)

	if r.store != nil {
		if err := r.store.PutRentTable(ctx, geoType, year, "source", table); err != nil {
			zap.L().Warn("geoadj: store write failed",
				zap.String("geo_type", string(geoType)),
				zap.Int("year", year),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("geoadj: rent table loaded",
		zap.String("geo_type", string(geoType)),
		zap.Int("year", year),
		zap.Int("rows", len(table)),
	)
	return table, nil
}
