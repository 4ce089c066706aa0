// Package store persists fetched rent tables so repeated invocations skip
// the upstream data source. Backends: sqlite (default, single file) and
// postgres (shared deployments).
package store

import (
	"context"
	"time"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// FetchRecord describes one upstream rent-table fetch, for audit output.
type FetchRecord struct {
	ID        string    `json:"id"`
	GeoType   string    `json:"geo_type"`
	Year      int       `json:"year"`
	Source    string    `json:"source"`
	RowCount  int       `json:"row_count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store is the persistence interface for rent tables. GetRentTable returns
// (nil, nil) when the table is not cached.
type Store interface {
	GetRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error)
	PutRentTable(ctx context.Context, geoType model.GeographyType, year int, source string, table model.RentTable) error
	ListFetches(ctx context.Context, limit int) ([]FetchRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
