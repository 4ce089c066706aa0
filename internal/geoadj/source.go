package geoadj

import (
	"context"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// RentSource supplies median-rent tables for a geography level and year.
// The resolver is agnostic to where the data comes from; production wiring
// uses the ACS API client, tests use fakes.
type RentSource interface {
	FetchRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error)
}

// TableStore is an optional read-through persistence layer beneath the
// in-process cache, so repeated CLI invocations skip the upstream fetch.
// Get returns (nil, nil) on a miss.
type TableStore interface {
	GetRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error)
	PutRentTable(ctx context.Context, geoType model.GeographyType, year int, source string, table model.RentTable) error
}
