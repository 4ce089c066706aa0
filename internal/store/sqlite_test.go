package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_GetMissingTableReturnsNil(t *testing.T) {
	s := newTestSQLite(t)

	table, err := s.GetRentTable(context.Background(), model.GeoState, 2024)
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestSQLite_PutGetRoundtrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	in := model.RentTable{
		"06": {Local: 1800, National: 1500},
		"28": {Local: 900, National: 1500},
	}
	require.NoError(t, s.PutRentTable(ctx, model.GeoState, 2024, "acs", in))

	got, err := s.GetRentTable(ctx, model.GeoState, 2024)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// Other keys remain empty.
	other, err := s.GetRentTable(ctx, model.GeoState, 2023)
	require.NoError(t, err)
	assert.Nil(t, other)
	other, err = s.GetRentTable(ctx, model.GeoCounty, 2024)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestSQLite_PutReplacesExistingTable(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := model.RentTable{
		"06": {Local: 1800, National: 1500},
		"48": {Local: 1400, National: 1500},
	}
	require.NoError(t, s.PutRentTable(ctx, model.GeoState, 2024, "acs", first))

	// The replacement drops rows absent from the new table.
	second := model.RentTable{"06": {Local: 1850, National: 1520}}
	require.NoError(t, s.PutRentTable(ctx, model.GeoState, 2024, "acs", second))

	got, err := s.GetRentTable(ctx, model.GeoState, 2024)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestSQLite_ListFetches(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	table := model.RentTable{"06": {Local: 1800, National: 1500}}
	require.NoError(t, s.PutRentTable(ctx, model.GeoState, 2024, "acs", table))
	require.NoError(t, s.PutRentTable(ctx, model.GeoCounty, 2024, "summary", table))

	fetches, err := s.ListFetches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, fetches, 2)

	for _, f := range fetches {
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, 2024, f.Year)
		assert.Equal(t, 1, f.RowCount)
		assert.False(t, f.FetchedAt.IsZero())
	}
}
