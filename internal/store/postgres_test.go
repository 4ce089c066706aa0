package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

func TestPostgres_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rent_tables").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresFromPool(mock)
	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRentTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT geo_id, local_rent, national_rent FROM rent_tables").
		WithArgs("state", 2024).
		WillReturnRows(pgxmock.NewRows([]string{"geo_id", "local_rent", "national_rent"}).
			AddRow("06", 1800.0, 1500.0).
			AddRow("28", 900.0, 1500.0))

	s := NewPostgresFromPool(mock)
	table, err := s.GetRentTable(context.Background(), model.GeoState, 2024)
	require.NoError(t, err)

	assert.Equal(t, model.RentTable{
		"06": {Local: 1800, National: 1500},
		"28": {Local: 900, National: 1500},
	}, table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRentTable_EmptyIsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT geo_id, local_rent, national_rent FROM rent_tables").
		WithArgs("county", 2023).
		WillReturnRows(pgxmock.NewRows([]string{"geo_id", "local_rent", "national_rent"}))

	s := NewPostgresFromPool(mock)
	table, err := s.GetRentTable(context.Background(), model.GeoCounty, 2023)
	require.NoError(t, err)
	assert.Nil(t, table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutRentTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	table := model.RentTable{
		"06": {Local: 1800, National: 1500},
		"28": {Local: 900, National: 1500},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rent_tables").
		WithArgs("state", 2024).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(
		pgx.Identifier{"rent_tables"},
		[]string{"geo_type", "year", "geo_id", "local_rent", "national_rent"},
	).WillReturnResult(int64(len(table)))
	mock.ExpectExec("INSERT INTO rent_fetches").
		WithArgs(pgxmock.AnyArg(), "state", 2024, "acs", 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewPostgresFromPool(mock)
	err = s.PutRentTable(context.Background(), model.GeoState, 2024, "acs", table)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutRentTable_RollsBackOnCopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rent_tables").
		WithArgs("state", 2024).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(
		pgx.Identifier{"rent_tables"},
		[]string{"geo_type", "year", "geo_id", "local_rent", "national_rent"},
	).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	s := NewPostgresFromPool(mock)
	err = s.PutRentTable(context.Background(), model.GeoState, 2024, "acs",
		model.RentTable{"06": {Local: 1800, National: 1500}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListFetches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fetchedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, geo_type, year, source, row_count, fetched_at FROM rent_fetches").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "geo_type", "year", "source", "row_count", "fetched_at"}).
			AddRow("f2b9", "state", 2024, "acs", 52, fetchedAt))

	s := NewPostgresFromPool(mock)
	fetches, err := s.ListFetches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, fetches, 1)

	assert.Equal(t, "f2b9", fetches[0].ID)
	assert.Equal(t, "state", fetches[0].GeoType)
	assert.Equal(t, 52, fetches[0].RowCount)
	assert.Equal(t, fetchedAt, fetches[0].FetchedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
