package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// Pool abstracts pgxpool.Pool so the store can be tested with pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rent_tables (
	geo_type      TEXT NOT NULL,
	year          INTEGER NOT NULL,
	geo_id        TEXT NOT NULL,
	local_rent    DOUBLE PRECISION NOT NULL,
	national_rent DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (geo_type, year, geo_id)
);

CREATE TABLE IF NOT EXISTS rent_fetches (
	id         UUID PRIMARY KEY,
	geo_type   TEXT NOT NULL,
	year       INTEGER NOT NULL,
	source     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rent_fetches_fetched_at ON rent_fetches(fetched_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geo_id, local_rent, national_rent FROM rent_tables WHERE geo_type = $1 AND year = $2`,
		string(geoType), year,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get rent table")
	}
	defer rows.Close()

	table := make(model.RentTable)
	for rows.Next() {
		var id string
		var pair model.RentPair
		if err := rows.Scan(&id, &pair.Local, &pair.National); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rent row")
		}
		table[id] = pair
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rent rows")
	}
	if len(table) == 0 {
		return nil, nil
	}
	return table, nil
}

// PutRentTable replaces the stored table for (geoType, year) in one
// transaction, bulk-loading rows via COPY, and records the fetch.
func (s *PostgresStore) PutRentTable(ctx context.Context, geoType model.GeographyType, year int, source string, table model.RentTable) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM rent_tables WHERE geo_type = $1 AND year = $2`,
		string(geoType), year,
	); err != nil {
		return eris.Wrap(err, "postgres: clear rent table")
	}

	copyRows := make([][]any, 0, len(table))
	for id, pair := range table {
		copyRows = append(copyRows, []any{string(geoType), year, id, pair.Local, pair.National})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"rent_tables"},
		[]string{"geo_type", "year", "geo_id", "local_rent", "national_rent"},
		pgx.CopyFromRows(copyRows),
	); err != nil {
		return eris.Wrap(err, "postgres: copy rent rows")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO rent_fetches (id, geo_type, year, source, row_count) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), string(geoType), year, source, len(table),
	); err != nil {
		return eris.Wrap(err, "postgres: record fetch")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit rent table")
}

func (s *PostgresStore) ListFetches(ctx context.Context, limit int) ([]FetchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, geo_type, year, source, row_count, fetched_at FROM rent_fetches
		 ORDER BY fetched_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fetches")
	}
	defer rows.Close()

	var fetches []FetchRecord
	for rows.Next() {
		var f FetchRecord
		if err := rows.Scan(&f.ID, &f.GeoType, &f.Year, &f.Source, &f.RowCount, &f.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fetch")
		}
		fetches = append(fetches, f)
	}
	return fetches, eris.Wrap(rows.Err(), "postgres: iterate fetches")
}
