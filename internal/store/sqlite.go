package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rent_tables (
	geo_type      TEXT NOT NULL,
	year          INTEGER NOT NULL,
	geo_id        TEXT NOT NULL,
	local_rent    REAL NOT NULL,
	national_rent REAL NOT NULL,
	PRIMARY KEY (geo_type, year, geo_id)
);

CREATE TABLE IF NOT EXISTS rent_fetches (
	id         TEXT PRIMARY KEY,
	geo_type   TEXT NOT NULL,
	year       INTEGER NOT NULL,
	source     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rent_fetches_fetched_at ON rent_fetches(fetched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geo_id, local_rent, national_rent FROM rent_tables WHERE geo_type = ? AND year = ?`,
		string(geoType), year,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get rent table")
	}
	defer rows.Close()

	table := make(model.RentTable)
	for rows.Next() {
		var id string
		var pair model.RentPair
		if err := rows.Scan(&id, &pair.Local, &pair.National); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rent row")
		}
		table[id] = pair
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate rent rows")
	}
	if len(table) == 0 {
		return nil, nil
	}
	return table, nil
}

// PutRentTable replaces the stored table for (geoType, year) in one
// transaction and records the fetch. Last writer wins.
func (s *SQLiteStore) PutRentTable(ctx context.Context, geoType model.GeographyType, year int, source string, table model.RentTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM rent_tables WHERE geo_type = ? AND year = ?`,
		string(geoType), year,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear rent table")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rent_tables (geo_type, year, geo_id, local_rent, national_rent) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for id, pair := range table {
		if _, err := stmt.ExecContext(ctx, string(geoType), year, id, pair.Local, pair.National); err != nil {
			return eris.Wrapf(err, "sqlite: insert rent row %s", id)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rent_fetches (id, geo_type, year, source, row_count) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), string(geoType), year, source, len(table),
	); err != nil {
		return eris.Wrap(err, "sqlite: record fetch")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit rent table")
}

func (s *SQLiteStore) ListFetches(ctx context.Context, limit int) ([]FetchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, geo_type, year, source, row_count, fetched_at FROM rent_fetches
		 ORDER BY fetched_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fetches")
	}
	defer rows.Close()

	var fetches []FetchRecord
	for rows.Next() {
		var f FetchRecord
		if err := rows.Scan(&f.ID, &f.GeoType, &f.Year, &f.Source, &f.RowCount, &f.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fetch")
		}
		fetches = append(fetches, f)
	}
	return fetches, eris.Wrap(rows.Err(), "sqlite: iterate fetches")
}
