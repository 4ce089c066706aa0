// Package ingest parses external data files: household batch CSVs, the BLS
// published-thresholds workbook, and Census summary rent files.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// HouseholdRow is one parsed line of a batch input CSV.
type HouseholdRow struct {
	Adults        int
	Children      int
	Tenure        model.Tenure
	GeographyType model.GeographyType
	GeographyID   string
	Year          int
	Line          int // 1-based source line, for error reporting
}

// householdColumns is the required CSV header, in order.
var householdColumns = []string{"adults", "children", "tenure", "geography_type", "geography_id", "year"}

// StreamHouseholds reads a household CSV and sends parsed rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error
// channel. Both channels are closed when processing completes.
func StreamHouseholds(ctx context.Context, r io.Reader) (<-chan HouseholdRow, <-chan error) {
	rowCh := make(chan HouseholdRow, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.TrimLeadingSpace = true

		header, err := reader.Read()
		if err != nil {
			errCh <- eris.Wrap(err, "ingest: read header")
			return
		}
		if err := checkHeader(header); err != nil {
			errCh <- err
			return
		}

		line := 1
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: read row")
				return
			}
			line++

			row, err := parseHousehold(record, line)
			if err != nil {
				errCh <- err
				return
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadHouseholds reads the whole CSV into a slice, preserving order.
func ReadHouseholds(ctx context.Context, r io.Reader) ([]HouseholdRow, error) {
	rowCh, errCh := StreamHouseholds(ctx, r)

	var rows []HouseholdRow
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

func checkHeader(header []string) error {
	if len(header) != len(householdColumns) {
		return eris.Errorf("ingest: expected %d columns %v, got %d", len(householdColumns), householdColumns, len(header))
	}
	for i, want := range householdColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return eris.Errorf("ingest: column %d must be %q, got %q", i+1, want, header[i])
		}
	}
	return nil
}

func parseHousehold(record []string, line int) (HouseholdRow, error) {
	if len(record) != len(householdColumns) {
		return HouseholdRow{}, eris.Errorf("ingest: line %d has %d fields, want %d", line, len(record), len(householdColumns))
	}

	adults, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return HouseholdRow{}, eris.Wrapf(err, "ingest: line %d adults", line)
	}
	children, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return HouseholdRow{}, eris.Wrapf(err, "ingest: line %d children", line)
	}
	tenure, err := model.ParseTenure(strings.TrimSpace(record[2]))
	if err != nil {
		return HouseholdRow{}, eris.Wrapf(err, "ingest: line %d", line)
	}
	geoType, err := model.ParseGeographyType(strings.TrimSpace(record[3]))
	if err != nil {
		return HouseholdRow{}, eris.Wrapf(err, "ingest: line %d", line)
	}
	geoID := strings.TrimSpace(record[4])
	year, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil {
		return HouseholdRow{}, eris.Wrapf(err, "ingest: line %d year", line)
	}

	return HouseholdRow{
		Adults:        adults,
		Children:      children,
		Tenure:        tenure,
		GeographyType: geoType,
		GeographyID:   geoID,
		Year:          year,
		Line:          line,
	}, nil
}
