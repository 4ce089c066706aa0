package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// XLSXOptions configures the BLS workbook parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // header rows to skip, default 1
}

// ReadPublishedThresholds parses a BLS SPM-thresholds workbook into a
// published table suitable for baseline.Options.Published. Expected layout:
// one row per year with columns year, renter, owner_with_mortgage,
// owner_without_mortgage. Dollar signs and thousands separators are
// tolerated.
func ReadPublishedThresholds(path string, opts XLSXOptions) (map[int]map[model.Tenure]float64, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	skip := opts.SkipRows
	if skip == 0 {
		skip = 1
	}

	table := make(map[int]map[model.Tenure]float64)
	for i, row := range sheet.Rows {
		if i < skip {
			continue
		}
		cells := rowToStrings(row)
		if len(cells) == 0 || strings.TrimSpace(cells[0]) == "" {
			continue
		}
		if len(cells) < 4 {
			return nil, eris.Errorf("xlsx: row %d has %d cells, want 4", i+1, len(cells))
		}

		year, err := strconv.Atoi(strings.TrimSpace(cells[0]))
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d year", i+1)
		}

		byTenure := make(map[model.Tenure]float64, 3)
		for j, tenure := range model.AllTenures() {
			amount, err := parseDollars(cells[j+1])
			if err != nil {
				return nil, eris.Wrapf(err, "xlsx: row %d %s", i+1, tenure)
			}
			byTenure[tenure] = amount
		}
		table[year] = byTenure
	}

	if len(table) == 0 {
		return nil, eris.New("xlsx: no threshold rows found")
	}
	return table, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

// parseDollars parses "$39,430" or "39430" into a float.
func parseDollars(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse dollar amount %q", s)
	}
	if amount <= 0 {
		return 0, eris.Errorf("dollar amount must be positive, got %q", s)
	}
	return amount, nil
}
