package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

func TestParseFTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "default port appended",
			url:      "ftp://ftp2.census.gov/acs/summary/rent_state.csv",
			wantHost: "ftp2.census.gov:21",
			wantPath: "/acs/summary/rent_state.csv",
		},
		{
			name:     "explicit port kept",
			url:      "ftp://ftp2.census.gov:2121/data.csv",
			wantHost: "ftp2.census.gov:2121",
			wantPath: "/data.csv",
		},
		{name: "http rejected", url: "http://example.com/data.csv", wantErr: true},
		{name: "empty path rejected", url: "ftp://ftp2.census.gov", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestParseRentCSV(t *testing.T) {
	t.Parallel()

	body := `geo_id,median_rent,national_median_rent
06,1800,1500
28,900,1500
06075,2400,1500
`
	table, err := ParseRentCSV(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, model.RentTable{
		"06":    {Local: 1800, National: 1500},
		"28":    {Local: 900, National: 1500},
		"06075": {Local: 2400, National: 1500},
	}, table)
}

func TestParseRentCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty input", body: ""},
		{name: "wrong header", body: "id,rent,national\n06,1800,1500\n"},
		{name: "header only", body: "geo_id,median_rent,national_median_rent\n"},
		{name: "bad local rent", body: "geo_id,median_rent,national_median_rent\n06,n/a,1500\n"},
		{name: "bad national rent", body: "geo_id,median_rent,national_median_rent\n06,1800,none\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRentCSV(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}
