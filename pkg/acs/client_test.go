package acs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// censusHandler mimics the data API's array-of-arrays payloads, routing on
// the for clause.
func censusHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NAME,B25064_001E", r.URL.Query().Get("get"))

		switch r.URL.Query().Get("for") {
		case "us:1":
			fmt.Fprint(w, `[["NAME","B25064_001E","us"],
				["United States","1500","1"]]`)
		case "state:*":
			fmt.Fprint(w, `[["NAME","B25064_001E","state"],
				["California","1800","06"],
				["Mississippi","900","28"],
				["Suppressed","-666666666","72"],
				["Missing",null,"66"]]`)
		case "county:*":
			fmt.Fprint(w, `[["NAME","B25064_001E","state","county"],
				["San Francisco County, California","2400","06","075"]]`)
		default:
			http.Error(w, "unknown for clause", http.StatusBadRequest)
		}
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(censusHandler(t))
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, RateLimit: 1000})
}

func TestFetchRentTable_States(t *testing.T) {
	client := newTestClient(t)

	table, err := client.FetchRentTable(context.Background(), model.GeoState, 2024)
	require.NoError(t, err)

	// Suppressed and null rows are dropped; the national median rides along.
	assert.Equal(t, model.RentTable{
		"06": {Local: 1800, National: 1500},
		"28": {Local: 900, National: 1500},
	}, table)
}

func TestFetchRentTable_CountyConcatenatesGEOID(t *testing.T) {
	client := newTestClient(t)

	table, err := client.FetchRentTable(context.Background(), model.GeoCounty, 2024)
	require.NoError(t, err)

	require.Len(t, table, 1)
	assert.Equal(t, model.RentPair{Local: 2400, National: 1500}, table["06075"])
}

func TestFetchRentTable_NationUnsupported(t *testing.T) {
	client := newTestClient(t)

	// The nation level never reaches the API; callers short-circuit it.
	_, err := client.FetchRentTable(context.Background(), model.GeoNation, 2024)
	assert.Error(t, err)
}

func TestFetchRentTable_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such vintage", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, RateLimit: 1000})
	_, err := client.FetchRentTable(context.Background(), model.GeoState, 1999)
	assert.Error(t, err)
}

func TestFetchRentTable_AllUnusableRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("for") == "us:1" {
			fmt.Fprint(w, `[["NAME","B25064_001E","us"],["United States","1500","1"]]`)
			return
		}
		fmt.Fprint(w, `[["NAME","B25064_001E","state"],["Nowhere",null,"99"]]`)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, RateLimit: 1000})
	_, err := client.FetchRentTable(context.Background(), model.GeoState, 2024)
	assert.Error(t, err)
}

func TestFetchRentTable_KeyForwarded(t *testing.T) {
	var sawKey bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "secret" {
			sawKey = true
		}
		if r.URL.Query().Get("for") == "us:1" {
			fmt.Fprint(w, `[["NAME","B25064_001E","us"],["United States","1500","1"]]`)
			return
		}
		fmt.Fprint(w, `[["NAME","B25064_001E","state"],["California","1800","06"]]`)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Key: "secret", RateLimit: 1000})
	_, err := client.FetchRentTable(context.Background(), model.GeoState, 2024)
	require.NoError(t, err)
	assert.True(t, sawKey)
}

func TestParseRent(t *testing.T) {
	t.Parallel()

	s := func(v string) *string { return &v }

	tests := []struct {
		name string
		row  []*string
		idx  int
		want float64
		ok   bool
	}{
		{name: "plain value", row: []*string{s("1500")}, idx: 0, want: 1500, ok: true},
		{name: "null cell", row: []*string{nil}, idx: 0},
		{name: "sentinel rejected", row: []*string{s("-666666666")}, idx: 0},
		{name: "zero rejected", row: []*string{s("0")}, idx: 0},
		{name: "garbage rejected", row: []*string{s("N/A")}, idx: 0},
		{name: "index out of range", row: []*string{s("1500")}, idx: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRent(tt.row, tt.idx)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
