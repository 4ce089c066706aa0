// Package acs fetches median gross rent tables from the Census Bureau ACS
// data API (table B25064), the data source behind the SPM geographic
// adjustment.
package acs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

const (
	// DefaultBaseURL is the Census data API root.
	DefaultBaseURL = "https://api.census.gov/data"
	// DefaultDataset is the ACS 5-year estimates dataset, which covers all
	// seven geography levels down to tract.
	DefaultDataset = "acs/acs5"

	// medianGrossRent is ACS table B25064, median gross rent.
	medianGrossRent = "B25064_001E"
)

// Options configures the ACS client.
type Options struct {
	BaseURL   string
	Dataset   string
	Key       string  // optional API key; unkeyed access is rate-limited harder
	RateLimit float64 // requests per second, default 5
	Timeout   time.Duration
}

// Client is an ACS data API client implementing geoadj.RentSource.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	dataset    string
	key        string
}

// NewClient creates an ACS client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Dataset == "" {
		opts.Dataset = DefaultDataset
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 5),
		baseURL:    opts.BaseURL,
		dataset:    opts.Dataset,
		key:        opts.Key,
	}
}

// geoQuery describes how one geography level maps onto the API's for/in
// clauses and which response columns concatenate into the GEOID.
type geoQuery struct {
	forClause string
	inClauses []string
	idCols    []string
}

var geoQueries = map[model.GeographyType]geoQuery{
	model.GeoState: {
		forClause: "state:*",
		idCols:    []string{"state"},
	},
	model.GeoCounty: {
		forClause: "county:*",
		idCols:    []string{"state", "county"},
	},
	model.GeoCongressionalDistrict: {
		forClause: "congressional district:*",
		inClauses: []string{"state:*"},
		idCols:    []string{"state", "congressional district"},
	},
	model.GeoMetroArea: {
		forClause: "metropolitan statistical area/micropolitan statistical area:*",
		idCols:    []string{"metropolitan statistical area/micropolitan statistical area"},
	},
	model.GeoPUMA: {
		forClause: "public use microdata area:*",
		inClauses: []string{"state:*"},
		idCols:    []string{"state", "public use microdata area"},
	},
	model.GeoTract: {
		forClause: "tract:*",
		inClauses: []string{"state:*", "county:*"},
		idCols:    []string{"state", "county", "tract"},
	},
}

// FetchRentTable fetches the median-rent table for one geography level and
// year. The year selects the ACS vintage directly. The national median is
// fetched alongside and carried in every row.
func (c *Client) FetchRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error) {
	gq, ok := geoQueries[geoType]
	if !ok {
		return nil, eris.Errorf("acs: no rent table for geography type %q", geoType)
	}

	national, err := c.nationalMedianRent(ctx, year)
	if err != nil {
		return nil, err
	}

	rows, err := c.query(ctx, year, gq.forClause, gq.inClauses)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: fetch %s rents for %d", geoType, year)
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("acs: empty response for %s year %d", geoType, year)
	}

	header := rows[0]
	rentIdx := columnIndex(header, medianGrossRent)
	if rentIdx < 0 {
		return nil, eris.Errorf("acs: column %s missing from response", medianGrossRent)
	}
	idIdx := make([]int, len(gq.idCols))
	for i, col := range gq.idCols {
		idx := columnIndex(header, col)
		if idx < 0 {
			return nil, eris.Errorf("acs: geo column %q missing from response", col)
		}
		idIdx[i] = idx
	}

	table := make(model.RentTable, len(rows)-1)
	var skipped int
	for _, row := range rows[1:] {
		rent, ok := parseRent(row, rentIdx)
		if !ok {
			skipped++
			continue
		}
		id := ""
		for _, idx := range idIdx {
			if idx >= len(row) || row[idx] == nil {
				id = ""
				break
			}
			id += *row[idx]
		}
		if id == "" {
			skipped++
			continue
		}
		table[id] = model.RentPair{Local: rent, National: national}
	}

	if skipped > 0 {
		zap.L().Debug("acs: skipped rows without usable rent",
			zap.String("geo_type", string(geoType)),
			zap.Int("year", year),
			zap.Int("skipped", skipped),
		)
	}
	if len(table) == 0 {
		return nil, eris.Errorf("acs: no usable rows for %s year %d", geoType, year)
	}

	zap.L().Info("acs: rent table fetched",
		zap.String("geo_type", string(geoType)),
		zap.Int("year", year),
		zap.Int("rows", len(table)),
		zap.Float64("national_median", national),
	)
	return table, nil
}

// nationalMedianRent fetches the US-level median gross rent for one year.
func (c *Client) nationalMedianRent(ctx context.Context, year int) (float64, error) {
	rows, err := c.query(ctx, year, "us:1", nil)
	if err != nil {
		return 0, eris.Wrapf(err, "acs: fetch national median rent for %d", year)
	}
	if len(rows) < 2 {
		return 0, eris.Errorf("acs: no national median rent for %d", year)
	}
	rentIdx := columnIndex(rows[0], medianGrossRent)
	if rentIdx < 0 {
		return 0, eris.Errorf("acs: column %s missing from national response", medianGrossRent)
	}
	rent, ok := parseRent(rows[1], rentIdx)
	if !ok {
		return 0, eris.Errorf("acs: unparseable national median rent for %d", year)
	}
	return rent, nil
}

// query performs one API request and decodes the array-of-arrays payload.
func (c *Client) query(ctx context.Context, year int, forClause string, inClauses []string) ([][]*string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "acs: rate limit")
	}

	params := url.Values{
		"get": {"NAME," + medianGrossRent},
		"for": {forClause},
	}
	for _, in := range inClauses {
		params.Add("in", in)
	}
	if c.key != "" {
		params.Set("key", c.key)
	}

	reqURL := fmt.Sprintf("%s/%d/%s?%s", c.baseURL, year, c.dataset, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "acs: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "acs: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("acs: status %d from %s", resp.StatusCode, reqURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "acs: read body")
	}

	var rows [][]*string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "acs: parse response")
	}
	return rows, nil
}

// columnIndex finds a header column by name, or -1.
func columnIndex(header []*string, name string) int {
	for i, col := range header {
		if col != nil && *col == name {
			return i
		}
	}
	return -1
}

// parseRent extracts a usable rent value from a row. ACS encodes
// suppressed or unavailable estimates as nulls or large negative
// sentinels; both are rejected.
func parseRent(row []*string, idx int) (float64, bool) {
	if idx >= len(row) || row[idx] == nil {
		return 0, false
	}
	rent, err := strconv.ParseFloat(*row[idx], 64)
	if err != nil || rent <= 0 {
		return 0, false
	}
	return rent, true
}
