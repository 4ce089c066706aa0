package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/baseline"
	"github.com/PolicyEngine/spm-calculator/internal/engine"
	"github.com/PolicyEngine/spm-calculator/internal/geoadj"
	"github.com/PolicyEngine/spm-calculator/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubSource struct{}

func (stubSource) FetchRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error) {
	return model.RentTable{
		"06": {Local: 1800, National: 1500},
		"28": {Local: 900, National: 1500},
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	base, err := baseline.New(baseline.Options{})
	require.NoError(t, err)
	eng := engine.New(base, geoadj.New(stubSource{}, geoadj.Options{}))

	srv := httptest.NewServer(NewServer(eng).Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestThreshold_Defaults(t *testing.T) {
	srv := newTestServer(t)

	// No parameters: reference family, renter, nation, current year.
	var body thresholdResponse
	status := getJSON(t, srv.URL+"/v1/threshold?year=2024", &body)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, 39430.0, body.Threshold)
	assert.Equal(t, 1.0, body.Scale)
	assert.Equal(t, 1.0, body.GeoAdj)
	assert.Equal(t, "renter", body.Tenure)
	assert.Equal(t, "US", body.GeographyID)
	assert.Equal(t, "published", body.Source)
}

func TestThreshold_StateAdjustment(t *testing.T) {
	srv := newTestServer(t)

	var body thresholdResponse
	status := getJSON(t, srv.URL+"/v1/threshold?adults=1&children=2&tenure=owner_with_mortgage&geo_type=state&geo_id=06&year=2024", &body)
	assert.Equal(t, http.StatusOK, status)

	wantAdj := 1.2*0.492 + 0.508
	assert.InDelta(t, wantAdj, body.GeoAdj, 1e-12)
	assert.InDelta(t, 1.6/2.1, body.Scale, 1e-12)
	assert.InDelta(t, 39068.0*(1.6/2.1)*wantAdj, body.Threshold, 1e-9)
}

func TestThreshold_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "bad tenure", query: "tenure=condo&year=2024", want: http.StatusBadRequest},
		{name: "bad geo type", query: "geo_type=zip&year=2024", want: http.StatusBadRequest},
		{name: "malformed geo id", query: "geo_type=state&geo_id=CA&year=2024", want: http.StatusBadRequest},
		{name: "non-integer adults", query: "adults=two&year=2024", want: http.StatusBadRequest},
		{name: "negative children", query: "children=-1&year=2024", want: http.StatusBadRequest},
		{name: "unknown geography", query: "geo_type=state&geo_id=99&year=2024", want: http.StatusNotFound},
		{name: "year before data", query: "year=1999", want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			status := getJSON(t, srv.URL+"/v1/threshold?"+tt.query, &body)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBase(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Year       int                       `json:"year"`
		Thresholds map[string]map[string]any `json:"thresholds"`
	}
	status := getJSON(t, srv.URL+"/v1/base?year=2024", &body)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, 2024, body.Year)
	require.Len(t, body.Thresholds, 3)
	assert.Equal(t, 39430.0, body.Thresholds["renter"]["amount"])
	assert.Equal(t, "published", body.Thresholds["renter"]["source"])
}

func TestGeoAdj(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		GeographyType string  `json:"geography_type"`
		GeographyID   string  `json:"geography_id"`
		GeoAdj        float64 `json:"geoadj"`
	}
	status := getJSON(t, srv.URL+"/v1/geoadj?geo_type=state&geo_id=28&year=2024", &body)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, "state", body.GeographyType)
	assert.Equal(t, "28", body.GeographyID)
	assert.InDelta(t, 0.6*0.492+0.508, body.GeoAdj, 1e-12)
}

func TestGeoAdj_NationDefault(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		GeoAdj float64 `json:"geoadj"`
	}
	status := getJSON(t, srv.URL+"/v1/geoadj?year=2024", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body.GeoAdj)
}
