// Package api exposes the threshold engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/engine"
	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// Server serves threshold calculations over HTTP.
type Server struct {
	engine *engine.Engine
}

// NewServer creates a Server over the given engine.
func NewServer(eng *engine.Engine) *Server {
	return &Server{engine: eng}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/threshold", s.handleThreshold)
		r.Get("/base", s.handleBase)
		r.Get("/geoadj", s.handleGeoAdj)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// thresholdResponse is the wire form of one computed threshold.
type thresholdResponse struct {
	Threshold     float64 `json:"threshold"`
	Base          float64 `json:"base"`
	Scale         float64 `json:"scale"`
	GeoAdj        float64 `json:"geoadj"`
	Year          int     `json:"year"`
	Tenure        string  `json:"tenure"`
	GeographyType string  `json:"geography_type"`
	GeographyID   string  `json:"geography_id"`
	Source        string  `json:"source"`
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	adults, err := intParam(q.Get("adults"), 2)
	if err != nil {
		writeError(w, &model.InvalidInputError{Field: "adults", Reason: "must be an integer"})
		return
	}
	children, err := intParam(q.Get("children"), 2)
	if err != nil {
		writeError(w, &model.InvalidInputError{Field: "children", Reason: "must be an integer"})
		return
	}
	year, err := intParam(q.Get("year"), time.Now().Year())
	if err != nil {
		writeError(w, &model.InvalidInputError{Field: "year", Reason: "must be an integer"})
		return
	}

	tenure, err := model.ParseTenure(stringParam(q.Get("tenure"), string(model.TenureRenter)))
	if err != nil {
		writeError(w, err)
		return
	}
	geoType, err := model.ParseGeographyType(stringParam(q.Get("geo_type"), string(model.GeoNation)))
	if err != nil {
		writeError(w, err)
		return
	}
	geoID := stringParam(q.Get("geo_id"), model.NationID)

	result, err := s.engine.Calculate(r.Context(), engine.CalcInput{
		Adults:        adults,
		Children:      children,
		Tenure:        tenure,
		GeographyType: geoType,
		GeographyID:   geoID,
		Year:          year,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, thresholdResponse{
		Threshold:     result.Amount,
		Base:          result.Base.Amount,
		Scale:         result.Scale,
		GeoAdj:        result.GeoAdj,
		Year:          result.Year,
		Tenure:        string(result.Tenure),
		GeographyType: string(result.GeographyType),
		GeographyID:   result.GeographyID,
		Source:        string(result.Base.Source),
	})
}

func (s *Server) handleBase(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r.URL.Query().Get("year"), time.Now().Year())
	if err != nil {
		writeError(w, &model.InvalidInputError{Field: "year", Reason: "must be an integer"})
		return
	}

	thresholds, err := s.engine.BaseThresholds(year)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make(map[string]map[string]any, len(thresholds))
	for tenure, bt := range thresholds {
		out[string(tenure)] = map[string]any{
			"amount": bt.Amount,
			"source": string(bt.Source),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "thresholds": out})
}

func (s *Server) handleGeoAdj(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := intParam(q.Get("year"), time.Now().Year())
	if err != nil {
		writeError(w, &model.InvalidInputError{Field: "year", Reason: "must be an integer"})
		return
	}
	geoType, err := model.ParseGeographyType(stringParam(q.Get("geo_type"), string(model.GeoNation)))
	if err != nil {
		writeError(w, err)
		return
	}
	geoID := stringParam(q.Get("geo_id"), model.NationID)

	adj, err := s.engine.GeoAdj(r.Context(), geoType, geoID, year)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"geography_type": string(geoType),
		"geography_id":   geoID,
		"year":           year,
		"geoadj":         adj,
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func stringParam(raw, def string) string {
	if raw == "" {
		return def
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

// writeError maps the calculation error taxonomy onto HTTP statuses.
// Bad input is the client's fault; a missing geography is a 404; missing
// historical data and upstream failures are the server side of the contract.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		invalidInput *model.InvalidInputError
		unknownTen   *model.UnknownTenureError
		geoTypeErr   *model.GeographyTypeError
		notFound     *model.GeographyNotFoundError
		unavailable  *model.DataUnavailableError
	)
	switch {
	case errors.As(err, &invalidInput), errors.As(err, &unknownTen), errors.As(err, &geoTypeErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &unavailable):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
