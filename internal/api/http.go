// Package api serves spread predictions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/pipeline"
	"github.com/pable/go-nfl-spread/internal/rolling"
	"github.com/pable/go-nfl-spread/pkg/logger"
	"github.com/pable/go-nfl-spread/pkg/metrics"
)

// Server holds the loaded model and answers prediction requests.
type Server struct {
	pipe    *pipeline.Pipeline
	log     logger.Logger
	metrics *metrics.Manager

	mu    sync.RWMutex
	model *pipeline.Model
}

// NewServer returns a server scoring against m. m may be nil until Reload
// succeeds; prediction routes answer 503 meanwhile.
func NewServer(pipe *pipeline.Pipeline, m *pipeline.Model, log logger.Logger, mm *metrics.Manager) *Server {
	return &Server{pipe: pipe, model: m, log: log, metrics: mm}
}

// Reload swaps in the latest stored table and predictor.
func (s *Server) Reload(ctx context.Context) error {
	m, err := s.pipe.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	s.log.Info(ctx, "model loaded",
		logger.String("table_version", m.TableVersion),
		logger.String("predictor_version", m.Predictor.Version))
	return nil
}

func (s *Server) current() *pipeline.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/teams", s.handleTeams).Methods(http.MethodGet)
	r.HandleFunc("/v1/teams/{team}/averages", s.handleAverages).Methods(http.MethodGet)
	r.HandleFunc("/v1/predict", s.handlePredictQuery).Methods(http.MethodGet)
	r.HandleFunc("/v1/predict", s.handlePredictBody).Methods(http.MethodPost)
	r.HandleFunc("/v1/reload", s.handleReload).Methods(http.MethodPost)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status           string `json:"status"`
	TableVersion     string `json:"table_version,omitempty"`
	PredictorVersion string `json:"predictor_version,omitempty"`
}

type predictionResponse struct {
	HomeTeam     string              `json:"home_team"`
	AwayTeam     string              `json:"away_team"`
	HomeYear     int                 `json:"home_year"`
	HomeWeek     int                 `json:"home_week"`
	AwayYear     int                 `json:"away_year"`
	AwayWeek     int                 `json:"away_week"`
	Spread       float64             `json:"spread"`
	Favourite    string              `json:"favourite"`
	ModelVersion string              `json:"model_version"`
	Features     map[string]*float64 `json:"features"`
}

type averageRow struct {
	GameID   string              `json:"game_id"`
	Year     int                 `json:"year"`
	Week     int                 `json:"week"`
	Opponent string              `json:"opponent"`
	Home     bool                `json:"home"`
	Averages map[string]*float64 `json:"averages"`
}

// present maps the missing marker to JSON null.
func present(v float64) *float64 {
	if model.IsMissing(v) {
		return nil
	}
	return &v
}

func toResponse(p model.Prediction) predictionResponse {
	feats := make(map[string]*float64, model.NumFeatures)
	names := model.FeatureNames()
	for i, v := range p.Features() {
		feats[names[i]] = present(v)
	}
	return predictionResponse{
		HomeTeam:     p.HomeTeam,
		AwayTeam:     p.AwayTeam,
		HomeYear:     p.HomeYear,
		HomeWeek:     p.HomeWeek,
		AwayYear:     p.AwayYear,
		AwayWeek:     p.AwayWeek,
		Spread:       p.Spread,
		Favourite:    p.Favourite(),
		ModelVersion: p.ModelVersion,
		Features:     feats,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.current()
	if m == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no model"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		TableVersion:     m.TableVersion,
		PredictorVersion: m.Predictor.Version,
	})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"teams": model.Teams})
}

func (s *Server) handleAverages(w http.ResponseWriter, r *http.Request) {
	m := s.current()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "no_model", errors.New("no model loaded"))
		return
	}
	team := model.NormalizeTeam(mux.Vars(r)["team"])
	if !model.IsValidTeam(team) {
		writeError(w, http.StatusBadRequest, "invalid_team", errors.New("unknown team "+team))
		return
	}
	year, err := intParam(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_year", err)
		return
	}
	rows := rolling.ForTeam(m.Table, team, year)
	out := make([]averageRow, 0, len(rows))
	for _, row := range rows {
		avgs := make(map[string]*float64, model.NumStats)
		for _, st := range model.Stats() {
			avgs[st.AvgColumn()] = present(row.Avg[st])
		}
		out = append(out, averageRow{
			GameID:   row.GameID,
			Year:     row.Year,
			Week:     row.Week,
			Opponent: row.Opponent(),
			Home:     row.IsHome(),
			Averages: avgs,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePredictQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.MatchupRequest{HomeTeam: q.Get("home"), AwayTeam: q.Get("away")}
	var err error
	if req.Year, err = intParam(r, "year"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_year", err)
		return
	}
	if req.Week, err = intParam(r, "week"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_week", err)
		return
	}
	s.predict(w, r, req)
}

func (s *Server) handlePredictBody(w http.ResponseWriter, r *http.Request) {
	var req model.MatchupRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	s.predict(w, r, req)
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request, req model.MatchupRequest) {
	m := s.current()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "no_model", errors.New("no model loaded"))
		return
	}
	pred, err := s.pipe.Predict(r.Context(), m, req, "http")
	switch {
	case errors.Is(err, model.ErrInvalidMatchup):
		writeError(w, http.StatusBadRequest, "invalid_matchup", err)
	case errors.Is(err, model.ErrMissingData):
		writeError(w, http.StatusNotFound, "missing_data", err)
	case err != nil:
		s.log.Error(r.Context(), "predict failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", err)
	default:
		writeJSON(w, http.StatusOK, toResponse(pred))
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "reload_failed", err)
		return
	}
	s.handleHealth(w, r)
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name + ": " + v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
