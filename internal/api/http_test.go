package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-nfl-spread/internal/artifact"
	"github.com/pable/go-nfl-spread/internal/ml"
	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/pipeline"
	"github.com/pable/go-nfl-spread/internal/storage"
	"github.com/pable/go-nfl-spread/pkg/logger"
	"github.com/pable/go-nfl-spread/pkg/metrics"
)

const testVersion = "20240102T030405.000000000Z"

// twoWeekTable holds KC hosting DET in weeks 1 and 2 of 2023.
func twoWeekTable() []model.RunningAverageRow {
	var rows []model.RunningAverageRow
	for week := 1; week <= 2; week++ {
		for _, team := range []string{"KC", "DET"} {
			r := model.RunningAverageRow{GameTeamStat: model.GameTeamStat{
				GameID:   fmt.Sprintf("2023_%02d_DET_KC", week),
				Team:     team,
				Week:     week,
				Year:     2023,
				HomeTeam: "KC",
				AwayTeam: "DET",
			}}
			for i := range r.Avg {
				if week == 1 {
					r.Avg[i] = math.NaN()
				} else {
					r.Avg[i] = float64(i + 1)
				}
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// flatPredictor always predicts its intercept.
func flatPredictor(intercept float64) *ml.Predictor {
	n := model.NumFeatures
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}
	return &ml.Predictor{
		Version:   testVersion,
		Features:  model.FeatureNames(),
		Imputer:   ml.Imputer{Means: make([]float64, n)},
		Scaler:    ml.Scaler{Mean: make([]float64, n), Scale: scale},
		Intercept: intercept,
		Coeffs:    make([]float64, n),
	}
}

func newTestServer(t *testing.T, m *pipeline.Model) (*Server, *storage.DB, *metrics.Manager) {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mm := metrics.NewManager()
	pipe := pipeline.New(db, db, logger.Discard(), mm)
	return NewServer(pipe, m, logger.Discard(), mm), db, mm
}

func loadedModel() *pipeline.Model {
	return &pipeline.Model{TableVersion: testVersion, Table: twoWeekTable(), Predictor: flatPredictor(3.5)}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s, _, _ = newTestServer(t, loadedModel())
	rec = do(t, s.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, testVersion, got.PredictorVersion)
}

func TestTeams(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/v1/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string][]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got["teams"], 32)
}

func TestPredictQuery(t *testing.T) {
	s, _, _ := newTestServer(t, loadedModel())
	rec := do(t, s.Handler(), http.MethodGet, "/v1/predict?home=kc&away=DET", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var got predictionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "KC", got.HomeTeam)
	assert.Equal(t, "KC", got.Favourite)
	assert.Equal(t, 2, got.HomeWeek)
	assert.InDelta(t, 3.5, got.Spread, 1e-12)
	require.Len(t, got.Features, model.NumFeatures)
	require.NotNil(t, got.Features["home_points_scored_avg"])
}

func TestPredictMissingFeaturesAreNull(t *testing.T) {
	s, _, _ := newTestServer(t, loadedModel())
	rec := do(t, s.Handler(), http.MethodGet, "/v1/predict?home=KC&away=DET&year=2023&week=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got predictionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	for name, v := range got.Features {
		assert.Nil(t, v, name)
	}
}

func TestPredictBody(t *testing.T) {
	s, _, _ := newTestServer(t, loadedModel())
	rec := do(t, s.Handler(), http.MethodPost, "/v1/predict", `{"home_team":"DET","away_team":"KC","year":2023,"week":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodPost, "/v1/predict", `{"home_team":"DET","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"same team", "/v1/predict?home=KC&away=KC", http.StatusBadRequest, "invalid_matchup"},
		{"unknown team", "/v1/predict?home=XXX&away=KC", http.StatusBadRequest, "invalid_matchup"},
		{"bad week", "/v1/predict?home=KC&away=DET&week=two", http.StatusBadRequest, "invalid_week"},
		{"no rows", "/v1/predict?home=BUF&away=KC", http.StatusNotFound, "missing_data"},
		{"week absent", "/v1/predict?home=KC&away=DET&year=2023&week=9", http.StatusNotFound, "missing_data"},
	}
	s, _, _ := newTestServer(t, loadedModel())
	h := s.Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var got errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestPredictWithoutModel(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/v1/predict?home=KC&away=DET", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAverages(t *testing.T) {
	s, _, _ := newTestServer(t, loadedModel())
	rec := do(t, s.Handler(), http.MethodGet, "/v1/teams/det/averages?year=2023", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got []averageRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "KC", got[0].Opponent)
	assert.False(t, got[0].Home)
	assert.Nil(t, got[0].Averages["rushing_avg"])
	require.NotNil(t, got[1].Averages["rushing_avg"])

	rec = do(t, s.Handler(), http.MethodGet, "/v1/teams/ZZZ/averages", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReload(t *testing.T) {
	s, db, _ := newTestServer(t, nil)
	ctx := context.Background()
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, db.SaveRunningAverages(ctx, testVersion, twoWeekTable()))
	require.NoError(t, artifact.Save(ctx, db, artifact.KindPredictor, testVersion, flatPredictor(-2)))

	rec = do(t, h, http.MethodPost, "/v1/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/predict?home=KC&away=DET", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got predictionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "DET", got.Favourite)
}

func TestMetricsRoute(t *testing.T) {
	s, _, _ := newTestServer(t, loadedModel())
	h := s.Handler()
	do(t, h, http.MethodGet, "/v1/teams/KC/averages", "")
	do(t, h, http.MethodGet, "/v1/predict?home=KC&away=DET", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/v1/teams/{team}/averages"`)
	assert.Contains(t, body, `nflspread_predictions_total{source="http"} 1`)
}
