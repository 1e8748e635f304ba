package ml

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-nfl-spread/internal/model"
)

// linearTarget is the noise-free relation used by the synthetic tables:
// 3 + 0.2*away_rushing - 0.1*home_passing + 1.5*home_score_differential_post.
func linearTarget(p model.Pairing) float64 {
	return 3 + 0.2*p.Away[model.StatRushing] - 0.1*p.Home[model.StatPassing] + 1.5*p.Home[model.StatScoreDifferentialPost]
}

func randomPairing(rng *rand.Rand) model.Pairing {
	var p model.Pairing
	for _, s := range model.Stats() {
		p.Home[s] = rng.NormFloat64()*20 + 100
		p.Away[s] = rng.NormFloat64()*20 + 100
	}
	return p
}

func syntheticTable(n int, seed int64) []model.TrainingRow {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]model.TrainingRow, n)
	for i := range rows {
		p := randomPairing(rng)
		rows[i] = model.TrainingRow{
			GameID:     "g",
			Week:       2 + i%16,
			Year:       2023,
			HomeTeam:   "KC",
			AwayTeam:   "SF",
			HomeSpread: linearTarget(p),
			Pairing:    p,
		}
	}
	return rows
}

func TestTrainRecoversLinearRelation(t *testing.T) {
	rows := syntheticTable(200, 7)

	p, err := Train(rows, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.Equal(t, 160, p.Diagnostics.TrainRows)
	assert.Equal(t, 40, p.Diagnostics.TestRows)
	assert.InDelta(t, 0, p.Diagnostics.MSE, 1e-9)
	assert.InDelta(t, 0, p.Diagnostics.MAE, 1e-6)
	assert.InDelta(t, 1, p.Diagnostics.R2, 1e-6)

	unseen := randomPairing(rand.New(rand.NewSource(99)))
	assert.InDelta(t, linearTarget(unseen), p.Predict(unseen), 1e-6)
}

func TestTrainIsDeterministic(t *testing.T) {
	rows := syntheticTable(120, 3)
	for i := range rows {
		rows[i].HomeSpread += float64(i%7) - 3 // some noise so the fit is not exact
	}
	a, err := Train(rows, DefaultOptions())
	require.NoError(t, err)
	b, err := Train(rows, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Coeffs, b.Coeffs)
	assert.Equal(t, a.Scaler, b.Scaler)
	assert.Equal(t, a.Diagnostics, b.Diagnostics)
}

func TestTrainDropsFirstWeekAndMissingTarget(t *testing.T) {
	rows := syntheticTable(100, 11)
	for i := 0; i < 10; i++ {
		rows[i].Week = 1
	}
	rows[10].HomeSpread = math.NaN()

	p, err := Train(rows, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 100, p.Diagnostics.InputRows)
	assert.Equal(t, 11, p.Diagnostics.DroppedRows)
	assert.Equal(t, 89, p.Diagnostics.TrainRows+p.Diagnostics.TestRows)
	assert.Equal(t, 18, p.Diagnostics.TestRows) // ceil(0.2 * 89)
}

func TestTrainImputesMissingFeatures(t *testing.T) {
	rows := syntheticTable(150, 5)
	// The target stays exact; only an unused feature goes missing.
	for i := 0; i < len(rows); i += 3 {
		rows[i].Away[model.StatMeanEPA] = math.NaN()
	}
	p, err := Train(rows, DefaultOptions())
	require.NoError(t, err)
	for _, c := range p.Coeffs {
		assert.False(t, math.IsNaN(c))
	}
	assert.InDelta(t, 0, p.Diagnostics.MSE, 1e-9)

	pair := randomPairing(rand.New(rand.NewSource(1)))
	pair.Away[model.StatMeanEPA] = math.NaN()
	assert.InDelta(t, linearTarget(pair), p.Predict(pair), 1e-6)
}

func TestTrainConstantColumnGetsZeroWeight(t *testing.T) {
	rows := syntheticTable(100, 13)
	for i := range rows {
		rows[i].Home[model.StatMeanEPA] = 0.3
	}
	p, err := Train(rows, DefaultOptions())
	require.NoError(t, err)

	idx := len(p.Features) - 1
	require.Equal(t, "home_mean_epa_avg", p.Features[idx])
	assert.Equal(t, 0.0, p.Coeffs[idx])
	assert.Equal(t, 1.0, p.Scaler.Scale[idx])
	assert.InDelta(t, 0, p.Diagnostics.MSE, 1e-9)
}

func TestTrainTooFewRows(t *testing.T) {
	_, err := Train(syntheticTable(10, 1), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need more than 15 for the fit")
}

func TestPredictUsesStoredScaler(t *testing.T) {
	p := &Predictor{
		Features:  model.FeatureNames(),
		Imputer:   Imputer{Means: make([]float64, model.NumFeatures)},
		Scaler:    Scaler{Mean: make([]float64, model.NumFeatures), Scale: make([]float64, model.NumFeatures)},
		Intercept: 1,
		Coeffs:    make([]float64, model.NumFeatures),
	}
	for j := range p.Scaler.Scale {
		p.Scaler.Scale[j] = 1
	}
	// away_rushing_avg: mean 100, scale 10, weight 2
	p.Scaler.Mean[0] = 100
	p.Scaler.Scale[0] = 10
	p.Coeffs[0] = 2

	var pair model.Pairing
	pair.Away[model.StatRushing] = 130
	assert.InDelta(t, 1+2*3.0, p.Predict(pair), 1e-12)
	require.NoError(t, p.Validate())

	p.Features = p.Features[1:]
	assert.Error(t, p.Validate())
}

func TestFitImputerAndScaler(t *testing.T) {
	X := [][]float64{
		{1, math.NaN(), 5},
		{3, math.NaN(), 5},
		{math.NaN(), math.NaN(), 5},
	}
	imp := FitImputer(X, 3)
	assert.Equal(t, []float64{2, 0, 5}, imp.Means)
	assert.Equal(t, []float64{2, 0, 5}, imp.Transform(X[2]))

	filled := [][]float64{imp.Transform(X[0]), imp.Transform(X[1]), imp.Transform(X[2])}
	s := FitScaler(filled, 3)
	assert.InDelta(t, 2, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1])
	assert.Equal(t, 1.0, s.Scale[2])
	_, constant := fitScaler(filled, 3)
	assert.Equal(t, []bool{false, true, true}, constant)
}

func TestFitScalerTreatsRoundingNoiseAsConstant(t *testing.T) {
	X := make([][]float64, 80)
	for i := range X {
		X[i] = []float64{0.3, float64(i)}
	}
	X[5][0] = 0.29999999999999993

	s, constant := fitScaler(X, 2)
	assert.Equal(t, 1.0, s.Scale[0])
	assert.Equal(t, []bool{true, false}, constant)
	assert.Greater(t, s.Scale[1], 1.0)
}

func TestTrainImputedConstantColumnStaysInactive(t *testing.T) {
	rows := syntheticTable(200, 17)
	for i := range rows {
		rows[i].Home[model.StatMeanEPA] = 0.1
		if i%3 == 0 {
			rows[i].Home[model.StatMeanEPA] = math.NaN()
		}
	}
	p, err := Train(rows, DefaultOptions())
	require.NoError(t, err)

	idx := len(p.Features) - 1
	require.Equal(t, "home_mean_epa_avg", p.Features[idx])
	assert.Equal(t, 0.0, p.Coeffs[idx])
	assert.Equal(t, 1.0, p.Scaler.Scale[idx])
	assert.InDelta(t, 0, p.Diagnostics.MSE, 1e-9)

	// an unseen value in the inactive column must not move the prediction
	pair := randomPairing(rand.New(rand.NewSource(23)))
	pair.Home[model.StatMeanEPA] = 0.4
	assert.InDelta(t, linearTarget(pair), p.Predict(pair), 1e-6)
}

func TestTrainConstantTargetKeepsFiniteR2(t *testing.T) {
	rows := syntheticTable(100, 19)
	for i := range rows {
		rows[i].HomeSpread = 3
	}
	p, err := Train(rows, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, math.IsInf(p.Diagnostics.R2, 0))
	assert.False(t, math.IsNaN(p.Diagnostics.R2))

	_, err = json.Marshal(p)
	assert.NoError(t, err)
}
