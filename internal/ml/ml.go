// Package ml fits and applies the linear spread model. Imputation, scaling
// and regression parameters travel together in a single Predictor so they
// are always applied as the set they were fitted as.
package ml

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sajari/regression"

	"github.com/pable/go-nfl-spread/internal/model"
)

// Options controls a training run.
type Options struct {
	Seed         int64   // split seed
	TestFraction float64 // share of rows held out for diagnostics
	MinWeek      int     // rows with week <= MinWeek carry no history and are dropped
}

// DefaultOptions returns the standard 80/20 split with seed 42.
func DefaultOptions() Options {
	return Options{Seed: 42, TestFraction: 0.2, MinWeek: 1}
}

// Diagnostics summarise a training run. Errors are measured on the held-out
// rows; R2 is the in-sample fit.
type Diagnostics struct {
	InputRows   int     `json:"input_rows"`
	DroppedRows int     `json:"dropped_rows"`
	TrainRows   int     `json:"train_rows"`
	TestRows    int     `json:"test_rows"`
	MSE         float64 `json:"mse"`
	MAE         float64 `json:"mae"`
	R2          float64 `json:"r2"`
}

// Predictor is a fitted model: imputer, scaler and linear coefficients over
// the features named in Features.
type Predictor struct {
	Version     string      `json:"version"`
	RunID       string      `json:"run_id"`
	TrainedAt   time.Time   `json:"trained_at"`
	Features    []string    `json:"features"`
	Imputer     Imputer     `json:"imputer"`
	Scaler      Scaler      `json:"scaler"`
	Intercept   float64     `json:"intercept"`
	Coeffs      []float64   `json:"coeffs"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Train fits a Predictor on rows. Rows at or before opts.MinWeek and rows
// without a target are discarded. The remaining rows are split with a seeded
// permutation; the imputer and scaler are fitted on the training split only.
func Train(rows []model.TrainingRow, opts Options) (*Predictor, error) {
	var X [][]float64
	var y []float64
	for _, r := range rows {
		if r.Week <= opts.MinWeek || model.IsMissing(r.HomeSpread) {
			continue
		}
		X = append(X, r.Features())
		y = append(y, r.HomeSpread)
	}
	diag := Diagnostics{InputRows: len(rows), DroppedRows: len(rows) - len(X)}

	n := len(X)
	nTest := int(math.Ceil(opts.TestFraction * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	nTrain := n - nTest
	if nTrain <= model.NumFeatures+1 {
		return nil, fmt.Errorf("not enough training rows: %d usable with %d held out, need more than %d for the fit",
			n, nTest, model.NumFeatures+1)
	}

	perm := rand.New(rand.NewSource(opts.Seed)).Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	trainRaw := subset(X, trainIdx)
	imp := FitImputer(trainRaw, model.NumFeatures)
	trainX := make([][]float64, len(trainRaw))
	for i, x := range trainRaw {
		trainX[i] = imp.Transform(x)
	}
	scaler, constant := fitScaler(trainX, model.NumFeatures)

	names := model.FeatureNames()
	var active []int
	for j := range names {
		if !constant[j] {
			active = append(active, j)
		}
	}

	p := &Predictor{
		Features: names,
		Imputer:  imp,
		Scaler:   scaler,
		Coeffs:   make([]float64, model.NumFeatures),
	}

	trainY := subset1(y, trainIdx)
	if len(active) == 0 {
		p.Intercept = mean(trainY)
	} else {
		var r regression.Regression
		r.SetObserved("home_spread")
		for k, j := range active {
			r.SetVar(k, names[j])
		}
		for i, x := range trainX {
			z := scaler.Transform(x)
			vars := make([]float64, len(active))
			for k, j := range active {
				vars[k] = z[j]
			}
			r.Train(regression.DataPoint(trainY[i], vars))
		}
		if err := r.Run(); err != nil {
			return nil, fmt.Errorf("fit regression: %w", err)
		}
		coeffs := r.GetCoeffs()
		if len(coeffs) != len(active)+1 {
			return nil, fmt.Errorf("fit regression: expected %d coefficients, got %d", len(active)+1, len(coeffs))
		}
		p.Intercept = coeffs[0]
		for k, j := range active {
			p.Coeffs[j] = coeffs[k+1]
		}
		diag.R2 = finiteR2(r.R2, trainX, trainY, p)
	}

	for i, c := range p.Coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("fit regression: non-finite coefficient for %s", names[i])
		}
	}

	var sq, abs float64
	for _, i := range testIdx {
		e := p.PredictVector(X[i]) - y[i]
		sq += e * e
		abs += math.Abs(e)
	}
	diag.TrainRows = nTrain
	diag.TestRows = nTest
	diag.MSE = sq / float64(nTest)
	diag.MAE = abs / float64(nTest)
	p.Diagnostics = diag
	return p, nil
}

// Validate checks that p was fitted on the current feature layout.
func (p *Predictor) Validate() error {
	want := model.FeatureNames()
	if len(p.Features) != len(want) || len(p.Coeffs) != len(want) ||
		len(p.Imputer.Means) != len(want) || len(p.Scaler.Mean) != len(want) || len(p.Scaler.Scale) != len(want) {
		return fmt.Errorf("predictor %s: expected %d features", p.Version, len(want))
	}
	for i, name := range want {
		if p.Features[i] != name {
			return fmt.Errorf("predictor %s: feature %d is %s, expected %s", p.Version, i, p.Features[i], name)
		}
	}
	return nil
}

// Predict returns the home-relative spread for an assembled pairing.
func (p *Predictor) Predict(pair model.Pairing) float64 {
	return p.PredictVector(pair.Features())
}

// PredictVector applies imputation, the fitted scaling and the linear model
// to a raw feature vector in FeatureNames order.
func (p *Predictor) PredictVector(x []float64) float64 {
	z := p.Scaler.Transform(p.Imputer.Transform(x))
	out := p.Intercept
	for j, c := range p.Coeffs {
		out += c * z[j]
	}
	return out
}

// finiteR2 returns r2 when it is finite. A constant target makes the ratio
// undefined; it then reads 1 for an exact fit and 0 otherwise.
func finiteR2(r2 float64, X [][]float64, y []float64, p *Predictor) float64 {
	if !math.IsNaN(r2) && !math.IsInf(r2, 0) {
		return r2
	}
	for i, x := range X {
		if math.Abs(p.PredictVector(x)-y[i]) > 1e-9*math.Max(math.Abs(y[i]), 1) {
			return 0
		}
	}
	return 1
}

func subset(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func subset1(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
