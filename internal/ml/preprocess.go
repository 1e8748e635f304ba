package ml

import (
	"math"

	"github.com/pable/go-nfl-spread/internal/model"
)

// Imputer replaces missing values with the per-column mean seen at fit time.
type Imputer struct {
	Means []float64 `json:"means"`
}

// FitImputer learns column means over the present values of X. A column with
// no present value imputes to 0.
func FitImputer(X [][]float64, width int) Imputer {
	sum := make([]float64, width)
	n := make([]int, width)
	for _, row := range X {
		for j, v := range row {
			if model.IsMissing(v) {
				continue
			}
			sum[j] += v
			n[j]++
		}
	}
	means := make([]float64, width)
	for j := range means {
		if n[j] > 0 {
			means[j] = sum[j] / float64(n[j])
		}
	}
	return Imputer{Means: means}
}

// Transform returns a copy of x with missing values filled.
func (im Imputer) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if model.IsMissing(v) {
			v = im.Means[j]
		}
		out[j] = v
	}
	return out
}

// zeroScaleTolerance is the standard deviation, relative to max(|mean|, 1),
// below which a column is treated as constant. Summation error alone leaves
// constant columns with a std around 1e-16.
const zeroScaleTolerance = 1e-10

// Scaler standardises columns to zero mean and unit variance using the
// population standard deviation. Near-zero-variance columns keep scale 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-column mean and scale from X.
func FitScaler(X [][]float64, width int) Scaler {
	s, _ := fitScaler(X, width)
	return s
}

// fitScaler also reports which columns were judged constant, so the
// regression drops exactly the columns the scaler left unscaled.
func fitScaler(X [][]float64, width int) (Scaler, []bool) {
	mean := make([]float64, width)
	scale := make([]float64, width)
	constant := make([]bool, width)
	if len(X) == 0 {
		for j := range scale {
			scale[j] = 1
			constant[j] = true
		}
		return Scaler{Mean: mean, Scale: scale}, constant
	}
	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(X))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] <= zeroScaleTolerance*math.Max(math.Abs(mean[j]), 1) {
			scale[j] = 1
			constant[j] = true
		}
	}
	return Scaler{Mean: mean, Scale: scale}, constant
}

// Transform returns the standardised copy of x.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}
