package speech

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/memorylane/backend/internal/models"
)

// Band threshold percentiles over the training score distribution.
// Fixed at fit time; prediction-time banding is a pure lookup.
const (
	lowCutPercentile  = 0.40
	highCutPercentile = 0.80
)

// Model is a ridge-regression estimator mapping standardized acoustic
// features to a cognitive-load score. Trained once offline and immutable
// during serving.
type Model struct {
	weights   []float64
	bias      float64
	means     []float64
	stds      []float64
	lambda    float64
	lowCut    float64
	highCut   float64
	trainedAt time.Time
}

// Fit standardizes each feature column, solves the regularized normal
// equations, and fixes the band thresholds from the training score
// distribution. The intercept is the training target mean and carries no
// penalty. A failed fit returns an error and no model, so any previously
// loaded model stays untouched.
func Fit(rows []models.FeatureVector, targets []float64, lambda float64) (*Model, error) {
	p := len(models.FeatureNames)
	n := len(rows)

	if n == 0 || len(targets) != n {
		return nil, fmt.Errorf("%w: need equal non-zero feature rows (%d) and targets (%d)",
			models.ErrValidation, n, len(targets))
	}
	if n <= p {
		return nil, fmt.Errorf("%w: need more than %d training rows, got %d", models.ErrValidation, p, n)
	}
	if lambda <= 0 {
		return nil, fmt.Errorf("%w: regularization strength must be positive, got %g", models.ErrValidation, lambda)
	}

	// Column statistics for standardization.
	means := make([]float64, p)
	stds := make([]float64, p)
	x := make([][]float64, n)
	for i, row := range rows {
		x[i] = row.Values()
		for j, v := range x[i] {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	for i := range x {
		for j, v := range x[i] {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
		if stds[j] < pivotTolerance {
			// Constant column: centering zeroes it out and the ridge term
			// drives its weight to zero.
			stds[j] = 1
		}
	}

	// Standardize in place and center the target.
	yMean := 0.0
	for _, t := range targets {
		yMean += t
	}
	yMean /= float64(n)

	for i := range x {
		for j := range x[i] {
			x[i][j] = (x[i][j] - means[j]) / stds[j]
		}
	}

	// Normal equations: (Xᵀ X + λI) w = Xᵀ (y - ȳ).
	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for j := 0; j < p; j++ {
		xtx[j] = make([]float64, p)
	}
	for i := 0; i < n; i++ {
		yc := targets[i] - yMean
		for j := 0; j < p; j++ {
			xty[j] += x[i][j] * yc
			for k := j; k < p; k++ {
				xtx[j][k] += x[i][j] * x[i][k]
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			xtx[j][k] = xtx[k][j]
		}
		xtx[j][j] += lambda
	}

	weights, err := solve(xtx, xty)
	if err != nil {
		return nil, fmt.Errorf("fit speech model: %w", err)
	}

	m := &Model{
		weights:   weights,
		bias:      yMean,
		means:     means,
		stds:      stds,
		lambda:    lambda,
		trainedAt: time.Now().UTC(),
	}

	// Band cut points: fixed percentiles of the training score distribution.
	scores := make([]float64, n)
	for i, row := range rows {
		scores[i] = m.score(row)
	}
	sort.Float64s(scores)
	m.lowCut = percentile(scores, lowCutPercentile)
	m.highCut = percentile(scores, highCutPercentile)

	return m, nil
}

// percentile returns the value at fraction q of a sorted slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

func (m *Model) score(fv models.FeatureVector) float64 {
	s := m.bias
	for j, v := range fv.Values() {
		s += m.weights[j] * (v - m.means[j]) / m.stds[j]
	}
	return s
}

// Predict validates a raw feature payload, standardizes it with the stored
// training statistics, and returns the cognitive-load score.
func (m *Model) Predict(features map[string]float64) (float64, error) {
	fv, err := models.ParseFeatureVector(features)
	if err != nil {
		return 0, err
	}
	return m.score(fv), nil
}

// PredictVector scores an already-validated feature vector.
func (m *Model) PredictVector(fv models.FeatureVector) float64 {
	return m.score(fv)
}

// BandForScore maps a score to its load band via the stored cut points.
// Deterministic: the same score always yields the same band.
func (m *Model) BandForScore(score float64) models.CognitiveLoadBand {
	switch {
	case score <= m.lowCut:
		return models.BandLow
	case score <= m.highCut:
		return models.BandModerate
	default:
		return models.BandHigh
	}
}

// Thresholds returns the low and high cut points fixed at training time.
func (m *Model) Thresholds() (low, high float64) {
	return m.lowCut, m.highCut
}
