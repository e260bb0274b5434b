package speech

import (
	"math/rand"

	"github.com/memorylane/backend/internal/models"
)

// SyntheticTrainingSet generates the offline training distribution used to
// bootstrap a model when no snapshot exists. Faster speech with fewer
// pauses, richer vocabulary, and less jitter maps to lower load on a 1–3
// scale, with Gaussian noise on top.
func SyntheticTrainingSet(rng *rand.Rand, n int) ([]models.FeatureVector, []float64) {
	rows := make([]models.FeatureVector, n)
	targets := make([]float64, n)

	for i := 0; i < n; i++ {
		fv := models.FeatureVector{
			WPM:              120 + rng.NormFloat64()*30,
			PauseRate:        clamp(0.20+rng.NormFloat64()*0.10, 0.02, 0.60),
			TTR:              clamp(0.65+rng.NormFloat64()*0.12, 0.30, 0.95),
			Jitter:           clamp(0.12+rng.NormFloat64()*0.06, 0.01, 0.40),
			ArticulationRate: clamp(2.5+rng.NormFloat64()*0.7, 0.8, 5.0),
		}
		load := 2.0 -
			(fv.WPM-120)/60 +
			(fv.PauseRate-0.20)*3 -
			(fv.TTR-0.65)*1.5 +
			(fv.Jitter-0.12)*4 -
			(fv.ArticulationRate-2.5)*0.3 +
			rng.NormFloat64()*0.15
		rows[i] = fv
		targets[i] = clamp(load, 1.0, 3.0)
	}
	return rows, targets
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
