package models

import (
	"fmt"
	"time"
)

// FeatureNames lists the acoustic features the speech model consumes,
// in the column order used for fitting and prediction.
var FeatureNames = []string{"wpm", "pause_rate", "ttr", "jitter", "articulation_rate"}

// FeatureVector is one observation of the acoustic features. All fields
// are required for prediction.
type FeatureVector struct {
	WPM              float64 `json:"wpm"`
	PauseRate        float64 `json:"pause_rate"`
	TTR              float64 `json:"ttr"`
	Jitter           float64 `json:"jitter"`
	ArticulationRate float64 `json:"articulation_rate"`
}

// Values returns the features in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.WPM, f.PauseRate, f.TTR, f.Jitter, f.ArticulationRate}
}

// ParseFeatureVector validates a loose feature payload at the boundary.
// Missing and unknown keys are both rejected with ErrValidation.
func ParseFeatureVector(raw map[string]float64) (FeatureVector, error) {
	var fv FeatureVector
	for _, name := range FeatureNames {
		if _, ok := raw[name]; !ok {
			return fv, fmt.Errorf("%w: missing feature %q", ErrValidation, name)
		}
	}
	for key := range raw {
		switch key {
		case "wpm", "pause_rate", "ttr", "jitter", "articulation_rate":
		default:
			return fv, fmt.Errorf("%w: unknown feature %q", ErrValidation, key)
		}
	}
	fv = FeatureVector{
		WPM:              raw["wpm"],
		PauseRate:        raw["pause_rate"],
		TTR:              raw["ttr"],
		Jitter:           raw["jitter"],
		ArticulationRate: raw["articulation_rate"],
	}
	return fv, nil
}

// CognitiveLoadBand is the discretized cognitive-load estimate.
type CognitiveLoadBand string

const (
	BandLow      CognitiveLoadBand = "low"
	BandModerate CognitiveLoadBand = "moderate"
	BandHigh     CognitiveLoadBand = "high"
)

var ValidLoadBands = map[CognitiveLoadBand]bool{
	BandLow:      true,
	BandModerate: true,
	BandHigh:     true,
}

// SpeechSnapshot is the versioned persisted form of a trained speech model.
const SpeechSchemaVersion = 1

type SpeechSnapshot struct {
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`
	FeatureNames  []string  `json:"feature_names"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	Means         []float64 `json:"means"`
	Stds          []float64 `json:"stds"`
	Lambda        float64   `json:"lambda"`
	LowCut        float64   `json:"low_cut"`
	HighCut       float64   `json:"high_cut"`
}

// ── Request/Response Types ───────────────────────────────

type AnalyzeSpeechRequest struct {
	UserID   string             `json:"user_id"`
	Features map[string]float64 `json:"features"`
}

type AnalyzeSpeechResponse struct {
	Score float64           `json:"score"`
	Band  CognitiveLoadBand `json:"band"`
}
