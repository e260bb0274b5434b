package speech

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/memorylane/backend/internal/models"
	"github.com/memorylane/backend/internal/snapshots"
)

func fitSynthetic(t *testing.T, n int, lambda float64) (*Model, []models.FeatureVector) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	rows, targets := SyntheticTrainingSet(rng, n)
	m, err := Fit(rows, targets, lambda)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return m, rows
}

func TestFitAndPredict(t *testing.T) {
	m, rows := fitSynthetic(t, 200, 1.0)

	for i, row := range rows[:20] {
		score := m.PredictVector(row)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			t.Fatalf("row %d: non-finite score %f", i, score)
		}
	}

	low, high := m.Thresholds()
	if low > high {
		t.Errorf("thresholds out of order: low %f > high %f", low, high)
	}
}

func TestFitRecoversLinearSignal(t *testing.T) {
	// Noise-free linear target; with a small ridge penalty the fitted model
	// should reproduce it closely on the training rows.
	rng := rand.New(rand.NewSource(11))
	rows, _ := SyntheticTrainingSet(rng, 150)
	targets := make([]float64, len(rows))
	for i, r := range rows {
		targets[i] = 0.5 + 0.01*r.WPM - 2.0*r.PauseRate + 0.8*r.TTR - 1.2*r.Jitter + 0.1*r.ArticulationRate
	}

	m, err := Fit(rows, targets, 1e-6)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for i, r := range rows {
		got := m.PredictVector(r)
		if math.Abs(got-targets[i]) > 1e-3 {
			t.Fatalf("row %d: predicted %f, want %f", i, got, targets[i])
		}
	}
}

func TestFitValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rows, targets := SyntheticTrainingSet(rng, 50)

	if _, err := Fit(rows, targets, 0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("lambda 0: got %v, want ErrValidation", err)
	}
	if _, err := Fit(rows, targets, -1.0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("negative lambda: got %v, want ErrValidation", err)
	}
	if _, err := Fit(rows[:3], targets[:3], 1.0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("too few rows: got %v, want ErrValidation", err)
	}
	if _, err := Fit(rows, targets[:10], 1.0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("length mismatch: got %v, want ErrValidation", err)
	}
	if _, err := Fit(nil, nil, 1.0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("empty input: got %v, want ErrValidation", err)
	}
}

func TestFitDegenerateDataIsNumericalError(t *testing.T) {
	// Identical rows produce constant columns: after centering the design
	// matrix is zero, so only the ridge term keeps the system solvable. A
	// ridge term below the pivot tolerance must surface as ErrNumerical.
	row := models.FeatureVector{WPM: 120, PauseRate: 0.2, TTR: 0.65, Jitter: 0.12, ArticulationRate: 2.5}
	rows := make([]models.FeatureVector, 20)
	targets := make([]float64, 20)
	for i := range rows {
		rows[i] = row
		targets[i] = 2.0
	}

	_, err := Fit(rows, targets, 1e-30)
	if !errors.Is(err, models.ErrNumerical) {
		t.Errorf("degenerate fit: got %v, want ErrNumerical", err)
	}

	// A healthy ridge term keeps the same data solvable.
	if _, err := Fit(rows, targets, 1.0); err != nil {
		t.Errorf("degenerate fit with strong ridge: %v", err)
	}
}

func TestPredictValidatesFeatures(t *testing.T) {
	m, _ := fitSynthetic(t, 100, 1.0)

	valid := map[string]float64{
		"wpm": 110, "pause_rate": 0.25, "ttr": 0.6, "jitter": 0.15, "articulation_rate": 2.2,
	}
	if _, err := m.Predict(valid); err != nil {
		t.Fatalf("Predict on valid features: %v", err)
	}

	missing := map[string]float64{"wpm": 110, "pause_rate": 0.25}
	if _, err := m.Predict(missing); !errors.Is(err, models.ErrValidation) {
		t.Errorf("missing features: got %v, want ErrValidation", err)
	}

	unknown := map[string]float64{
		"wpm": 110, "pause_rate": 0.25, "ttr": 0.6, "jitter": 0.15,
		"articulation_rate": 2.2, "shimmer": 0.1,
	}
	if _, err := m.Predict(unknown); !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown feature: got %v, want ErrValidation", err)
	}
}

func TestBandForScoreIsDeterministic(t *testing.T) {
	m, rows := fitSynthetic(t, 200, 1.0)

	low, high := m.Thresholds()
	if got := m.BandForScore(low - 0.01); got != models.BandLow {
		t.Errorf("score below low cut: band %s, want low", got)
	}
	if got := m.BandForScore((low + high) / 2); got != models.BandModerate {
		t.Errorf("score between cuts: band %s, want moderate", got)
	}
	if got := m.BandForScore(high + 0.01); got != models.BandHigh {
		t.Errorf("score above high cut: band %s, want high", got)
	}

	// Same input, same band, every time.
	score := m.PredictVector(rows[0])
	band := m.BandForScore(score)
	for i := 0; i < 10; i++ {
		if got := m.BandForScore(m.PredictVector(rows[0])); got != band {
			t.Fatalf("banding not deterministic: %s then %s", band, got)
		}
	}
}

func TestPredictBandsConsistentlyWithThresholds(t *testing.T) {
	m, _ := fitSynthetic(t, 200, 1.0)

	score, err := m.Predict(map[string]float64{
		"wpm": 145.2, "pause_rate": 0.12, "ttr": 0.78, "jitter": 0.15, "articulation_rate": 2.1,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	band := m.BandForScore(score)
	if !models.ValidLoadBands[band] {
		t.Fatalf("band %q not in the valid set", band)
	}

	// The band must agree with the stored cut points, not just be valid.
	low, high := m.Thresholds()
	var want models.CognitiveLoadBand
	switch {
	case score <= low:
		want = models.BandLow
	case score <= high:
		want = models.BandModerate
	default:
		want = models.BandHigh
	}
	if band != want {
		t.Errorf("band = %s for score %f (cuts %f/%f), want %s", band, score, low, high, want)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m, rows := fitSynthetic(t, 200, 1.0)

	restored, err := FromSnapshot(m.Snapshot())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	for i, row := range rows {
		want := m.PredictVector(row)
		got := restored.PredictVector(row)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("row %d: restored model predicts %f, original %f", i, got, want)
		}
		if restored.BandForScore(got) != m.BandForScore(want) {
			t.Fatalf("row %d: restored model bands differently", i)
		}
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	m, _ := fitSynthetic(t, 100, 1.0)

	snap := m.Snapshot()
	snap.SchemaVersion = 99
	if _, err := FromSnapshot(snap); !errors.Is(err, models.ErrIncompatibleVersion) {
		t.Errorf("schema mismatch: got %v, want ErrIncompatibleVersion", err)
	}

	snap = m.Snapshot()
	snap.Weights = snap.Weights[:2]
	if _, err := FromSnapshot(snap); !errors.Is(err, models.ErrValidation) {
		t.Errorf("truncated weights: got %v, want ErrValidation", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	m, rows := fitSynthetic(t, 100, 1.0)
	store := snapshots.NewMemoryStore()

	if _, err := Load(store); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Load from empty store: got %v, want ErrNotFound", err)
	}

	if err := Save(store, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := m.PredictVector(rows[0])
	if got := loaded.PredictVector(rows[0]); math.Abs(got-want) > 1e-9 {
		t.Errorf("loaded model predicts %f, want %f", got, want)
	}
}

func TestSolve(t *testing.T) {
	// 2x + y = 5, x + 3y = 10 → x = 1, y = 3
	a := [][]float64{{2, 1}, {1, 3}}
	b := []float64{5, 10}
	x, err := solve(a, b)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(x[0]-1) > 1e-12 || math.Abs(x[1]-3) > 1e-12 {
		t.Errorf("solve = %v, want [1 3]", x)
	}

	singular := [][]float64{{1, 2}, {2, 4}}
	if _, err := solve(singular, []float64{1, 2}); !errors.Is(err, models.ErrNumerical) {
		t.Errorf("singular system: got %v, want ErrNumerical", err)
	}
}
