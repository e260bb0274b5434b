package speech

import (
	"encoding/json"
	"fmt"

	"github.com/memorylane/backend/internal/models"
	"github.com/memorylane/backend/internal/snapshots"
)

// SnapshotKey addresses the speech model record in the snapshot store.
const SnapshotKey = "speech_model"

// Snapshot returns the versioned persisted form of the model.
func (m *Model) Snapshot() models.SpeechSnapshot {
	return models.SpeechSnapshot{
		SchemaVersion: models.SpeechSchemaVersion,
		TrainedAt:     m.trainedAt,
		FeatureNames:  append([]string(nil), models.FeatureNames...),
		Weights:       append([]float64(nil), m.weights...),
		Bias:          m.bias,
		Means:         append([]float64(nil), m.means...),
		Stds:          append([]float64(nil), m.stds...),
		Lambda:        m.lambda,
		LowCut:        m.lowCut,
		HighCut:       m.highCut,
	}
}

// FromSnapshot rebuilds a model from a persisted record. A mismatched
// schema version fails closed with ErrIncompatibleVersion.
func FromSnapshot(snap models.SpeechSnapshot) (*Model, error) {
	if snap.SchemaVersion != models.SpeechSchemaVersion {
		return nil, fmt.Errorf("%w: speech snapshot schema %d, want %d",
			models.ErrIncompatibleVersion, snap.SchemaVersion, models.SpeechSchemaVersion)
	}
	p := len(models.FeatureNames)
	if len(snap.Weights) != p || len(snap.Means) != p || len(snap.Stds) != p {
		return nil, fmt.Errorf("%w: speech snapshot has %d weights, want %d",
			models.ErrValidation, len(snap.Weights), p)
	}
	return &Model{
		weights:   append([]float64(nil), snap.Weights...),
		bias:      snap.Bias,
		means:     append([]float64(nil), snap.Means...),
		stds:      append([]float64(nil), snap.Stds...),
		lambda:    snap.Lambda,
		lowCut:    snap.LowCut,
		highCut:   snap.HighCut,
		trainedAt: snap.TrainedAt,
	}, nil
}

// Save writes the model snapshot to the store under SnapshotKey.
func Save(store snapshots.Store, m *Model) error {
	payload, err := json.Marshal(m.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal speech snapshot: %w", err)
	}
	return store.Save(SnapshotKey, payload)
}

// Load reads and rebuilds the model from the store.
func Load(store snapshots.Store) (*Model, error) {
	payload, err := store.Load(SnapshotKey)
	if err != nil {
		return nil, err
	}
	var snap models.SpeechSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode speech snapshot: %v", models.ErrValidation, err)
	}
	return FromSnapshot(snap)
}
