package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/memorylane/backend/internal/models"
	"github.com/memorylane/backend/internal/snapshots"
)

// SnapshotKey addresses the Q-table record in the snapshot store.
const SnapshotKey = "qtable"

// Snapshot captures the value table as a flat state-key → action-value
// mapping. Reloading a snapshot reproduces the exact mapping saved.
func (s *Scheduler) Snapshot() models.QTableSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]map[string]float64, len(s.table))
	for key, row := range s.table {
		actions := make(map[string]float64, len(models.Actions))
		for i, a := range models.Actions {
			actions[strconv.Itoa(int(a))] = row[i]
		}
		values[key] = actions
	}
	return models.QTableSnapshot{
		SchemaVersion: models.QTableSchemaVersion,
		CreatedAt:     time.Now().UTC(),
		Values:        values,
	}
}

// Restore replaces the value table with a persisted snapshot. Snapshots
// from concurrent writers resolve last-writer-wins. A schema mismatch or a
// non-finite stored value fails closed without touching the current table.
func (s *Scheduler) Restore(snap models.QTableSnapshot) error {
	if snap.SchemaVersion != models.QTableSchemaVersion {
		return fmt.Errorf("%w: qtable snapshot schema %d, want %d",
			models.ErrIncompatibleVersion, snap.SchemaVersion, models.QTableSchemaVersion)
	}

	table := make(map[string]*[len(models.Actions)]float64, len(snap.Values))
	for key, actions := range snap.Values {
		row := &[len(models.Actions)]float64{}
		for i, a := range models.Actions {
			v, ok := actions[strconv.Itoa(int(a))]
			if !ok {
				return fmt.Errorf("%w: state %q missing action %d", models.ErrValidation, key, a)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: state %q has non-finite value for action %d", models.ErrValidation, key, a)
			}
			row[i] = v
		}
		table[key] = row
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	return nil
}

// Checkpoint writes the current table to the store under SnapshotKey.
func (s *Scheduler) Checkpoint(store snapshots.Store) error {
	payload, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal qtable snapshot: %w", err)
	}
	return store.Save(SnapshotKey, payload)
}

// LoadInto restores a previously checkpointed table, if one exists. A
// missing snapshot is not an error; the table simply starts empty.
func LoadInto(store snapshots.Store, s *Scheduler) error {
	payload, err := store.Load(SnapshotKey)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap models.QTableSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("%w: decode qtable snapshot: %v", models.ErrValidation, err)
	}
	return s.Restore(snap)
}
