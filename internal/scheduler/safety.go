package scheduler

import "github.com/memorylane/backend/internal/models"

// overrideLocked applies the safety filter to a selected action: when the
// load band is high and the item's two most recent results were both
// incorrect, the chosen action is unconditionally replaced with the longest
// interval, irrespective of learned values. A hard deterministic rule, not
// a learned behavior. Caller must hold mu.
func (s *Scheduler) overrideLocked(action models.Action, st State, itemID int64) models.Action {
	if st.LoadBand != models.BandHigh {
		return action
	}
	hist := s.recent[itemID]
	if len(hist) < 2 {
		return action
	}
	if !hist[len(hist)-1] && !hist[len(hist)-2] {
		return models.LongestInterval
	}
	return action
}
