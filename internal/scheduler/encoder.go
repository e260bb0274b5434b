package scheduler

import (
	"fmt"

	"github.com/memorylane/backend/internal/models"
)

// Streak and latency bin caps. The state space stays finite and small:
// 3 difficulties × 4 streak bins × 3 latency bins × 3 bands = 108 states.
const (
	MaxStreakBin  = 3
	MaxLatencyBin = 2
)

// State is the discrete scheduler state: the key into the value table.
type State struct {
	Difficulty int // 1..3
	Streak     int // 0..MaxStreakBin
	LatencyBin int // 0..MaxLatencyBin
	LoadBand   models.CognitiveLoadBand
}

// EncodeState clamps the raw components into their bins.
func EncodeState(difficulty, streak, latencyBin int, band models.CognitiveLoadBand) State {
	return State{
		Difficulty: clampInt(difficulty, 1, 3),
		Streak:     clampInt(streak, 0, MaxStreakBin),
		LatencyBin: clampInt(latencyBin, 0, MaxLatencyBin),
		LoadBand:   band,
	}
}

// LatencyBin discretizes a response latency in seconds.
func LatencyBin(latencySec float64) int {
	switch {
	case latencySec <= 2.0:
		return 0
	case latencySec <= 5.0:
		return 1
	default:
		return 2
	}
}

// Key returns the stable string form used in the value table and its
// persisted snapshot.
func (s State) Key() string {
	return fmt.Sprintf("d%d:s%d:l%d:%s", s.Difficulty, s.Streak, s.LatencyBin, s.LoadBand)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
