package models

import "time"

// Action is a review interval in seconds. The action set is fixed and
// totally ordered from shortest to longest.
type Action int

const (
	Interval30s Action = 30
	Interval1m  Action = 60
	Interval2m  Action = 120
	Interval4m  Action = 240
)

// Actions is the ordered action space of the scheduler.
var Actions = [4]Action{Interval30s, Interval1m, Interval2m, Interval4m}

// LongestInterval is the safety-override action.
const LongestInterval = Interval4m

// Seconds returns the interval length as a duration.
func (a Action) Seconds() time.Duration {
	return time.Duration(a) * time.Second
}

// QTableSnapshot is the versioned persisted form of the Q-table: a flat
// mapping from state key to action-value mapping, keyed by interval seconds.
const QTableSchemaVersion = 1

type QTableSnapshot struct {
	SchemaVersion int                           `json:"schema_version"`
	CreatedAt     time.Time                     `json:"created_at"`
	Values        map[string]map[string]float64 `json:"values"`
}

// ItemStats aggregates review outcomes for a single memory item.
type ItemStats struct {
	ItemID        int64   `json:"item_id"`
	TotalReviews  int     `json:"total_reviews"`
	Accuracy      float64 `json:"accuracy"`
	AvgLatencySec float64 `json:"avg_latency_sec"`
	AvgReward     float64 `json:"avg_reward"`
	CurrentStreak int     `json:"current_streak"`
}

// ── Request/Response Types ───────────────────────────────

type NextIntervalRequest struct {
	ItemID     int64  `json:"item_id"`
	Difficulty int    `json:"difficulty"`
	LoadBand   string `json:"load_band"`
}

type NextIntervalResponse struct {
	ItemID          int64 `json:"item_id"`
	IntervalSeconds int   `json:"interval_seconds"`
}

type RecordResultRequest struct {
	ItemID     int64   `json:"item_id"`
	Correct    bool    `json:"correct"`
	LatencySec float64 `json:"latency_sec"`
	Difficulty int     `json:"difficulty"`
	LoadBand   string  `json:"load_band"`
}

type RecordResultResponse struct {
	ItemID          int64   `json:"item_id"`
	Reward          float64 `json:"reward"`
	IntervalSeconds int     `json:"interval_seconds"`
}
