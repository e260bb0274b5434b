// Package scheduler implements the tabular Q-learning spaced-retrieval
// policy: epsilon-greedy action selection over fixed review intervals, the
// standard value update rule, and a hard safety override for distressed
// users.
package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/memorylane/backend/internal/models"
)

// Config configures a Scheduler. Zero values produce the defaults used by
// the offline simulation: alpha 0.1, gamma 0.9, epsilon 0.1.
type Config struct {
	LearningRate float64
	Discount     float64
	Epsilon      float64
	// Rand is the exploration source. Injectable so tests can fix the seed
	// and assert exact action sequences. Nil seeds from the clock.
	Rand *rand.Rand
}

// Scheduler is the tabular Q-learning policy. All table reads and
// read-modify-write updates are serialized behind one mutex, so updates to
// a single entry are atomic with respect to each other; none of its
// operations perform blocking I/O, so the lock is short-lived.
type Scheduler struct {
	mu      sync.Mutex
	alpha   float64
	gamma   float64
	epsilon float64
	rng     *rand.Rand

	table map[string]*[len(models.Actions)]float64

	// Per-item review memory: recent correctness (for the safety filter),
	// running streak and latency bin (for state encoding), and aggregates.
	recent map[int64][]bool
	stats  map[int64]*itemMemory
}

type itemMemory struct {
	reviews      int
	correct      int
	totalLatency float64
	totalReward  float64
	streak       int
	latencyBin   int
}

func New(cfg Config) *Scheduler {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Discount == 0 {
		cfg.Discount = 0.9
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 0.1
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		alpha:   cfg.LearningRate,
		gamma:   cfg.Discount,
		epsilon: cfg.Epsilon,
		rng:     cfg.Rand,
		table:   make(map[string]*[len(models.Actions)]float64),
		recent:  make(map[int64][]bool),
		stats:   make(map[int64]*itemMemory),
	}
}

// entry returns the value row for a state, zero-initialized on first
// encounter. Caller must hold mu.
func (s *Scheduler) entry(st State) *[len(models.Actions)]float64 {
	key := st.Key()
	row, ok := s.table[key]
	if !ok {
		row = &[len(models.Actions)]float64{}
		s.table[key] = row
	}
	return row
}

// ChooseAction selects a review interval for the state: with probability
// epsilon a uniform random action, otherwise the argmax of the value row
// with ties broken deterministically toward the shortest interval. The
// safety override is applied after selection, before the action is
// returned.
func (s *Scheduler) ChooseAction(st State, itemID int64) models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chooseLocked(st, itemID)
}

func (s *Scheduler) chooseLocked(st State, itemID int64) models.Action {
	var action models.Action
	if s.rng.Float64() < s.epsilon {
		action = models.Actions[s.rng.Intn(len(models.Actions))]
	} else {
		row := s.entry(st)
		best := 0
		for i := 1; i < len(row); i++ {
			// Strict inequality keeps ties on the shortest interval.
			if row[i] > row[best] {
				best = i
			}
		}
		action = models.Actions[best]
	}
	return s.overrideLocked(action, st, itemID)
}

// RecordResult applies the Q-learning update
//
//	Q(s,a) ← Q(s,a) + α·[r + γ·max_a' Q(s',a') − Q(s,a)]
//
// This is the only path that mutates the table. A non-finite reward or an
// action outside the fixed set is rejected with ErrValidation; the write
// itself is checked so the table can never hold NaN or ±Inf.
func (s *Scheduler) RecordResult(st State, action models.Action, reward float64, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(st, action, reward, next)
}

func (s *Scheduler) recordLocked(st State, action models.Action, reward float64, next State) error {
	idx, ok := actionIndex(action)
	if !ok {
		return fmt.Errorf("%w: unknown action %d", models.ErrValidation, action)
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: non-finite reward %f", models.ErrValidation, reward)
	}

	row := s.entry(st)
	nextRow := s.entry(next)
	maxNext := nextRow[0]
	for _, v := range nextRow[1:] {
		if v > maxNext {
			maxNext = v
		}
	}

	updated := row[idx] + s.alpha*(reward+s.gamma*maxNext-row[idx])
	if math.IsNaN(updated) || math.IsInf(updated, 0) {
		return fmt.Errorf("%w: update produced non-finite value %f", models.ErrNumerical, updated)
	}
	row[idx] = updated
	return nil
}

// NoteOutcome records the correctness of the latest review of an item for
// the safety filter's recent-results window.
func (s *Scheduler) NoteOutcome(itemID int64, correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteLocked(itemID, correct)
}

func (s *Scheduler) noteLocked(itemID int64, correct bool) {
	hist := append(s.recent[itemID], correct)
	if len(hist) > 2 {
		hist = hist[len(hist)-2:]
	}
	s.recent[itemID] = hist
}

// NextInterval answers a one-off scheduling query: which interval to use
// for this item right now, given its remembered streak/latency and the
// current load band. It does not mutate the table.
func (s *Scheduler) NextInterval(itemID int64, difficulty int, band models.CognitiveLoadBand) models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(itemID, difficulty, band)
	return s.chooseLocked(st, itemID)
}

// ReviewOutcome processes one observed review result end to end: computes
// the shaped reward, advances the item's streak and latency memory, chooses
// the next interval under the safety filter, and applies the value update.
// The whole sequence runs atomically under the scheduler lock.
func (s *Scheduler) ReviewOutcome(itemID int64, difficulty int, correct bool, latencySec float64, band models.CognitiveLoadBand) (models.Action, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.stateLocked(itemID, difficulty, band)
	reward := Reward(correct, latencySec, difficulty, prev.Streak)

	mem := s.memory(itemID)
	if correct {
		mem.streak = clampInt(mem.streak+1, 0, MaxStreakBin)
	} else {
		mem.streak = 0
	}
	mem.latencyBin = LatencyBin(latencySec)
	mem.reviews++
	if correct {
		mem.correct++
	}
	mem.totalLatency += latencySec
	mem.totalReward += reward

	s.noteLocked(itemID, correct)

	next := EncodeState(difficulty, mem.streak, mem.latencyBin, band)
	action := s.chooseLocked(next, itemID)
	if err := s.recordLocked(prev, action, reward, next); err != nil {
		return 0, 0, err
	}
	return action, reward, nil
}

// ItemStats reports the per-item aggregates, or false if the item has
// never been reviewed.
func (s *Scheduler) ItemStats(itemID int64) (models.ItemStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem, ok := s.stats[itemID]
	if !ok || mem.reviews == 0 {
		return models.ItemStats{}, false
	}
	return models.ItemStats{
		ItemID:        itemID,
		TotalReviews:  mem.reviews,
		Accuracy:      float64(mem.correct) / float64(mem.reviews),
		AvgLatencySec: mem.totalLatency / float64(mem.reviews),
		AvgReward:     mem.totalReward / float64(mem.reviews),
		CurrentStreak: mem.streak,
	}, true
}

// ItemState returns the remembered streak and latency bin for an item.
func (s *Scheduler) ItemState(itemID int64) (streak, latencyBin int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem := s.memory(itemID)
	return mem.streak, mem.latencyBin
}

func (s *Scheduler) stateLocked(itemID int64, difficulty int, band models.CognitiveLoadBand) State {
	mem := s.memory(itemID)
	return EncodeState(difficulty, mem.streak, mem.latencyBin, band)
}

func (s *Scheduler) memory(itemID int64) *itemMemory {
	mem, ok := s.stats[itemID]
	if !ok {
		// Fresh items start mid-latency, matching the offline simulation.
		mem = &itemMemory{latencyBin: 1}
		s.stats[itemID] = mem
	}
	return mem
}

func actionIndex(a models.Action) (int, bool) {
	for i, v := range models.Actions {
		if v == a {
			return i, true
		}
	}
	return 0, false
}
