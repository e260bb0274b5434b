// Package quiz implements the adaptive quiz session state machine: question
// issuance, answer recording, difficulty adaptation, and the handoff to the
// spaced-retrieval scheduler.
package quiz

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memorylane/backend/internal/models"
)

const (
	optionsPerQuestion = 4

	// Adaptive difficulty: rolling accuracy over each block of answered
	// questions, with a dead band so borderline performance doesn't
	// oscillate the bucket.
	adaptiveBlockSize = 4
	raiseThreshold    = 0.75
	lowerThreshold    = 0.25

	// fallbackInterval is the fixed default policy used when the scheduler
	// is unavailable.
	fallbackInterval = models.Interval1m
)

// EngineConfig configures an Engine. Bank is required; a nil Scheduler
// serves sessions in degraded mode. Rand is injectable for reproducible
// item draws and option shuffles.
type EngineConfig struct {
	Bank      ItemBank
	Scheduler ReviewScheduler
	Bands     BandSource
	Rand      *rand.Rand
}

// Engine owns all in-flight quiz sessions. Each session is mutated by at
// most one in-flight operation at a time: a second concurrent operation
// against the same session id is rejected with ErrState instead of racing.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*session

	bank  ItemBank
	sched ReviewScheduler
	bands BandSource
	rng   *rand.Rand
}

type session struct {
	mu   sync.Mutex
	data models.QuizSession

	// Adaptive difficulty bucket and rolling block counters.
	difficulty   int
	blockCount   int
	blockCorrect int
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		sessions: make(map[string]*session),
		bank:     cfg.Bank,
		sched:    cfg.Scheduler,
		bands:    cfg.Bands,
		rng:      cfg.Rand,
	}
}

// CreateSession draws items from the bank and returns a new session in
// ACTIVE state with the first question pending. Fixed difficulties draw
// from that bucket; "mixed" draws without replacement using the weighted
// bucket distribution. Fails with ErrNotFound if the bank cannot satisfy
// the requested count.
func (e *Engine) CreateSession(req models.CreateSessionRequest) (*models.QuizSession, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	if req.NQuestions <= 0 {
		return nil, fmt.Errorf("%w: n_questions must be positive", models.ErrValidation)
	}
	level, ok := models.DifficultyLevelFromLabel(req.DifficultyLevel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty level %q", models.ErrValidation, req.DifficultyLevel)
	}

	var buckets [3][]models.MemoryItem
	for i := 0; i < 3; i++ {
		items, err := e.bank.ItemsByDifficulty(i + 1)
		if err != nil {
			return nil, fmt.Errorf("load difficulty bucket %d: %w", i+1, err)
		}
		buckets[i] = items
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var items []models.MemoryItem
	if level == 0 {
		items = drawMixed(e.rng, buckets, req.NQuestions)
	} else {
		pool := append([]models.MemoryItem(nil), buckets[level-1]...)
		e.rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })
		if len(pool) > req.NQuestions {
			pool = pool[:req.NQuestions]
		}
		items = pool
	}
	if len(items) < req.NQuestions {
		return nil, fmt.Errorf("%w: bank has %d items for difficulty %q, need %d",
			models.ErrNotFound, len(items), req.DifficultyLevel, req.NQuestions)
	}

	// Distractor pool spans every bucket.
	var all []models.MemoryItem
	for _, b := range buckets {
		all = append(all, b...)
	}
	if len(all) < optionsPerQuestion {
		return nil, fmt.Errorf("%w: bank has %d items, need at least %d for option sets",
			models.ErrNotFound, len(all), optionsPerQuestion)
	}

	sessionID := uuid.NewString()
	questions := make([]models.QuizQuestion, len(items))
	for i, item := range items {
		questions[i] = models.QuizQuestion{
			QuestionID:  uuid.NewString(),
			ItemID:      item.ID,
			Title:       item.Title,
			Description: item.Description,
			ImagePath:   item.ImagePath,
			Difficulty:  item.Difficulty,
			Options:     e.buildOptions(item, all),
		}
	}

	startLevel := level
	if startLevel == 0 {
		startLevel = models.DifficultyMediumLevel
	}

	sess := &session{
		data: models.QuizSession{
			SessionID:  sessionID,
			UserID:     req.UserID,
			Difficulty: req.DifficultyLevel,
			Status:     models.SessionActive,
			Questions:  questions,
			StartedAt:  time.Now().UTC(),
		},
		difficulty: startLevel,
	}
	e.sessions[sessionID] = sess

	out := cloneSession(&sess.data)
	return &out, nil
}

// buildOptions assembles one correct option plus distractors drawn from
// the bank pool, shuffled. Caller must hold e.mu (for the rng).
func (e *Engine) buildOptions(item models.MemoryItem, pool []models.MemoryItem) []models.QuizOption {
	options := []models.QuizOption{{
		OptionID: fmt.Sprintf("opt_%d", item.ID),
		Text:     item.Title,
		ItemID:   item.ID,
		Correct:  true,
	}}

	perm := e.rng.Perm(len(pool))
	for _, idx := range perm {
		if len(options) == optionsPerQuestion {
			break
		}
		d := pool[idx]
		if d.ID == item.ID {
			continue
		}
		options = append(options, models.QuizOption{
			OptionID: fmt.Sprintf("opt_%d", d.ID),
			Text:     d.Title,
			ItemID:   d.ID,
		})
	}
	e.rng.Shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })
	return options
}

// SubmitAnswer records the answer for the currently pending question,
// updates the streak, hands the outcome to the scheduler, and advances the
// session. Every failure path leaves the session unmutated.
func (e *Engine) SubmitAnswer(req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	sess, err := e.lookup(req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.mu.TryLock() {
		return nil, fmt.Errorf("%w: session %s has an operation in flight", models.ErrState, req.SessionID)
	}
	defer sess.mu.Unlock()

	data := &sess.data
	if data.Status != models.SessionActive {
		return nil, fmt.Errorf("%w: session %s is %s, not active", models.ErrState, req.SessionID, data.Status)
	}
	if data.Pending >= len(data.Questions) {
		return nil, fmt.Errorf("%w: session %s has no pending question", models.ErrState, req.SessionID)
	}
	q := &data.Questions[data.Pending]
	if q.QuestionID != req.QuestionID {
		return nil, fmt.Errorf("%w: question %s is not pending (pending: %s)",
			models.ErrState, req.QuestionID, q.QuestionID)
	}
	if req.ResponseTimeMS < 0 {
		return nil, fmt.Errorf("%w: response_time_ms must be non-negative", models.ErrValidation)
	}

	var selected *models.QuizOption
	var correctID string
	for i := range q.Options {
		if q.Options[i].Correct {
			correctID = q.Options[i].OptionID
		}
		if q.Options[i].OptionID == req.SelectedOption {
			selected = &q.Options[i]
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: option %q is not part of question %s",
			models.ErrValidation, req.SelectedOption, q.QuestionID)
	}

	// All checks passed; mutate.
	q.SelectedOption = selected.OptionID
	q.Answered = true
	q.Correct = selected.Correct
	q.ResponseTimeMS = req.ResponseTimeMS

	if q.Correct {
		data.Streak++
	} else {
		data.Streak = 0
	}

	interval := e.scheduleReview(data, q)

	sess.blockCount++
	if q.Correct {
		sess.blockCorrect++
	}
	if sess.blockCount >= adaptiveBlockSize {
		prev := sess.difficulty
		sess.adaptDifficulty()
		if sess.difficulty != prev && data.Pending+1 < len(data.Questions) {
			e.retargetRemaining(data, data.Pending+1, sess.difficulty)
		}
	}

	resp := &models.SubmitAnswerResponse{
		Correct:         q.Correct,
		CorrectOptionID: correctID,
		NextIntervalSec: int(interval),
		CurrentStreak:   data.Streak,
		DifficultyLevel: sess.difficulty,
		SessionDegraded: data.Degraded,
	}

	data.Pending++
	if data.Pending < len(data.Questions) {
		resp.NextQuestionID = data.Questions[data.Pending].QuestionID
		resp.QuestionsPending = len(data.Questions) - data.Pending
	} else {
		data.Status = models.SessionCompleting
	}
	resp.SessionStatus = string(data.Status)
	return resp, nil
}

// scheduleReview runs the scheduler's choose/record pair for one answered
// question. Scheduler unavailability never blocks the quiz flow: the
// session is flagged degraded and the fixed default interval applies.
func (e *Engine) scheduleReview(data *models.QuizSession, q *models.QuizQuestion) models.Action {
	band := models.BandModerate
	if e.bands != nil {
		band = e.bands.CurrentBand(data.UserID)
	}
	if e.sched == nil {
		data.Degraded = true
		return fallbackInterval
	}
	latencySec := float64(q.ResponseTimeMS) / 1000.0
	action, _, err := e.sched.ReviewOutcome(q.ItemID, q.Difficulty, q.Correct, latencySec, band)
	if err != nil {
		data.Degraded = true
		return fallbackInterval
	}
	return action
}

// retargetRemaining re-draws the not-yet-presented questions from the new
// difficulty bucket, skipping items already used in the session. Best
// effort: a question keeps its current item when the bucket cannot supply
// a replacement.
func (e *Engine) retargetRemaining(data *models.QuizSession, firstRemaining, level int) {
	var buckets [3][]models.MemoryItem
	for i := 0; i < 3; i++ {
		items, err := e.bank.ItemsByDifficulty(i + 1)
		if err != nil {
			return
		}
		buckets[i] = items
	}

	used := make(map[int64]bool, len(data.Questions))
	for _, q := range data.Questions {
		used[q.ItemID] = true
	}

	var pool []models.MemoryItem
	for _, item := range buckets[level-1] {
		if !used[item.ID] {
			pool = append(pool, item)
		}
	}
	var all []models.MemoryItem
	for _, b := range buckets {
		all = append(all, b...)
	}
	if len(all) < optionsPerQuestion {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })

	for i := firstRemaining; i < len(data.Questions) && len(pool) > 0; i++ {
		item := pool[0]
		pool = pool[1:]
		data.Questions[i] = models.QuizQuestion{
			QuestionID:  data.Questions[i].QuestionID,
			ItemID:      item.ID,
			Title:       item.Title,
			Description: item.Description,
			ImagePath:   item.ImagePath,
			Difficulty:  item.Difficulty,
			Options:     e.buildOptions(item, all),
		}
	}
}

// adaptDifficulty applies the block rule: raise the bucket at high rolling
// accuracy, lower it at low, hold inside the dead band. Caller must hold
// the session lock.
func (s *session) adaptDifficulty() {
	accuracy := float64(s.blockCorrect) / float64(s.blockCount)
	switch {
	case accuracy >= raiseThreshold && s.difficulty < models.DifficultyHardLevel:
		s.difficulty++
	case accuracy <= lowerThreshold && s.difficulty > models.DifficultyEasyLevel:
		s.difficulty--
	}
	s.blockCount = 0
	s.blockCorrect = 0
}

// CompleteSession finalizes aggregate accuracy and average latency and
// transitions to COMPLETED. Further submissions against the id fail.
func (e *Engine) CompleteSession(sessionID string) (*models.QuizSession, error) {
	sess, err := e.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.mu.TryLock() {
		return nil, fmt.Errorf("%w: session %s has an operation in flight", models.ErrState, sessionID)
	}
	defer sess.mu.Unlock()

	data := &sess.data
	if data.Status == models.SessionCompleted {
		return nil, fmt.Errorf("%w: session %s already completed", models.ErrState, sessionID)
	}

	answered := 0
	correct := 0
	totalLatency := 0.0
	for _, q := range data.Questions {
		if !q.Answered {
			continue
		}
		answered++
		if q.Correct {
			correct++
		}
		totalLatency += float64(q.ResponseTimeMS) / 1000.0
	}
	if answered > 0 {
		data.Accuracy = float64(correct) / float64(answered)
		data.AvgLatencySec = totalLatency / float64(answered)
	}

	now := time.Now().UTC()
	data.Status = models.SessionCompleted
	data.CompletedAt = &now

	out := cloneSession(data)
	return &out, nil
}

// Session returns a copy of the session for read-only views.
func (e *Engine) Session(sessionID string) (*models.QuizSession, error) {
	sess, err := e.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := cloneSession(&sess.data)
	return &out, nil
}

func (e *Engine) lookup(sessionID string) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, sessionID)
	}
	return sess, nil
}

func cloneSession(s *models.QuizSession) models.QuizSession {
	out := *s
	out.Questions = make([]models.QuizQuestion, len(s.Questions))
	copy(out.Questions, s.Questions)
	for i := range out.Questions {
		opts := make([]models.QuizOption, len(s.Questions[i].Options))
		copy(opts, s.Questions[i].Options)
		out.Questions[i].Options = opts
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
