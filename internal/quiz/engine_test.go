package quiz

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/memorylane/backend/internal/models"
	"github.com/memorylane/backend/internal/scheduler"
)

type stubBank struct {
	items []models.MemoryItem
}

func (b *stubBank) Item(id int64) (*models.MemoryItem, error) {
	for i := range b.items {
		if b.items[i].ID == id {
			return &b.items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: item %d", models.ErrNotFound, id)
}

func (b *stubBank) ItemsByDifficulty(level int) ([]models.MemoryItem, error) {
	var out []models.MemoryItem
	for _, item := range b.items {
		if item.Difficulty == level {
			out = append(out, item)
		}
	}
	return out, nil
}

func (b *stubBank) ItemsByCategory(category string) ([]models.MemoryItem, error) {
	var out []models.MemoryItem
	for _, item := range b.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubScheduler struct {
	calls  int
	action models.Action
	err    error
}

func (s *stubScheduler) ReviewOutcome(itemID int64, difficulty int, correct bool, latencySec float64, band models.CognitiveLoadBand) (models.Action, float64, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.action, 0.5, nil
}

type stubBands struct {
	band models.CognitiveLoadBand
}

func (s *stubBands) CurrentBand(userID string) models.CognitiveLoadBand {
	return s.band
}

func testBank() *stubBank {
	bank := &stubBank{}
	add := func(id int64, difficulty int) {
		bank.items = append(bank.items, models.MemoryItem{
			ID:         id,
			Title:      fmt.Sprintf("Memory %d", id),
			Category:   "family",
			Difficulty: difficulty,
		})
	}
	for id := int64(1); id <= 6; id++ {
		add(id, 1)
	}
	for id := int64(11); id <= 18; id++ {
		add(id, 2)
	}
	for id := int64(21); id <= 26; id++ {
		add(id, 3)
	}
	return bank
}

func testEngine(sched ReviewScheduler) *Engine {
	return NewEngine(EngineConfig{
		Bank:      testBank(),
		Scheduler: sched,
		Bands:     &stubBands{band: models.BandModerate},
		Rand:      rand.New(rand.NewSource(1)),
	})
}

// answer submits the pending question, choosing the correct or an incorrect
// option, and returns the response.
func answer(t *testing.T, e *Engine, sessionID string, correct bool, responseMS int) *models.SubmitAnswerResponse {
	t.Helper()
	sess, err := e.Session(sessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	q := sess.Questions[sess.Pending]

	var optionID string
	for _, opt := range q.Options {
		if opt.Correct == correct {
			optionID = opt.OptionID
			break
		}
	}
	if optionID == "" {
		t.Fatalf("question %s has no option with correct=%v", q.QuestionID, correct)
	}

	resp, err := e.SubmitAnswer(models.SubmitAnswerRequest{
		SessionID:      sessionID,
		QuestionID:     q.QuestionID,
		SelectedOption: optionID,
		ResponseTimeMS: responseMS,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	return resp
}

func TestCreateSessionMixedDrawsDistinctItems(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval2m})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "mixed", NQuestions: 3,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Status != models.SessionActive {
		t.Errorf("status = %s, want active", sess.Status)
	}
	if len(sess.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(sess.Questions))
	}

	seen := map[int64]bool{}
	for _, q := range sess.Questions {
		if seen[q.ItemID] {
			t.Errorf("item %d drawn twice", q.ItemID)
		}
		seen[q.ItemID] = true
		if len(q.Options) != optionsPerQuestion {
			t.Errorf("question %s has %d options, want %d", q.QuestionID, len(q.Options), optionsPerQuestion)
		}
		correctCount := 0
		for _, opt := range q.Options {
			if opt.Correct {
				correctCount++
			}
		}
		if correctCount != 1 {
			t.Errorf("question %s has %d correct options, want 1", q.QuestionID, correctCount)
		}
	}
}

func TestCreateSessionValidation(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval1m})

	_, err := e.CreateSession(models.CreateSessionRequest{DifficultyLevel: "mixed", NQuestions: 3})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("missing user: got %v, want ErrValidation", err)
	}

	_, err = e.CreateSession(models.CreateSessionRequest{UserID: "u1", DifficultyLevel: "extreme", NQuestions: 3})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("bad difficulty: got %v, want ErrValidation", err)
	}

	_, err = e.CreateSession(models.CreateSessionRequest{UserID: "u1", DifficultyLevel: "mixed", NQuestions: 0})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("zero questions: got %v, want ErrValidation", err)
	}

	_, err = e.CreateSession(models.CreateSessionRequest{UserID: "u1", DifficultyLevel: "medium", NQuestions: 20})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("bank too small: got %v, want ErrNotFound", err)
	}
}

func TestFullSessionFlow(t *testing.T) {
	// Real scheduler so the value table observably learns from the session.
	sched := scheduler.New(scheduler.Config{Epsilon: -1, Rand: rand.New(rand.NewSource(2))})
	e := NewEngine(EngineConfig{
		Bank:      testBank(),
		Scheduler: sched,
		Bands:     &stubBands{band: models.BandModerate},
		Rand:      rand.New(rand.NewSource(3)),
	})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "mixed", NQuestions: 3,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for i := 0; i < 3; i++ {
		resp := answer(t, e, sess.SessionID, true, 2000)
		if !resp.Correct {
			t.Fatalf("answer %d: marked incorrect", i)
		}
		if resp.CurrentStreak != i+1 {
			t.Errorf("answer %d: streak = %d, want %d", i, resp.CurrentStreak, i+1)
		}
		if resp.SessionDegraded {
			t.Errorf("answer %d: session degraded with a healthy scheduler", i)
		}
	}

	done, err := e.CompleteSession(sess.SessionID)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if done.Status != models.SessionCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if math.Abs(done.Accuracy-1.0) > 1e-12 {
		t.Errorf("accuracy = %f, want 1.0", done.Accuracy)
	}
	if math.Abs(done.AvgLatencySec-2.0) > 1e-12 {
		t.Errorf("avg latency = %f, want 2.0", done.AvgLatencySec)
	}
	if done.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// The session's reviews must have landed in the value table.
	if len(sched.Snapshot().Values) == 0 {
		t.Error("scheduler table empty after a full session")
	}

	// Terminal state: no further submissions or completions.
	_, err = e.SubmitAnswer(models.SubmitAnswerRequest{
		SessionID:  sess.SessionID,
		QuestionID: sess.Questions[0].QuestionID,
	})
	if !errors.Is(err, models.ErrState) {
		t.Errorf("submit after completion: got %v, want ErrState", err)
	}
	if _, err := e.CompleteSession(sess.SessionID); !errors.Is(err, models.ErrState) {
		t.Errorf("double completion: got %v, want ErrState", err)
	}
}

func TestSubmitAnswerRejectsStaleQuestion(t *testing.T) {
	stub := &stubScheduler{action: models.Interval1m}
	e := testEngine(stub)

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "mixed", NQuestions: 3,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Second question is not the pending one.
	_, err = e.SubmitAnswer(models.SubmitAnswerRequest{
		SessionID:      sess.SessionID,
		QuestionID:     sess.Questions[1].QuestionID,
		SelectedOption: sess.Questions[1].Options[0].OptionID,
		ResponseTimeMS: 1000,
	})
	if !errors.Is(err, models.ErrState) {
		t.Fatalf("stale question: got %v, want ErrState", err)
	}

	// The rejection must not have mutated anything.
	after, _ := e.Session(sess.SessionID)
	if after.Pending != 0 || after.Questions[1].Answered {
		t.Error("rejected submission mutated session state")
	}
	if stub.calls != 0 {
		t.Errorf("scheduler called %d times on a rejected submission", stub.calls)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval1m})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "mixed", NQuestions: 3,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	pending := sess.Questions[0]

	_, err = e.SubmitAnswer(models.SubmitAnswerRequest{
		SessionID:      sess.SessionID,
		QuestionID:     pending.QuestionID,
		SelectedOption: "opt_nope",
		ResponseTimeMS: 1000,
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown option: got %v, want ErrValidation", err)
	}

	_, err = e.SubmitAnswer(models.SubmitAnswerRequest{
		SessionID:      sess.SessionID,
		QuestionID:     pending.QuestionID,
		SelectedOption: pending.Options[0].OptionID,
		ResponseTimeMS: -5,
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("negative latency: got %v, want ErrValidation", err)
	}

	_, err = e.SubmitAnswer(models.SubmitAnswerRequest{SessionID: "missing"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown session: got %v, want ErrNotFound", err)
	}
}

func TestNilSchedulerDegradesSession(t *testing.T) {
	e := NewEngine(EngineConfig{
		Bank: testBank(),
		Rand: rand.New(rand.NewSource(4)),
	})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "easy", NQuestions: 2,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resp := answer(t, e, sess.SessionID, true, 1500)
	if !resp.SessionDegraded {
		t.Error("session not flagged degraded without a scheduler")
	}
	if resp.NextIntervalSec != int(fallbackInterval) {
		t.Errorf("interval = %d, want fallback %d", resp.NextIntervalSec, int(fallbackInterval))
	}
}

func TestFailingSchedulerDegradesSession(t *testing.T) {
	stub := &stubScheduler{err: errors.New("table corrupted")}
	e := testEngine(stub)

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "easy", NQuestions: 2,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resp := answer(t, e, sess.SessionID, true, 1500)
	if !resp.SessionDegraded {
		t.Error("session not flagged degraded on scheduler failure")
	}
	if resp.NextIntervalSec != int(fallbackInterval) {
		t.Errorf("interval = %d, want fallback %d", resp.NextIntervalSec, int(fallbackInterval))
	}
	if resp.SessionStatus != string(models.SessionActive) {
		t.Errorf("session status = %s, submission must still advance", resp.SessionStatus)
	}
}

func TestAdaptiveDifficultyRaises(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval1m})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "medium", NQuestions: 8,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var resp *models.SubmitAnswerResponse
	for i := 0; i < adaptiveBlockSize; i++ {
		resp = answer(t, e, sess.SessionID, true, 1200)
	}
	if resp.DifficultyLevel != models.DifficultyHardLevel {
		t.Fatalf("difficulty after perfect block = %d, want %d", resp.DifficultyLevel, models.DifficultyHardLevel)
	}

	// The unanswered questions must have been re-drawn from the hard bucket.
	after, _ := e.Session(sess.SessionID)
	for i := adaptiveBlockSize; i < len(after.Questions); i++ {
		if after.Questions[i].Difficulty != models.DifficultyHardLevel {
			t.Errorf("question %d difficulty = %d after raise, want %d",
				i, after.Questions[i].Difficulty, models.DifficultyHardLevel)
		}
	}
}

func TestAdaptiveDifficultyLowers(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval1m})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "medium", NQuestions: 8,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var resp *models.SubmitAnswerResponse
	for i := 0; i < adaptiveBlockSize; i++ {
		resp = answer(t, e, sess.SessionID, false, 4000)
	}
	if resp.DifficultyLevel != models.DifficultyEasyLevel {
		t.Fatalf("difficulty after failed block = %d, want %d", resp.DifficultyLevel, models.DifficultyEasyLevel)
	}

	after, _ := e.Session(sess.SessionID)
	for i := adaptiveBlockSize; i < len(after.Questions); i++ {
		if after.Questions[i].Difficulty != models.DifficultyEasyLevel {
			t.Errorf("question %d difficulty = %d after lower, want %d",
				i, after.Questions[i].Difficulty, models.DifficultyEasyLevel)
		}
	}
}

func TestAdaptiveDifficultyDeadBand(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval1m})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "medium", NQuestions: 8,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// 50% block accuracy sits inside the dead band: no change.
	answer(t, e, sess.SessionID, true, 1500)
	answer(t, e, sess.SessionID, false, 1500)
	answer(t, e, sess.SessionID, true, 1500)
	resp := answer(t, e, sess.SessionID, false, 1500)

	if resp.DifficultyLevel != models.DifficultyMediumLevel {
		t.Errorf("difficulty after mixed block = %d, want unchanged %d",
			resp.DifficultyLevel, models.DifficultyMediumLevel)
	}
}

func TestConcurrentOperationRejected(t *testing.T) {
	e := testEngine(&stubScheduler{action: models.Interval1m})

	sess, err := e.CreateSession(models.CreateSessionRequest{
		UserID: "u1", DifficultyLevel: "easy", NQuestions: 2,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Simulate an in-flight operation holding the session.
	internal := e.sessions[sess.SessionID]
	internal.mu.Lock()
	defer internal.mu.Unlock()

	_, err = e.SubmitAnswer(models.SubmitAnswerRequest{
		SessionID:      sess.SessionID,
		QuestionID:     sess.Questions[0].QuestionID,
		SelectedOption: sess.Questions[0].Options[0].OptionID,
		ResponseTimeMS: 1000,
	})
	if !errors.Is(err, models.ErrState) {
		t.Errorf("concurrent submit: got %v, want ErrState", err)
	}

	if _, err := e.CompleteSession(sess.SessionID); !errors.Is(err, models.ErrState) {
		t.Errorf("concurrent complete: got %v, want ErrState", err)
	}
}
