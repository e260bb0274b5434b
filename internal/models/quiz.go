package models

import "time"

// Difficulty levels for memory items. Level 0 is invalid.
const (
	DifficultyEasyLevel   = 1
	DifficultyMediumLevel = 2
	DifficultyHardLevel   = 3
)

// DifficultyLevelFromLabel maps a request label to a numeric level.
// "mixed" maps to 0 and means a weighted draw across all buckets.
func DifficultyLevelFromLabel(label string) (int, bool) {
	switch label {
	case "easy":
		return DifficultyEasyLevel, true
	case "medium":
		return DifficultyMediumLevel, true
	case "hard":
		return DifficultyHardLevel, true
	case "mixed":
		return 0, true
	}
	return 0, false
}

// MemoryItem is a single memory-training item. Owned by the item bank;
// read-only to the decision core.
type MemoryItem struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	FamilyMember string    `json:"family_member,omitempty"`
	ImagePath    string    `json:"image_path,omitempty"`
	Difficulty   int       `json:"difficulty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionStatus is the quiz session lifecycle state. COMPLETED is terminal.
type SessionStatus string

const (
	SessionCreated    SessionStatus = "created"
	SessionActive     SessionStatus = "active"
	SessionCompleting SessionStatus = "completing"
	SessionCompleted  SessionStatus = "completed"
)

// QuizOption is one answer choice presented with a question.
type QuizOption struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
	ItemID   int64  `json:"item_id"`
	Correct  bool   `json:"-"`
}

// QuizQuestion is one presented instance of a memory item within a session.
type QuizQuestion struct {
	QuestionID     string       `json:"question_id"`
	ItemID         int64        `json:"item_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	ImagePath      string       `json:"image_path,omitempty"`
	Difficulty     int          `json:"difficulty"`
	Options        []QuizOption `json:"options"`
	SelectedOption string       `json:"selected_option,omitempty"`
	Answered       bool         `json:"answered"`
	Correct        bool         `json:"correct"`
	ResponseTimeMS int          `json:"response_time_ms,omitempty"`
}

// QuizSession is the per-request session aggregate. It is mutated only
// through the quiz engine and becomes immutable once completed.
type QuizSession struct {
	SessionID   string         `json:"session_id"`
	UserID      string         `json:"user_id"`
	Difficulty  string         `json:"difficulty_level"`
	Status      SessionStatus  `json:"status"`
	Questions   []QuizQuestion `json:"questions"`
	Pending     int            `json:"pending_index"`
	Streak      int            `json:"streak"`
	Degraded    bool           `json:"degraded"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`

	// Finalized by complete_session.
	Accuracy      float64 `json:"accuracy"`
	AvgLatencySec float64 `json:"avg_latency_sec"`
}

// SessionSummary is the read-only analytics view over a completed session.
type SessionSummary struct {
	SessionID       string             `json:"session_id"`
	UserID          string             `json:"user_id"`
	TotalQuestions  int                `json:"total_questions"`
	Answered        int                `json:"answered"`
	CorrectAnswers  int                `json:"correct_answers"`
	Accuracy        float64            `json:"accuracy"`
	AvgLatencySec   float64            `json:"avg_latency_sec"`
	ByDifficulty    map[int]BucketStat `json:"by_difficulty"`
	Degraded        bool               `json:"degraded"`
	Insights        []string           `json:"insights"`
	Recommendations []string           `json:"recommendations"`
}

type BucketStat struct {
	Count         int     `json:"count"`
	Accuracy      float64 `json:"accuracy"`
	AvgLatencySec float64 `json:"avg_latency_sec"`
}

// UserProgress aggregates completed sessions for one user.
type UserProgress struct {
	UserID         string     `json:"user_id"`
	TotalSessions  int        `json:"total_sessions"`
	AvgAccuracy    float64    `json:"avg_accuracy"`
	AvgLatencySec  float64    `json:"avg_latency_sec"`
	RecentAccuracy float64    `json:"recent_accuracy"`
	Trend          string     `json:"trend"`
	LastSessionAt  *time.Time `json:"last_session_at,omitempty"`
}

// ── Request/Response Types ───────────────────────────────

type CreateSessionRequest struct {
	UserID          string `json:"user_id"`
	DifficultyLevel string `json:"difficulty_level"`
	NQuestions      int    `json:"n_questions"`
}

type SubmitAnswerRequest struct {
	SessionID      string `json:"session_id"`
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	ResponseTimeMS int    `json:"response_time_ms"`
}

type SubmitAnswerResponse struct {
	Correct          bool   `json:"correct"`
	CorrectOptionID  string `json:"correct_option_id"`
	NextIntervalSec  int    `json:"next_interval_sec"`
	NextQuestionID   string `json:"next_question_id,omitempty"`
	SessionStatus    string `json:"session_status"`
	CurrentStreak    int    `json:"current_streak"`
	DifficultyLevel  int    `json:"difficulty_level"`
	SessionDegraded  bool   `json:"session_degraded"`
	QuestionsPending int    `json:"questions_pending"`
}
