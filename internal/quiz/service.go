package quiz

import (
	"fmt"
	"log"

	"github.com/memorylane/backend/internal/models"
)

// Service composes the engine with long-term persistence: it serves the
// quiz operations and writes completed sessions out for progress tracking.
type Service struct {
	engine *Engine
	store  *Store
}

func NewService(engine *Engine, store *Store) *Service {
	return &Service{engine: engine, store: store}
}

func (s *Service) CreateSession(req models.CreateSessionRequest) (*models.QuizSession, error) {
	return s.engine.CreateSession(req)
}

func (s *Service) SubmitAnswer(req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	return s.engine.SubmitAnswer(req)
}

// CompleteSession finalizes the session and persists it. A failed write is
// logged but does not fail the completion: the caller still gets the final
// aggregates, and progress just misses one session.
func (s *Service) CompleteSession(sessionID string) (*models.QuizSession, *models.SessionSummary, error) {
	sess, err := s.engine.CompleteSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if s.store != nil {
		if err := s.store.SaveCompletedSession(*sess); err != nil {
			log.Printf("WARN: failed to persist session %s: %v", sessionID, err)
		}
	}
	summary := Summarize(*sess)
	return sess, &summary, nil
}

func (s *Service) SessionSummary(sessionID string) (*models.SessionSummary, error) {
	sess, err := s.engine.Session(sessionID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(*sess)
	return &summary, nil
}

func (s *Service) UserProgress(userID string) (*models.UserProgress, error) {
	return s.store.UserProgress(userID)
}

func (s *Service) CreateItem(item models.MemoryItem) (*models.MemoryItem, error) {
	if item.Title == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	if item.Category == "" {
		return nil, fmt.Errorf("%w: category is required", models.ErrValidation)
	}
	if item.Difficulty < models.DifficultyEasyLevel || item.Difficulty > models.DifficultyHardLevel {
		return nil, fmt.Errorf("%w: difficulty must be 1-3", models.ErrValidation)
	}
	return s.store.InsertItem(item)
}

func (s *Service) Item(id int64) (*models.MemoryItem, error) {
	return s.store.Item(id)
}

func (s *Service) Items(difficulty int, category string) ([]models.MemoryItem, error) {
	if category != "" {
		return s.store.ItemsByCategory(category)
	}
	return s.store.ItemsByDifficulty(difficulty)
}
