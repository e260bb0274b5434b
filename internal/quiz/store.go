package quiz

import (
	"database/sql"
	"fmt"

	"github.com/memorylane/backend/internal/models"
)

// Store is the Postgres-backed item bank and the long-term record of
// completed sessions. Live sessions stay in the engine; only completed
// ones are written out.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Item Bank ────────────────────────────────────────────

func (s *Store) Item(id int64) (*models.MemoryItem, error) {
	var item models.MemoryItem
	err := s.db.QueryRow(
		`SELECT id, title, description, category, family_member, image_path, difficulty, created_at
		 FROM memory_items WHERE id = $1`, id,
	).Scan(&item.ID, &item.Title, &item.Description, &item.Category,
		&item.FamilyMember, &item.ImagePath, &item.Difficulty, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: memory item %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory item: %w", err)
	}
	return &item, nil
}

func (s *Store) ItemsByDifficulty(level int) ([]models.MemoryItem, error) {
	return s.queryItems(
		`SELECT id, title, description, category, family_member, image_path, difficulty, created_at
		 FROM memory_items WHERE difficulty = $1 ORDER BY id`, level)
}

func (s *Store) ItemsByCategory(category string) ([]models.MemoryItem, error) {
	return s.queryItems(
		`SELECT id, title, description, category, family_member, image_path, difficulty, created_at
		 FROM memory_items WHERE category = $1 ORDER BY id`, category)
}

func (s *Store) queryItems(query string, arg interface{}) ([]models.MemoryItem, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query memory items: %w", err)
	}
	defer rows.Close()

	var items []models.MemoryItem
	for rows.Next() {
		var item models.MemoryItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Category,
			&item.FamilyMember, &item.ImagePath, &item.Difficulty, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) InsertItem(item models.MemoryItem) (*models.MemoryItem, error) {
	var out models.MemoryItem
	err := s.db.QueryRow(
		`INSERT INTO memory_items (title, description, category, family_member, image_path, difficulty)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, title, description, category, family_member, image_path, difficulty, created_at`,
		item.Title, item.Description, item.Category, item.FamilyMember, item.ImagePath, item.Difficulty,
	).Scan(&out.ID, &out.Title, &out.Description, &out.Category,
		&out.FamilyMember, &out.ImagePath, &out.Difficulty, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert memory item: %w", err)
	}
	return &out, nil
}

// ── Completed Sessions ───────────────────────────────────

func (s *Store) SaveCompletedSession(sess models.QuizSession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save session: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO quiz_sessions (session_id, user_id, difficulty_level, accuracy, avg_latency_sec, degraded, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.SessionID, sess.UserID, sess.Difficulty, sess.Accuracy,
		sess.AvgLatencySec, sess.Degraded, sess.StartedAt, sess.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for _, q := range sess.Questions {
		if !q.Answered {
			continue
		}
		_, err = tx.Exec(
			`INSERT INTO quiz_responses (session_id, question_id, item_id, difficulty, correct, response_time_ms)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sess.SessionID, q.QuestionID, q.ItemID, q.Difficulty, q.Correct, q.ResponseTimeMS,
		)
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}

	return tx.Commit()
}

// UserProgress aggregates completed sessions for a user: lifetime averages
// plus a trend comparing the five most recent sessions against the
// lifetime accuracy.
func (s *Store) UserProgress(userID string) (*models.UserProgress, error) {
	progress := &models.UserProgress{UserID: userID}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(accuracy), 0), COALESCE(AVG(avg_latency_sec), 0), MAX(completed_at)
		 FROM quiz_sessions WHERE user_id = $1`, userID,
	).Scan(&progress.TotalSessions, &progress.AvgAccuracy, &progress.AvgLatencySec, &progress.LastSessionAt)
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}
	if progress.TotalSessions == 0 {
		return nil, fmt.Errorf("%w: no completed sessions for user %s", models.ErrNotFound, userID)
	}

	err = s.db.QueryRow(
		`SELECT COALESCE(AVG(accuracy), 0) FROM (
			SELECT accuracy FROM quiz_sessions
			WHERE user_id = $1 ORDER BY completed_at DESC LIMIT 5
		 ) recent`, userID,
	).Scan(&progress.RecentAccuracy)
	if err != nil {
		return nil, fmt.Errorf("recent accuracy: %w", err)
	}

	switch {
	case progress.RecentAccuracy > progress.AvgAccuracy:
		progress.Trend = "improving"
	case progress.RecentAccuracy < progress.AvgAccuracy:
		progress.Trend = "declining"
	default:
		progress.Trend = "stable"
	}
	return progress, nil
}
