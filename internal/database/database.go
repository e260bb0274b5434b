package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/memorylane/backend/internal/models"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "memorylane_user")
	password := getEnv("DB_PASSWORD", "memorylane_password")
	dbname := getEnv("DB_NAME", "memorylane")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS memory_items (
		id            BIGSERIAL PRIMARY KEY,
		title         VARCHAR(255) NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		category      VARCHAR(50) NOT NULL,
		family_member VARCHAR(100) NOT NULL DEFAULT '',
		image_path    VARCHAR(255) NOT NULL DEFAULT '',
		difficulty    INT NOT NULL CHECK (difficulty >= 1 AND difficulty <= 3),
		created_at    TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_items_difficulty ON memory_items(difficulty);
	CREATE INDEX IF NOT EXISTS idx_items_category ON memory_items(category);

	CREATE TABLE IF NOT EXISTS quiz_sessions (
		session_id       VARCHAR(64) PRIMARY KEY,
		user_id          VARCHAR(64) NOT NULL,
		difficulty_level VARCHAR(20) NOT NULL,
		accuracy         DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_latency_sec  DOUBLE PRECISION NOT NULL DEFAULT 0,
		degraded         BOOLEAN NOT NULL DEFAULT FALSE,
		started_at       TIMESTAMP WITH TIME ZONE NOT NULL,
		completed_at     TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON quiz_sessions(user_id, completed_at DESC);

	CREATE TABLE IF NOT EXISTS quiz_responses (
		id               BIGSERIAL PRIMARY KEY,
		session_id       VARCHAR(64) NOT NULL REFERENCES quiz_sessions(session_id) ON DELETE CASCADE,
		question_id      VARCHAR(64) NOT NULL,
		item_id          BIGINT NOT NULL,
		difficulty       INT NOT NULL,
		correct          BOOLEAN NOT NULL,
		response_time_ms INT NOT NULL,
		created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_responses_session ON quiz_responses(session_id);
	CREATE INDEX IF NOT EXISTS idx_responses_item ON quiz_responses(item_id);

	CREATE TABLE IF NOT EXISTS model_snapshots (
		key        VARCHAR(64) PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// SeedMemoryItems inserts a starter item bank when the table is empty, so a
// fresh deployment can serve quiz sessions immediately.
func SeedMemoryItems(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM memory_items`).Scan(&n); err != nil {
		return fmt.Errorf("count memory items: %w", err)
	}
	if n > 0 {
		return nil
	}

	items := []models.MemoryItem{
		{Title: "Sunday Dinner", Description: "The weekly family dinner at the old house", Category: "family", FamilyMember: "Margaret", Difficulty: 1},
		{Title: "Wedding Day", Description: "The church ceremony in June", Category: "events", FamilyMember: "Harold", Difficulty: 1},
		{Title: "First Grandchild", Description: "Meeting the new baby at the hospital", Category: "family", FamilyMember: "Emily", Difficulty: 1},
		{Title: "Garden Roses", Description: "The rose bed planted along the back fence", Category: "places", Difficulty: 1},
		{Title: "Beach Vacation", Description: "The summer trip to the coast", Category: "events", Difficulty: 1},
		{Title: "Birthday Party", Description: "The surprise party at the community hall", Category: "events", FamilyMember: "Susan", Difficulty: 2},
		{Title: "Old Neighborhood", Description: "The street where the children grew up", Category: "places", Difficulty: 2},
		{Title: "Holiday Baking", Description: "Making cookies together every December", Category: "family", FamilyMember: "Emily", Difficulty: 2},
		{Title: "Fishing Trip", Description: "The lake cabin weekend", Category: "events", FamilyMember: "Harold", Difficulty: 2},
		{Title: "School Recital", Description: "The piano recital in the spring", Category: "events", FamilyMember: "Susan", Difficulty: 2},
		{Title: "Anniversary Dance", Description: "The fortieth anniversary celebration", Category: "events", FamilyMember: "Harold", Difficulty: 3},
		{Title: "Graduation Morning", Description: "Driving to the university ceremony", Category: "events", FamilyMember: "Susan", Difficulty: 3},
		{Title: "Workshop Bench", Description: "The woodworking bench in the garage", Category: "places", Difficulty: 3},
		{Title: "Train Journey", Description: "The cross-country trip by rail", Category: "events", Difficulty: 3},
		{Title: "Neighbor's Orchard", Description: "Picking apples next door in autumn", Category: "places", Difficulty: 3},
	}

	for _, item := range items {
		_, err := db.Exec(
			`INSERT INTO memory_items (title, description, category, family_member, image_path, difficulty)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.Title, item.Description, item.Category, item.FamilyMember, item.ImagePath, item.Difficulty,
		)
		if err != nil {
			return fmt.Errorf("seed memory items: %w", err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
