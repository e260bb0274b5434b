// Package snapshots provides opaque keyed storage for versioned model
// records. The decision core only depends on Save/Load; the Postgres
// implementation backs serving and the in-memory one backs tests.
package snapshots

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/memorylane/backend/internal/models"
)

type Store interface {
	Save(key string, payload []byte) error
	Load(key string) ([]byte, error)
}

// ── Postgres ─────────────────────────────────────────────

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(key string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO model_snapshots (key, payload, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET payload = $2, updated_at = NOW()`,
		key, payload,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Load(key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM model_snapshots WHERE key = $1`, key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: snapshot %q", models.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return payload, nil
}

// ── In-memory ────────────────────────────────────────────

type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Save(key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.m[key] = cp
	return nil
}

func (s *MemoryStore) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.m[key]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %q", models.ErrNotFound, key)
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp, nil
}
