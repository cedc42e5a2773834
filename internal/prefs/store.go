package prefs

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Setting keys.
const (
	KeyProvider  = "provider"
	KeyModel     = "model"
	KeyOllamaURL = "ollamaUrl"
	KeyAPIKey    = "apiKey"
)

// Store reads and writes operator preferences and saved traces.
type Store struct {
	db *DB
}

// NewStore creates a store using the given database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Get returns the value for key, or the empty string when unset.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.sql.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores the value for key, replacing any prior value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.sql.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// Delete removes a setting. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.sql.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting setting %q: %w", key, err)
	}
	return nil
}

// All returns every stored setting.
func (s *Store) All() (map[string]string, error) {
	rows, err := s.db.sql.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// TraceRecord is one saved session trace.
type TraceRecord struct {
	ID        string
	Provider  string
	Model     string
	Entries   string
	CreatedAt time.Time
}

// SaveTrace persists a session trace for later inspection. entries is
// the trace's JSON rendering.
func (s *Store) SaveTrace(provider, model, entries string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.sql.Exec(`
		INSERT INTO traces (id, provider, model, entries, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, provider, model, entries, time.Now().UTC().Format(time.DateTime))
	if err != nil {
		return "", fmt.Errorf("saving trace: %w", err)
	}
	return id, nil
}

// GetTrace returns a saved trace by ID, or nil when not found.
func (s *Store) GetTrace(id string) (*TraceRecord, error) {
	var rec TraceRecord
	var createdAt string
	err := s.db.sql.QueryRow(`
		SELECT id, provider, model, entries, created_at FROM traces WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Provider, &rec.Model, &rec.Entries, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading trace %q: %w", id, err)
	}
	rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &rec, nil
}

// ListTraces returns the most recent traces, newest first, without
// their entry payloads.
func (s *Store) ListTraces(limit int) ([]TraceRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.sql.Query(`
		SELECT id, provider, model, created_at FROM traces
		ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing traces: %w", err)
	}
	defer rows.Close()

	var out []TraceRecord
	for rows.Next() {
		var rec TraceRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Model, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
