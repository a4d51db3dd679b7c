package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GetConfig returns the value for key, or sql.ErrNoRows wrapped if absent.
func (s *Store) GetConfig(key string) (string, error) {
	if s.db == nil {
		return "", ErrUnavailable
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("store: config key %q: %w", key, sql.ErrNoRows)
	}
	if err != nil {
		return "", fmt.Errorf("store: get config %q: %w", key, err)
	}
	return value, nil
}

// SetConfig upserts a runtime key/value pair, distinct from the
// repository/schedule settings that live in config.yaml.
func (s *Store) SetConfig(key, value string) error {
	if s.db == nil {
		return ErrUnavailable
	}

	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("store: set config %q: %w", key, err)
	}
	return nil
}
