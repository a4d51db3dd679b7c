package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Trigger is one detected event: a commit or an elapsed scheduler
// interval.
type Trigger struct {
	ID            int64
	TriggerType   string // "commit" or "timer"
	Timestamp     time.Time
	Source        string // "git_watcher" or "scheduler"
	RepoPath      string
	CommitHash    string
	CommitMessage string
	Author        string
	Data          string // JSON-encoded extra fields
	Processed     bool
}

// InsertTrigger persists a new trigger and returns its row id.
func (s *Store) InsertTrigger(t Trigger) (int64, error) {
	if s.db == nil {
		return 0, ErrUnavailable
	}

	result, err := s.db.Exec(`
		INSERT INTO triggers (trigger_type, timestamp, source, repo_path, commit_hash, commit_message, author, data, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.TriggerType, t.Timestamp, t.Source, t.RepoPath,
		t.CommitHash, t.CommitMessage, t.Author, t.Data, t.Processed,
	)
	if err != nil {
		if isBusy(err) {
			return 0, ErrBusy
		}
		return 0, fmt.Errorf("store: insert trigger: %w", err)
	}

	return result.LastInsertId()
}

// GetTriggerByID returns nil, nil if no trigger with that id exists.
func (s *Store) GetTriggerByID(id int64) (*Trigger, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}

	var t Trigger
	err := s.db.QueryRow(`
		SELECT id, trigger_type, timestamp, source, repo_path, commit_hash, commit_message, author, data, processed
		FROM triggers WHERE id = ?
	`, id).Scan(
		&t.ID, &t.TriggerType, &t.Timestamp, &t.Source, &t.RepoPath,
		&t.CommitHash, &t.CommitMessage, &t.Author, &t.Data, &t.Processed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get trigger %d: %w", id, err)
	}
	return &t, nil
}

// GetRecentTriggers returns up to limit triggers, newest first.
func (s *Store) GetRecentTriggers(limit int) ([]Trigger, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}

	rows, err := s.db.Query(`
		SELECT id, trigger_type, timestamp, source, repo_path, commit_hash, commit_message, author, data, processed
		FROM triggers ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent triggers: %w", err)
	}
	defer rows.Close()

	var out []Trigger
	for rows.Next() {
		var t Trigger
		if err := rows.Scan(
			&t.ID, &t.TriggerType, &t.Timestamp, &t.Source, &t.RepoPath,
			&t.CommitHash, &t.CommitMessage, &t.Author, &t.Data, &t.Processed,
		); err != nil {
			return nil, fmt.Errorf("store: scan trigger: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkTriggerProcessed flags a trigger as handled, so a restart doesn't
// re-offer the same prompt.
func (s *Store) MarkTriggerProcessed(id int64) error {
	if s.db == nil {
		return ErrUnavailable
	}

	_, err := s.db.Exec(`UPDATE triggers SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: mark trigger %d processed: %w", id, err)
	}
	return nil
}
