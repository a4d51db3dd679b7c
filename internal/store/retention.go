package store

import (
	"fmt"
	"time"
)

// CleanOldRecords deletes log entries and processed triggers older than
// retentionDays, cascading to each pruned trigger's responses and their
// task updates in the same transaction (foreign keys are enforced with
// no ON DELETE clause, so the parent row can't go first). Unprocessed
// triggers are kept regardless of age, since deleting them would
// silently drop an unanswered prompt.
func (s *Store) CleanOldRecords(retentionDays int) error {
	if s.db == nil {
		return ErrUnavailable
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin retention transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM logs WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("store: clean old logs: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM task_updates WHERE response_id IN (
			SELECT id FROM responses WHERE trigger_id IN (
				SELECT id FROM triggers WHERE timestamp < ? AND processed = 1
			)
		)
	`, cutoff); err != nil {
		return fmt.Errorf("store: clean old task updates: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM responses WHERE trigger_id IN (
			SELECT id FROM triggers WHERE timestamp < ? AND processed = 1
		)
	`, cutoff); err != nil {
		return fmt.Errorf("store: clean old responses: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM triggers WHERE timestamp < ? AND processed = 1`, cutoff); err != nil {
		return fmt.Errorf("store: clean old triggers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit retention transaction: %w", err)
	}

	return nil
}
