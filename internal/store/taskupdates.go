package store

import (
	"database/sql"
	"fmt"
	"time"
)

// TaskUpdate is one outbound write to a tracker (Azure DevOps, GitHub,
// JIRA), queued until the integration process reports it synced.
type TaskUpdate struct {
	ID         int64
	ResponseID int64
	Timestamp  time.Time
	Project    string
	TicketID   string
	UpdateText string
	Status     string
	Synced     bool
	SyncedAt   sql.NullTime
	Platform   string
	Error      string
}

// InsertTaskUpdate persists a queued task update and returns its row id.
func (s *Store) InsertTaskUpdate(u TaskUpdate) (int64, error) {
	if s.db == nil {
		return 0, ErrUnavailable
	}

	// A zero ResponseID (an update not tied to a stored response) is
	// stored as NULL so the response_id foreign key is not violated.
	var responseID any
	if u.ResponseID != 0 {
		responseID = u.ResponseID
	}

	result, err := s.db.Exec(`
		INSERT INTO task_updates (response_id, timestamp, project, ticket_id, update_text, status, synced, synced_at, platform, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		responseID, u.Timestamp, u.Project, u.TicketID, u.UpdateText,
		u.Status, u.Synced, u.SyncedAt, u.Platform, u.Error,
	)
	if err != nil {
		if isBusy(err) {
			return 0, ErrBusy
		}
		return 0, fmt.Errorf("store: insert task update: %w", err)
	}

	return result.LastInsertId()
}

// GetUnsyncedTaskUpdates returns updates not yet acknowledged by the
// integration process, oldest first so they sync in submission order.
func (s *Store) GetUnsyncedTaskUpdates() ([]TaskUpdate, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}

	rows, err := s.db.Query(`
		SELECT id, response_id, timestamp, project, ticket_id, update_text, status, synced, synced_at, platform, error
		FROM task_updates WHERE synced = 0 ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: query unsynced task updates: %w", err)
	}
	defer rows.Close()

	var out []TaskUpdate
	for rows.Next() {
		var u TaskUpdate
		var responseID sql.NullInt64
		if err := rows.Scan(
			&u.ID, &responseID, &u.Timestamp, &u.Project, &u.TicketID,
			&u.UpdateText, &u.Status, &u.Synced, &u.SyncedAt, &u.Platform, &u.Error,
		); err != nil {
			return nil, fmt.Errorf("store: scan task update: %w", err)
		}
		u.ResponseID = responseID.Int64
		out = append(out, u)
	}
	return out, rows.Err()
}

// MarkTaskUpdateSynced records the moment a tracker confirmed the write.
func (s *Store) MarkTaskUpdateSynced(id int64, at time.Time) error {
	if s.db == nil {
		return ErrUnavailable
	}

	_, err := s.db.Exec(`UPDATE task_updates SET synced = 1, synced_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("store: mark task update %d synced: %w", id, err)
	}
	return nil
}
