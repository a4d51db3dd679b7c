package store

import (
	"fmt"
	"time"
)

// Response is what a developer reported for a trigger prompt.
type Response struct {
	ID          int64
	TriggerID   int64
	Timestamp   time.Time
	Project     string
	TicketID    string
	Description string
	TimeSpent   string
	Status      string
	RawInput    string
}

// InsertResponse persists a response and returns its row id.
func (s *Store) InsertResponse(r Response) (int64, error) {
	if s.db == nil {
		return 0, ErrUnavailable
	}

	result, err := s.db.Exec(`
		INSERT INTO responses (trigger_id, timestamp, project, ticket_id, description, time_spent, status, raw_input)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.TriggerID, r.Timestamp, r.Project, r.TicketID,
		r.Description, r.TimeSpent, r.Status, r.RawInput,
	)
	if err != nil {
		if isBusy(err) {
			return 0, ErrBusy
		}
		return 0, fmt.Errorf("store: insert response: %w", err)
	}

	return result.LastInsertId()
}
