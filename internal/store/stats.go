package store

import "fmt"

// Stats summarizes the database's contents for the control surface's
// "db-stats" subcommand.
type Stats struct {
	Triggers        int
	Responses       int
	TaskUpdates     int
	UnsyncedUpdates int
	Logs            int
	DatabasePath    string
}

// GetStats returns row counts for triggers, responses, task updates
// (all and unsynced) and logs, plus the resolved database path. The
// config table is not counted.
func (s *Store) GetStats() (*Stats, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}

	var st Stats
	st.DatabasePath = s.path

	queries := []struct {
		dest  *int
		query string
	}{
		{&st.Triggers, `SELECT COUNT(*) FROM triggers`},
		{&st.Responses, `SELECT COUNT(*) FROM responses`},
		{&st.TaskUpdates, `SELECT COUNT(*) FROM task_updates`},
		{&st.UnsyncedUpdates, `SELECT COUNT(*) FROM task_updates WHERE synced = 0`},
		{&st.Logs, `SELECT COUNT(*) FROM logs`},
	}

	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("store: stats query: %w", err)
		}
	}

	return &st, nil
}
