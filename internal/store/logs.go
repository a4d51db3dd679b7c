package store

import (
	"fmt"
	"time"
)

// LogEntry is one structured log record persisted in the logs table,
// independent of the flat-file log the daemon also writes. The control
// surface's "logs" subcommand reads the flat file, not this table.
type LogEntry struct {
	ID        int64
	Timestamp time.Time
	Level     string
	Component string
	Message   string
	Data      string
}

// InsertLog persists a log entry.
func (s *Store) InsertLog(e LogEntry) error {
	if s.db == nil {
		return ErrUnavailable
	}

	_, err := s.db.Exec(`
		INSERT INTO logs (timestamp, level, component, message, data)
		VALUES (?, ?, ?, ?, ?)
	`, e.Timestamp, e.Level, e.Component, e.Message, e.Data)
	if err != nil {
		if isBusy(err) {
			return ErrBusy
		}
		return fmt.Errorf("store: insert log: %w", err)
	}
	return nil
}

// GetRecentLogs returns up to limit log entries, newest first, optionally
// filtered to a single component.
func (s *Store) GetRecentLogs(component string, limit int) ([]LogEntry, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}

	query := `SELECT id, timestamp, level, component, message, data FROM logs`
	args := []any{}
	if component != "" {
		query += ` WHERE component = ?`
		args = append(args, component)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query recent logs: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Component, &e.Message, &e.Data); err != nil {
			return nil, fmt.Errorf("store: scan log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
