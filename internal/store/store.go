// Package store persists triggers, responses, task updates, component
// logs and runtime config key/value pairs in a single embedded SQLite
// database.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a *sql.DB bound to one devtrack.db file. Rather than a
// package-level db handle, a Store instance is constructed explicitly
// and passed to whatever needs it, matching internal/paths's explicit
// layout resolution.
type Store struct {
	db   *sql.DB
	path string
}

// MigrationStatus reports the schema's current position relative to the
// migrations embedded in the binary.
type MigrationStatus struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

// Open opens the SQLite file at path without running migrations.
// Foreign keys are enabled and a busy timeout is set so concurrent
// access from the daemon and a control-surface command don't immediately
// fail with SQLITE_BUSY.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenAndMigrate opens path and applies all pending migrations.
func OpenAndMigrate(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.RunMigrations(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the underlying connection for callers that need raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunMigrations applies all pending migrations, tolerating the
// already-at-latest case.
func (s *Store) RunMigrations() error {
	if s.db == nil {
		return ErrUnavailable
	}

	m, err := s.migrator()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// GetMigrationStatus reports the schema version currently applied
// against the latest version embedded in the binary.
func (s *Store) GetMigrationStatus() (*MigrationStatus, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}

	m, err := s.migrator()
	if err != nil {
		return nil, err
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return nil, fmt.Errorf("store: read migration version: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var latest uint
	if first, err := source.First(); err == nil {
		latest = first
		for {
			next, err := source.Next(latest)
			if err != nil {
				break
			}
			latest = next
		}
	}

	return &MigrationStatus{
		CurrentVersion: version,
		LatestVersion:  latest,
		Dirty:          dirty,
		Pending:        version < latest,
	}, nil
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("store: migration source: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite3", driver)
}

// isBusy reports whether err is SQLite's "database is locked" error,
// surfaced after the driver's own busy_timeout has already been exhausted.
func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
