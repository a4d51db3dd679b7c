package store

import "errors"

// ErrUnavailable is returned when an operation is attempted against a
// Store whose underlying connection has not been opened (or has already
// been closed).
var ErrUnavailable = errors.New("store: database unavailable")

// ErrBusy is returned when SQLite reports SQLITE_BUSY after the driver's
// own busy-timeout has elapsed, surfaced distinctly so callers can decide
// whether to retry a trigger or response write.
var ErrBusy = errors.New("store: database busy")
