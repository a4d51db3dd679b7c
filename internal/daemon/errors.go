package daemon

import "errors"

// ErrAlreadyRunning is returned by Start when a PID file names a live process.
var ErrAlreadyRunning = errors.New("daemon: already running")

// ErrNotRunning is returned by Stop, Pause and Resume when no live
// process is recorded.
var ErrNotRunning = errors.New("daemon: not running")
