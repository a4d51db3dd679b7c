package control

import "errors"

// ErrDaemonNotRunning is returned by subcommands that require a running
// daemon (force-trigger, skip-next, send-summary, pause, resume) when no
// instance is reachable.
var ErrDaemonNotRunning = errors.New("control: devtrackd is not running")
