package monitor

import "errors"

// ErrAlreadyStarted is returned by Start when called on a running Monitor.
var ErrAlreadyStarted = errors.New("monitor: already started")
