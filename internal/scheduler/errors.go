package scheduler

import "errors"

// ErrUnavailable names the not-running scheduler condition. No Scheduler
// method returns it; operations invoked before Start or after Stop act on
// the schedule state without an error.
var ErrUnavailable = errors.New("scheduler: not running")

// ErrInvalidInterval is returned by SetInterval for a non-positive value.
var ErrInvalidInterval = errors.New("scheduler: interval must be at least 1 minute")
