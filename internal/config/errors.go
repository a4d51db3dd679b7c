package config

import "errors"

// ErrInvalidRepo is returned by AddRepository when the target path is not
// a Git working copy, or is already tracked.
var ErrInvalidRepo = errors.New("config: invalid repository")
