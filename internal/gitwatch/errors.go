package gitwatch

import "errors"

// ErrNotARepository is returned by New when repoPath has no .git directory.
var ErrNotARepository = errors.New("gitwatch: not a git repository")

// ErrWatcherUnavailable is returned when the underlying fsnotify watcher
// could not be created.
var ErrWatcherUnavailable = errors.New("gitwatch: watcher unavailable")

// ErrRepositoryUnreadable is returned when HEAD or a commit object cannot
// be read from an otherwise valid repository.
var ErrRepositoryUnreadable = errors.New("gitwatch: repository unreadable")

// ErrWatcherFailed marks a permanent watch failure; the Watcher transitions
// to Failed and will not recover without being reconstructed.
var ErrWatcherFailed = errors.New("gitwatch: watcher failed")
