// Package gitwatch watches a Git working copy's .git directory for new
// commits and reports them with their changed files.
package gitwatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"
)

const debounce = 100 * time.Millisecond

// State is a Watcher's position in its per-repository state machine:
// StateNew -> Watching -> {Stopped | Failed}.
type State int

const (
	StateNew State = iota
	Watching
	Stopped
	Failed
)

// IsGitRepository reports whether path contains a .git directory,
// exposed standalone so callers (e.g. the config store) can validate a
// path before constructing a Watcher.
func IsGitRepository(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// Watcher monitors one repository. Emissions to onCommit are serialized:
// the goroutine loop handles one fsnotify event at a time.
type Watcher struct {
	repoPath string
	repo     *git.Repository
	fsw      *fsnotify.Watcher
	log      *logrus.Entry

	mu       sync.Mutex
	state    State
	lastSeen string // last-seen HEAD commit hash, empty before first read

	stopCh chan struct{}
	doneCh chan struct{}
}

// New opens repoPath and prepares a Watcher without starting it.
func New(repoPath string, log *logrus.Entry) (*Watcher, error) {
	if !IsGitRepository(repoPath) {
		return nil, ErrNotARepository
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, ErrNotARepository
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ErrWatcherUnavailable
	}

	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}

	return &Watcher{
		repoPath: repoPath,
		repo:     repo,
		fsw:      fsw,
		log:      log.WithField("repo", repoPath),
		state:    StateNew,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// State returns the watcher's current state machine position.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start records the current HEAD as the last-seen cursor (without
// emitting for it) and begins watching the .git directory tree.
func (w *Watcher) Start(onCommit func(CommitInfo)) error {
	gitDir := filepath.Join(w.repoPath, ".git")
	if err := w.fsw.Add(gitDir); err != nil {
		w.setState(Failed)
		return ErrWatcherFailed
	}

	headFile := filepath.Join(gitDir, "HEAD")
	if err := w.fsw.Add(headFile); err != nil {
		w.log.WithError(err).Warn("failed to watch HEAD file directly")
	}

	if hash, err := w.readHead(); err == nil {
		w.mu.Lock()
		w.lastSeen = hash.String()
		w.mu.Unlock()
	} else {
		w.log.WithError(err).Warn("could not read initial HEAD")
	}

	w.setState(Watching)
	w.log.Info("started watching repository")

	go w.loop(onCommit)
	return nil
}

func (w *Watcher) loop(onCommit func(CommitInfo)) {
	defer close(w.doneCh)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event, onCommit)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, onCommit func(CommitInfo)) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if strings.HasSuffix(event.Name, ".lock") || strings.HasSuffix(event.Name, "~") {
		return
	}

	time.Sleep(debounce)

	hash, err := w.readHead()
	if err != nil {
		w.log.WithError(err).Error("failed to read HEAD after change")
		return
	}

	w.mu.Lock()
	changed := hash.String() != w.lastSeen
	w.mu.Unlock()
	if !changed {
		return
	}

	info, err := w.commitInfo(hash)
	if err != nil {
		w.log.WithError(err).Error("failed to read commit object")
		return
	}

	w.mu.Lock()
	w.lastSeen = hash.String()
	w.mu.Unlock()

	w.log.WithField("commit", hash.String()[:8]).Info("new commit detected")
	onCommit(*info)
}

// Stop releases watches and stops the event loop. It is safe to call
// once; calling it a second time is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.state == Stopped || w.state == Failed {
		w.mu.Unlock()
		return
	}
	w.state = Stopped
	w.mu.Unlock()

	close(w.stopCh)
	w.fsw.Close()
	<-w.doneCh
	w.log.Info("stopped watching repository")
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
