// Package githook installs an advisory post-commit hook: a single
// appended line per commit, independent of (and not required by) the
// fsnotify-based watcher in internal/gitwatch.
package githook

import (
	"fmt"
	"os"
	"path/filepath"
)

const hookTemplate = `#!/bin/sh
# Installed by devtrackd. Advisory only: the daemon detects commits via
# its own filesystem watcher and does not depend on this hook running.
echo "Commit detected at $(date -Iseconds)" >> %s
exit 0
`

// Install writes a post-commit hook into repoPath's .git/hooks directory
// that appends a timestamped line to commitLogPath. It is a no-op if a
// hook already exists at that path.
func Install(repoPath, commitLogPath string) error {
	hookPath := filepath.Join(repoPath, ".git", "hooks", "post-commit")

	if _, err := os.Stat(hookPath); err == nil {
		return nil
	}

	content := fmt.Sprintf(hookTemplate, commitLogPath)
	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		return fmt.Errorf("githook: write %s: %w", hookPath, err)
	}
	return nil
}
