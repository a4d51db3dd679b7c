package gitwatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitInfo describes one detected commit.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	Timestamp time.Time
	Branch    string
	Files     []string
}

func (w *Watcher) readHead() (plumbing.Hash, error) {
	ref, err := w.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: head: %v", ErrRepositoryUnreadable, err)
	}
	return ref.Hash(), nil
}

func (w *Watcher) commitInfo(hash plumbing.Hash) (*CommitInfo, error) {
	commit, err := w.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: commit object: %v", ErrRepositoryUnreadable, err)
	}

	files, err := changedFiles(commit)
	if err != nil {
		// Non-fatal: the commit is still reported, just without a file list.
		files = nil
	}

	branch := ""
	if ref, err := w.repo.Head(); err == nil && ref.Name().IsBranch() {
		branch = ref.Name().Short()
	}

	return &CommitInfo{
		Hash:      commit.Hash.String(),
		Message:   strings.TrimSpace(commit.Message),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Branch:    branch,
		Files:     files,
	}, nil
}

// changedFiles diffs a commit against its first parent, or lists the
// full tree for a root commit.
func changedFiles(commit *object.Commit) ([]string, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	if commit.NumParents() == 0 {
		var files []string
		err := tree.Files().ForEach(func(f *object.File) error {
			files = append(files, f.Name)
			return nil
		})
		return files, err
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, err
	}

	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}

	for _, change := range changes {
		from, to, err := change.Files()
		if err != nil {
			continue
		}
		if from != nil {
			add(from.Name)
		}
		if to != nil {
			add(to.Name)
		}
	}

	return files, nil
}
