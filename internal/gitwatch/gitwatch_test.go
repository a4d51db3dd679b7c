package gitwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeAndCommit := func(name, content, message string) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
		_, err = wt.Commit(message, &git.CommitOptions{
			Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}

	writeAndCommit("README.md", "hello", "initial commit")
	return dir, repo
}

func TestNewRejectsNonGitPath(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, nil)
	assert.ErrorIs(t, err, ErrNotARepository)
}

func TestNewOpensExistingRepository(t *testing.T) {
	dir, _ := initTestRepo(t)
	w, err := New(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, StateNew, w.State())
}

func TestStartDoesNotEmitForInitialHead(t *testing.T) {
	dir, _ := initTestRepo(t)
	w, err := New(dir, nil)
	require.NoError(t, err)
	defer w.Stop()

	emitted := false
	require.NoError(t, w.Start(func(CommitInfo) { emitted = true }))
	assert.Equal(t, Watching, w.State())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, emitted)
}

func TestStartDetectsSubsequentCommit(t *testing.T) {
	dir, repo := initTestRepo(t)
	w, err := New(dir, nil)
	require.NoError(t, err)
	defer w.Stop()

	commits := make(chan CommitInfo, 1)
	require.NoError(t, w.Start(func(c CommitInfo) { commits <- c }))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	_, err = wt.Commit("add main.go", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	select {
	case info := <-commits:
		assert.Equal(t, "add main.go", info.Message)
		assert.Contains(t, info.Files, "main.go")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for commit detection")
	}
}

func TestChangedFilesRootCommitListsAllPaths(t *testing.T) {
	dir, repo := initTestRepo(t)
	w, err := New(dir, nil)
	require.NoError(t, err)
	defer w.fsw.Close()

	ref, err := repo.Head()
	require.NoError(t, err)
	info, err := w.commitInfo(ref.Hash())
	require.NoError(t, err)
	assert.Contains(t, info.Files, "README.md")
}

func TestStopIsIdempotent(t *testing.T) {
	dir, _ := initTestRepo(t)
	w, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(func(CommitInfo) {}))

	w.Stop()
	w.Stop()
	assert.Equal(t, Stopped, w.State())
}
