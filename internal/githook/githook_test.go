package githook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallWritesExecutableHook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "hooks"), 0o755))

	commitLog := filepath.Join(dir, "commit.log")
	require.NoError(t, Install(dir, commitLog))

	hookPath := filepath.Join(dir, ".git", "hooks", "post-commit")
	info, err := os.Stat(hookPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)

	content, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), commitLog)
}

func TestInstallIsNoopWhenHookExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "hooks"), 0o755))

	hookPath := filepath.Join(dir, ".git", "hooks", "post-commit")
	require.NoError(t, os.WriteFile(hookPath, []byte("#!/bin/sh\necho existing\n"), 0o755))

	require.NoError(t, Install(dir, filepath.Join(dir, "commit.log")))

	content, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho existing\n", string(content))
}
