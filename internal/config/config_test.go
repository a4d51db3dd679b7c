package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSynthesizesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.yaml"))

	cfg, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, defaultPromptInterval, cfg.Settings.PromptInterval)
	assert.False(t, cfg.Settings.WorkHoursOnly)
	assert.Equal(t, defaultWorkStartHour, cfg.Settings.WorkStartHour)
	assert.Equal(t, defaultWorkEndHour, cfg.Settings.WorkEndHour)
	assert.Equal(t, "email", cfg.Settings.Notifications.OutputType)
	assert.Empty(t, cfg.Integrations.AzureDevOps.Token)

	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.yaml"))

	cfg := Default()
	cfg.Repositories = append(cfg.Repositories, Repository{
		Name: "widgets", Path: "/home/dev/widgets", Enabled: true, Project: "Widgets",
	})
	cfg.Settings.PromptInterval = 45
	cfg.Integrations.GitHub.Token = "${GITHUB_TOKEN}"

	require.NoError(t, s.Save(cfg))

	loaded, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, cfg.Repositories, loaded.Repositories)
	assert.Equal(t, cfg.Settings.PromptInterval, loaded.Settings.PromptInterval)
	// Unresolved placeholder (no env var set) round-trips verbatim.
	assert.Equal(t, "${GITHUB_TOKEN}", loaded.Integrations.GitHub.Token)
}

func TestLoadResolvesEnvPlaceholderWithoutRewritingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	s := NewStore(path)

	cfg := Default()
	cfg.Integrations.JIRA.Token = "${JIRA_API_TOKEN}"
	require.NoError(t, s.Save(cfg))

	t.Setenv("JIRA_API_TOKEN", "super-secret")

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "super-secret", loaded.Integrations.JIRA.Token)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "${JIRA_API_TOKEN}")
	assert.NotContains(t, string(raw), "super-secret")
}

func TestAddRepositoryRejectsNonGitPath(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.yaml"))

	notRepo := filepath.Join(dir, "plain-dir")
	require.NoError(t, os.MkdirAll(notRepo, 0o755))

	err := s.AddRepository("plain", notRepo, "Proj")
	require.ErrorIs(t, err, ErrInvalidRepo)
}

func TestAddAndRemoveRepository(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.yaml"))

	repoPath := filepath.Join(dir, "myrepo")
	require.NoError(t, os.MkdirAll(filepath.Join(repoPath, ".git"), 0o755))

	require.NoError(t, s.AddRepository("myrepo", repoPath, "Proj"))

	enabled, err := s.EnabledRepositories()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, repoPath, enabled[0].Path)

	require.NoError(t, s.RemoveRepository(repoPath))
	enabled, err = s.EnabledRepositories()
	require.NoError(t, err)
	assert.Empty(t, enabled)
}
