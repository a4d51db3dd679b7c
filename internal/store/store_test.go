package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenAndMigrate(filepath.Join(dir, "devtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAndMigrateAppliesSchema(t *testing.T) {
	s := openTestStore(t)

	status, err := s.GetMigrationStatus()
	require.NoError(t, err)
	assert.False(t, status.Pending)
	assert.False(t, status.Dirty)
	assert.Equal(t, status.LatestVersion, status.CurrentVersion)
}

func TestInsertAndGetTrigger(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertTrigger(Trigger{
		TriggerType:   "commit",
		Timestamp:     time.Now(),
		Source:        "git_watcher",
		RepoPath:      "/home/dev/widgets",
		CommitHash:    "abc123",
		CommitMessage: "fix thing",
		Author:        "dev",
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := s.GetTriggerByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "commit", got.TriggerType)
	assert.Equal(t, "abc123", got.CommitHash)
	assert.False(t, got.Processed)
}

func TestGetTriggerByIDMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetTriggerByID(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMarkTriggerProcessed(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertTrigger(Trigger{TriggerType: "timer", Timestamp: time.Now(), Source: "scheduler"})
	require.NoError(t, err)

	require.NoError(t, s.MarkTriggerProcessed(id))

	got, err := s.GetTriggerByID(id)
	require.NoError(t, err)
	assert.True(t, got.Processed)
}

func TestGetRecentTriggersOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := s.InsertTrigger(Trigger{
			TriggerType: "timer",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Source:      "scheduler",
		})
		require.NoError(t, err)
	}

	recent, err := s.GetRecentTriggers(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Timestamp.After(recent[1].Timestamp))
}

func TestInsertResponseAndTaskUpdateLifecycle(t *testing.T) {
	s := openTestStore(t)

	triggerID, err := s.InsertTrigger(Trigger{TriggerType: "commit", Timestamp: time.Now(), Source: "git_watcher"})
	require.NoError(t, err)

	responseID, err := s.InsertResponse(Response{
		TriggerID:   triggerID,
		Timestamp:   time.Now(),
		Project:     "Widgets",
		TicketID:    "WID-42",
		Description: "fixed the thing",
		Status:      "complete",
	})
	require.NoError(t, err)

	updateID, err := s.InsertTaskUpdate(TaskUpdate{
		ResponseID: responseID,
		Timestamp:  time.Now(),
		Project:    "Widgets",
		TicketID:   "WID-42",
		UpdateText: "fixed the thing",
		Platform:   "jira",
	})
	require.NoError(t, err)

	unsynced, err := s.GetUnsyncedTaskUpdates()
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, updateID, unsynced[0].ID)

	require.NoError(t, s.MarkTaskUpdateSynced(updateID, time.Now()))

	unsynced, err = s.GetUnsyncedTaskUpdates()
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestConfigKVRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetConfig("last_sync", "2026-08-06T00:00:00Z"))

	value, err := s.GetConfig("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-06T00:00:00Z", value)

	require.NoError(t, s.SetConfig("last_sync", "2026-08-06T01:00:00Z"))
	value, err = s.GetConfig("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-06T01:00:00Z", value)
}

func TestGetConfigMissingKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetConfig("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCleanOldRecordsKeepsUnprocessedTriggers(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().AddDate(0, 0, -100)

	unprocessedID, err := s.InsertTrigger(Trigger{TriggerType: "timer", Timestamp: old, Source: "scheduler"})
	require.NoError(t, err)

	processedID, err := s.InsertTrigger(Trigger{TriggerType: "timer", Timestamp: old, Source: "scheduler"})
	require.NoError(t, err)
	require.NoError(t, s.MarkTriggerProcessed(processedID))

	require.NoError(t, s.InsertLog(LogEntry{Timestamp: old, Level: "info", Component: "scheduler", Message: "old log"}))

	require.NoError(t, s.CleanOldRecords(30))

	kept, err := s.GetTriggerByID(unprocessedID)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	gone, err := s.GetTriggerByID(processedID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	logs, err := s.GetRecentLogs("", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestCleanOldRecordsCascadesResponsesAndTaskUpdates(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().AddDate(0, 0, -100)

	processedID, err := s.InsertTrigger(Trigger{TriggerType: "timer", Timestamp: old, Source: "scheduler"})
	require.NoError(t, err)
	require.NoError(t, s.MarkTriggerProcessed(processedID))

	responseID, err := s.InsertResponse(Response{
		TriggerID: processedID,
		Timestamp: old,
		Project:   "Widgets",
		TicketID:  "WID-1",
		Status:    "complete",
	})
	require.NoError(t, err)

	updateID, err := s.InsertTaskUpdate(TaskUpdate{
		ResponseID: responseID,
		Timestamp:  old,
		Project:    "Widgets",
		TicketID:   "WID-1",
		UpdateText: "done",
		Platform:   "jira",
	})
	require.NoError(t, err)

	require.NoError(t, s.CleanOldRecords(30))

	gone, err := s.GetTriggerByID(processedID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var responseCount, updateCount int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM responses WHERE id = ?`, responseID).Scan(&responseCount))
	assert.Zero(t, responseCount)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM task_updates WHERE id = ?`, updateID).Scan(&updateCount))
	assert.Zero(t, updateCount)
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertTrigger(Trigger{TriggerType: "commit", Timestamp: time.Now(), Source: "git_watcher"})
	require.NoError(t, err)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Triggers)
	assert.Equal(t, 0, stats.Responses)
	assert.NotEmpty(t, stats.DatabasePath)
}
