package control

import (
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtrackd/devtrackd/internal/ipc"
	"github.com/devtrackd/devtrackd/internal/monitor"
	"github.com/devtrackd/devtrackd/internal/paths"
	"github.com/devtrackd/devtrackd/internal/scheduler"
	"github.com/devtrackd/devtrackd/internal/store"
)

// newLiveLayout starts a real ipc server + monitor + scheduler bound to
// a temp profile, and writes a PID file naming the current (definitely
// alive) test process, so daemon.IsRunningAt reports true against it.
func newLiveLayout(t *testing.T) *paths.Layout {
	t.Helper()
	dir := t.TempDir()
	layout := paths.New(dir)
	require.NoError(t, layout.EnsureDirectories())

	st, err := store.OpenAndMigrate(layout.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	server := ipc.NewServer(layout.SockPath, nil)
	require.NoError(t, server.Start())
	t.Cleanup(func() { server.Stop() })

	sched := scheduler.New(scheduler.Settings{PromptInterval: 60}, nil, nil)
	m := monitor.New(st, server, sched, nil)
	require.NoError(t, m.Start(nil))
	t.Cleanup(m.Stop)

	require.NoError(t, os.WriteFile(layout.PIDPath, []byte(strconv.Itoa(os.Getpid())), 0o644))
	return layout
}

func TestBuildStatusReportWhenNotRunning(t *testing.T) {
	dir := t.TempDir()
	layout := paths.New(dir)

	report := BuildStatusReport(layout)
	assert.False(t, report.Running)
	assert.Nil(t, report.Live)
	assert.Equal(t, layout.ConfigPath, report.ConfigPath)
	assert.Contains(t, report.Format(), "STOPPED")
}

func TestBuildStatusReportWhenRunning(t *testing.T) {
	layout := newLiveLayout(t)

	report := BuildStatusReport(layout)
	require.True(t, report.Running)
	require.NotNil(t, report.Live)
	assert.Equal(t, 60, report.Live.IntervalMinutes)
	assert.Contains(t, report.Format(), "RUNNING")
}

func TestPauseAndResumeRoundTrip(t *testing.T) {
	layout := newLiveLayout(t)

	result, err := Pause(layout)
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "paused")

	status := BuildStatusReport(layout)
	require.NotNil(t, status.Live)
	assert.True(t, status.Live.IsPaused)

	result, err = Resume(layout)
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "resumed")

	status = BuildStatusReport(layout)
	require.NotNil(t, status.Live)
	assert.False(t, status.Live.IsPaused)
}

func TestForceTriggerReportsInitiated(t *testing.T) {
	layout := newLiveLayout(t)

	result, err := ForceTrigger(layout)
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "initiated")
}

func TestSkipNextAdvancesNextTrigger(t *testing.T) {
	layout := newLiveLayout(t)

	before := BuildStatusReport(layout)
	require.NotNil(t, before.Live)

	result, err := SkipNext(layout)
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "skipped")

	after := BuildStatusReport(layout)
	require.NotNil(t, after.Live)
	assert.True(t, after.Live.NextTrigger.After(before.Live.NextTrigger))
}

func TestSendSummaryDispatchesPromptRequest(t *testing.T) {
	layout := newLiveLayout(t)

	result, err := SendSummary(layout)
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "intelligence process")
}

func TestActionsFailWhenDaemonNotRunning(t *testing.T) {
	dir := t.TempDir()
	layout := paths.New(dir)

	for _, fn := range []func(*paths.Layout) (ActionResult, error){
		Pause, Resume, ForceTrigger, SkipNext, SendSummary,
	} {
		result, err := fn(layout)
		require.Error(t, err)
		assert.True(t, IsNotRunning(err))
		assert.Contains(t, result.Summary, "not running")
	}
}

func TestActionResultStringIncludesNextStep(t *testing.T) {
	r := ActionResult{Summary: "✓ done", NextStep: "do something else"}
	assert.Contains(t, r.String(), "do something else")

	bare := ActionResult{Summary: "✓ done"}
	assert.Equal(t, "✓ done", bare.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "less than a minute", formatDuration(30*time.Second))
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h 5m", formatDuration(2*time.Hour+5*time.Minute))
	assert.Equal(t, "1d 0h 5m", formatDuration(24*time.Hour+5*time.Minute))
}
