package control

import (
	"errors"
	"fmt"

	"github.com/devtrackd/devtrackd/internal/daemon"
	"github.com/devtrackd/devtrackd/internal/paths"
)

// ActionResult is a rendered, user-facing outcome for one control
// subcommand: an icon-prefixed summary plus an optional next step.
type ActionResult struct {
	Summary  string
	NextStep string
}

func (r ActionResult) String() string {
	if r.NextStep == "" {
		return r.Summary
	}
	return r.Summary + "\n\n" + r.NextStep
}

// Pause requires the daemon to be running; it fails with a user-facing
// message otherwise.
func Pause(layout *paths.Layout) (ActionResult, error) {
	if !daemon.IsRunningAt(layout.PIDPath) {
		return notRunningResult(), ErrDaemonNotRunning
	}
	if _, err := NewClient(layout).Pause(); err != nil {
		return ActionResult{}, fmt.Errorf("control: pause: %w", err)
	}
	return ActionResult{
		Summary:  "✓ Scheduler paused",
		NextStep: "Git monitoring is still active. Use 'devtrackd resume' to resume the scheduler.",
	}, nil
}

// Resume mirrors Pause for the opposite transition.
func Resume(layout *paths.Layout) (ActionResult, error) {
	if !daemon.IsRunningAt(layout.PIDPath) {
		return notRunningResult(), ErrDaemonNotRunning
	}
	if _, err := NewClient(layout).Resume(); err != nil {
		return ActionResult{}, fmt.Errorf("control: resume: %w", err)
	}
	return ActionResult{Summary: "✓ Scheduler resumed"}, nil
}

// ForceTrigger requires the daemon to be running.
func ForceTrigger(layout *paths.Layout) (ActionResult, error) {
	if !daemon.IsRunningAt(layout.PIDPath) {
		return notRunningResult(), ErrDaemonNotRunning
	}
	if _, err := NewClient(layout).ForceTrigger(); err != nil {
		return ActionResult{}, fmt.Errorf("control: force-trigger: %w", err)
	}
	return ActionResult{Summary: "⚡ Trigger initiated"}, nil
}

// SkipNext requires the daemon to be running.
func SkipNext(layout *paths.Layout) (ActionResult, error) {
	if !daemon.IsRunningAt(layout.PIDPath) {
		return notRunningResult(), ErrDaemonNotRunning
	}
	status, err := NewClient(layout).SkipNext()
	if err != nil {
		return ActionResult{}, fmt.Errorf("control: skip-next: %w", err)
	}
	return ActionResult{
		Summary:  "⏭ Next trigger skipped",
		NextStep: fmt.Sprintf("New next trigger: %s", status.NextTrigger.Format("2006-01-02 15:04:05")),
	}, nil
}

// SendSummary requires the daemon to be running. It only asks the
// daemon to forward a prompt_request to its connected peer; rendering
// the report itself is out of scope.
func SendSummary(layout *paths.Layout) (ActionResult, error) {
	if !daemon.IsRunningAt(layout.PIDPath) {
		return notRunningResult(), ErrDaemonNotRunning
	}
	if _, err := NewClient(layout).SendSummary(); err != nil {
		return ActionResult{}, fmt.Errorf("control: send-summary: %w", err)
	}
	return ActionResult{Summary: "📤 Forwarded to the intelligence process"}, nil
}

func notRunningResult() ActionResult {
	return ActionResult{
		Summary:  "❌ devtrackd is not running",
		NextStep: "Start it first: devtrackd start",
	}
}

// IsNotRunning reports whether err is the sentinel returned for actions
// requiring a running daemon.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrDaemonNotRunning)
}
