package control

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devtrackd/devtrackd/internal/daemon"
	"github.com/devtrackd/devtrackd/internal/ipc"
	"github.com/devtrackd/devtrackd/internal/paths"
)

// StatusReport is everything the "status" subcommand needs to render:
// running state, PID, uptime derived from the log file's modification
// time, trigger counts, scheduler gate state, and file paths. Live is
// nil when the daemon isn't running or didn't answer in time; status
// must still render in that case.
type StatusReport struct {
	Running    bool
	PID        int
	StartTime  time.Time
	Uptime     time.Duration
	ConfigPath string
	LogPath    string
	PIDPath    string
	Live       *ipc.ControlStatusData
}

// BuildStatusReport assembles a status snapshot for layout's profile.
// It never errors: an unreachable or stopped daemon simply yields a
// report with Running=false and a nil Live section, so status still
// renders even when no repository is detected.
func BuildStatusReport(layout *paths.Layout) *StatusReport {
	report := &StatusReport{
		ConfigPath: layout.ConfigPath,
		LogPath:    layout.LogPath,
		PIDPath:    layout.PIDPath,
	}

	report.Running = daemon.IsRunningAt(layout.PIDPath)
	if !report.Running {
		return report
	}

	if pid, err := daemon.ReadPID(layout.PIDPath); err == nil {
		report.PID = pid
	}
	if info, err := os.Stat(layout.LogPath); err == nil {
		report.StartTime = info.ModTime()
		report.Uptime = time.Since(report.StartTime)
	}

	if live, err := NewClient(layout).Status(); err == nil {
		report.Live = &live
	}

	return report
}

// Format renders the report the way the control surface prints it:
// a title, a status summary, then grouped detail sections.
func (r *StatusReport) Format() string {
	var b strings.Builder

	fmt.Fprintln(&b, "DevTrack Daemon Status")
	fmt.Fprintln(&b, strings.Repeat("=", 23))
	fmt.Fprintln(&b)

	if r.Running {
		fmt.Fprintln(&b, "Status:     RUNNING")
		fmt.Fprintf(&b, "PID:        %d\n", r.PID)
		if !r.StartTime.IsZero() {
			fmt.Fprintf(&b, "Uptime:     %s\n", formatDuration(r.Uptime))
			fmt.Fprintf(&b, "Started:    %s\n", r.StartTime.Format(time.RFC1123))
		}
		if r.Live != nil {
			if r.Live.TriggerCount > 0 {
				fmt.Fprintf(&b, "Triggers:   %d\n", r.Live.TriggerCount)
			}
			if !r.Live.LastTrigger.IsZero() {
				fmt.Fprintf(&b, "Last:       %s\n", r.Live.LastTrigger.Format(time.RFC1123))
			}
		}
	} else {
		fmt.Fprintln(&b, "Status:     STOPPED")
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Configuration:")
	fmt.Fprintf(&b, "  Config:   %s\n", r.ConfigPath)
	fmt.Fprintf(&b, "  Logs:     %s\n", r.LogPath)
	fmt.Fprintf(&b, "  PID file: %s\n", r.PIDPath)

	if r.Running && r.Live != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Scheduler:")
		fmt.Fprintf(&b, "  Paused:         %v\n", r.Live.IsPaused)
		fmt.Fprintf(&b, "  Interval:       %d minutes\n", r.Live.IntervalMinutes)
		fmt.Fprintf(&b, "  Next trigger:   %s\n", r.Live.NextTrigger.Format(time.RFC1123))
		fmt.Fprintf(&b, "  Time until:     %s\n", r.Live.TimeUntilNext)
		fmt.Fprintf(&b, "  Watched repos:  %d\n", r.Live.WatchedRepos)

		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Work hours:")
		if r.Live.WorkHoursOnly {
			fmt.Fprintf(&b, "  Gate:     %s\n", workHoursState(r.Live.IsWorkHours))
			if !r.Live.IsWorkHours {
				fmt.Fprintf(&b, "  Reopens:  %s\n", r.Live.NextWorkStart.Format(time.RFC1123))
			}
		} else {
			fmt.Fprintln(&b, "  Gate:     disabled (always open)")
		}
	} else if r.Running {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Scheduler: unavailable (daemon did not respond)")
	}

	return b.String()
}

func workHoursState(isWorkHours bool) string {
	if isWorkHours {
		return "open"
	}
	return "closed"
}

// formatDuration renders d the way the original source's status output
// did: days/hours/minutes collapsed to the coarsest useful unit.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
