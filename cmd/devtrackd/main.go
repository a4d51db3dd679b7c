// Command devtrackd is the developer-activity tracking daemon and its
// control surface: a single binary that supervises Git watchers and a
// scheduled-prompt timer, persists what they observe, and publishes it
// over a local IPC socket for an external intelligence process to
// consume.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devtrackd/devtrackd/internal/config"
	"github.com/devtrackd/devtrackd/internal/control"
	"github.com/devtrackd/devtrackd/internal/daemon"
	"github.com/devtrackd/devtrackd/internal/githook"
	"github.com/devtrackd/devtrackd/internal/ipc"
	"github.com/devtrackd/devtrackd/internal/monitor"
	"github.com/devtrackd/devtrackd/internal/paths"
	"github.com/devtrackd/devtrackd/internal/scheduler"
	"github.com/devtrackd/devtrackd/internal/store"
)

// version is overwritten at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "devtrackd",
		Short: "Developer activity tracking daemon",
		Long:  "devtrackd watches Git repositories and a scheduled timer, records what it observes, and publishes it over a local IPC socket.",
	}

	root.AddCommand(
		startCmd(),
		stopCmd(),
		restartCmd(),
		statusCmd(),
		pauseCmd(),
		resumeCmd(),
		logsCmd(),
		dbStatsCmd(),
		forceTriggerCmd(),
		skipNextCmd(),
		sendSummaryCmd(),
		versionCmd(),
	)
	return root
}

// buildLayout resolves the profile directory, honoring DEVTRACKD_HOME
// for tests and operators who want an isolated profile, matching the
// explicit-profile-directory approach described in internal/paths.
func buildLayout() (*paths.Layout, error) {
	if root := os.Getenv("DEVTRACKD_HOME"); root != "" {
		layout := paths.New(root)
		return layout, layout.EnsureDirectories()
	}

	layout, err := paths.Default()
	if err != nil {
		return nil, fmt.Errorf("resolve profile directory: %w", err)
	}
	return layout, layout.EnsureDirectories()
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := buildLayout()
			if err != nil {
				return err
			}

			if daemon.IsRunningAt(layout.PIDPath) {
				pid, _ := daemon.ReadPID(layout.PIDPath)
				fmt.Printf("❌ Daemon is already running (PID: %d)\n", pid)
				fmt.Println("Use 'devtrackd status' to see details, or 'devtrackd restart'.")
				return nil
			}

			d, cfg, err := buildDaemon(layout)
			if err != nil {
				return err
			}

			fmt.Println("🚀 Starting devtrackd...")
			return d.Start(trackedRepos(cfg))
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := buildLayout()
			if err != nil {
				return err
			}
			if !daemon.IsRunningAt(layout.PIDPath) {
				fmt.Println("❌ Daemon is not running")
				return nil
			}

			fmt.Println("⏹️  Stopping devtrackd...")
			if err := daemon.Kill(layout.PIDPath); err != nil {
				fmt.Printf("❌ Failed to stop daemon: %v\n", err)
				return err
			}
			fmt.Println("✓ Daemon stopped")
			return nil
		},
	}
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := buildLayout()
			if err != nil {
				return err
			}
			if daemon.IsRunningAt(layout.PIDPath) {
				fmt.Println("Stopping current instance...")
				if err := daemon.Kill(layout.PIDPath); err != nil {
					return err
				}
			}

			d, cfg, err := buildDaemon(layout)
			if err != nil {
				return err
			}

			fmt.Println("🔄 Restarting devtrackd...")
			return d.Start(trackedRepos(cfg))
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := buildLayout()
			if err != nil {
				return err
			}
			report := control.BuildStatusReport(layout)
			fmt.Print(report.Format())
			return nil
		},
	}
}

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the scheduler without stopping the daemon",
		RunE:  runAction(control.Pause),
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused scheduler",
		RunE:  runAction(control.Resume),
	}
}

func forceTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force-trigger",
		Short: "Fire an immediate timer trigger, bypassing pause and work hours",
		RunE:  runAction(control.ForceTrigger),
	}
}

func skipNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip-next",
		Short: "Skip the next scheduled trigger",
		RunE:  runAction(control.SkipNext),
	}
}

func sendSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-summary",
		Short: "Ask the daemon to forward a summary request to the intelligence process",
		RunE:  runAction(control.SendSummary),
	}
}

// runAction adapts a control package action function (which requires a
// running daemon) into a cobra RunE. It always prints the user-facing
// result and exits non-zero on failure, without also printing the
// underlying error (that would duplicate the friendly message already
// shown).
func runAction(action func(*paths.Layout) (control.ActionResult, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		layout, err := buildLayout()
		if err != nil {
			return err
		}

		result, actionErr := action(layout)
		fmt.Println(result.String())
		if actionErr != nil {
			os.Exit(1)
		}
		return nil
	}
}

func logsCmd() *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := buildLayout()
			if err != nil {
				return err
			}
			entries, err := daemon.GetLogs(layout.LogPath, lines)
			if err != nil {
				fmt.Printf("❌ Failed to read logs: %v\n", err)
				return err
			}
			for _, line := range entries {
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines to show")
	return cmd
}

func dbStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "db-stats",
		Short: "Report row counts across the event store",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := buildLayout()
			if err != nil {
				return err
			}

			st, err := store.Open(layout.DBPath)
			if err != nil {
				fmt.Printf("❌ Failed to open database: %v\n", err)
				return err
			}
			defer st.Close()

			stats, err := st.GetStats()
			if err != nil {
				fmt.Printf("❌ Failed to read stats: %v\n", err)
				return err
			}

			fmt.Println("📊 Database stats")
			fmt.Printf("  Database:          %s\n", stats.DatabasePath)
			fmt.Printf("  Triggers:          %d\n", stats.Triggers)
			fmt.Printf("  Responses:         %d\n", stats.Responses)
			fmt.Printf("  Task updates:      %d\n", stats.TaskUpdates)
			fmt.Printf("  Unsynced updates:  %d\n", stats.UnsyncedUpdates)
			fmt.Printf("  Log entries:       %d\n", stats.Logs)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devtrackd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("devtrackd " + version)
			return nil
		},
	}
}

// buildDaemon wires every collaborator together: config store, event
// store, IPC server, scheduler and monitor. The returned Daemon's SIGHUP
// handler re-reads and parses the config file and logs a failure, but
// does not apply the result: the running scheduler and monitor keep the
// settings and repository list they were built with until a restart.
func buildDaemon(layout *paths.Layout) (*daemon.Daemon, *config.Config, error) {
	cfgStore := config.NewStore(layout.ConfigPath)

	cfg, err := cfgStore.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.OpenAndMigrate(layout.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open event store: %w", err)
	}

	log := logrus.NewEntry(logrus.New())
	ipcServer := ipc.NewServer(layout.SockPath, log)

	// Scheduler and monitor reference each other (the scheduler calls the
	// monitor's timer handler; the monitor stops the scheduler), so the
	// scheduler is built with no callback and wired up once the monitor
	// exists.
	sched := scheduler.New(scheduler.Settings{
		PromptInterval: cfg.Settings.PromptInterval,
		WorkHoursOnly:  cfg.Settings.WorkHoursOnly,
		WorkStartHour:  cfg.Settings.WorkStartHour,
		WorkEndHour:    cfg.Settings.WorkEndHour,
	}, nil, log)

	mon := monitor.New(st, ipcServer, sched, log)
	sched.SetOnTrigger(mon.NewTimerHandler())

	for _, repo := range cfg.Repositories {
		if !repo.Enabled {
			continue
		}
		if err := githook.Install(repo.Path, layout.CommitLog); err != nil {
			log.WithError(err).WithField("repo", repo.Path).Warn("failed to install post-commit hook")
		}
	}

	d := daemon.New(layout, st, mon, sched, func() error {
		_, err := cfgStore.Load()
		return err
	})

	return d, cfg, nil
}

func trackedRepos(cfg *config.Config) []monitor.TrackedRepo {
	var repos []monitor.TrackedRepo
	for _, r := range cfg.Repositories {
		if !r.Enabled {
			continue
		}
		repos = append(repos, monitor.TrackedRepo{Path: r.Path, Project: r.Project})
	}
	return repos
}
