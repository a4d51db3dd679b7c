// Package daemon supervises the devtrackd process lifecycle: single
// instance enforcement via a PID file, graceful and forced shutdown, and
// signal-driven config reload.
package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devtrackd/devtrackd/internal/monitor"
	"github.com/devtrackd/devtrackd/internal/paths"
	"github.com/devtrackd/devtrackd/internal/scheduler"
	"github.com/devtrackd/devtrackd/internal/store"
)

// Status is the control surface's view of the supervisor.
type Status struct {
	Running      bool
	PID          int
	Uptime       time.Duration
	StartTime    time.Time
	ConfigPath   string
	LogPath      string
	PIDPath      string
	TriggerCount int
	LastTrigger  time.Time
}

// Daemon owns the long-running process: it writes/removes the PID file,
// redirects logs, wires signal handling, and delegates actual monitoring
// to a Monitor and Scheduler constructed by the caller.
type Daemon struct {
	layout    *paths.Layout
	st        *store.Store
	mon       *monitor.Monitor
	sched     *scheduler.Scheduler
	reload    func() error
	log       *logrus.Logger
	logOutput *os.File

	mu      sync.Mutex
	running bool
}

// New constructs a Daemon. reload is invoked on SIGHUP to pick up
// configuration changes without a restart; it may be nil.
func New(layout *paths.Layout, st *store.Store, mon *monitor.Monitor, sched *scheduler.Scheduler, reload func() error) *Daemon {
	return &Daemon{
		layout: layout,
		st:     st,
		mon:    mon,
		sched:  sched,
		reload: reload,
		log:    logrus.New(),
	}
}

// IsRunning reports whether the PID file names a live process.
func (d *Daemon) IsRunning() bool {
	pid, err := readPID(d.layout.PIDPath)
	if err != nil {
		return false
	}
	return processAlive(pid)
}

// Start enforces the single-instance guarantee, redirects logging,
// writes the PID file, starts the monitoring pipeline, and blocks until
// a termination signal is received.
func (d *Daemon) Start(repos []monitor.TrackedRepo) error {
	if d.IsRunning() {
		return ErrAlreadyRunning
	}
	if err := removeStalePIDFile(d.layout.PIDPath); err != nil {
		return fmt.Errorf("daemon: remove stale pid file: %w", err)
	}

	if err := d.setupLogging(); err != nil {
		return fmt.Errorf("daemon: setup logging: %w", err)
	}

	if err := writePIDAtomic(d.layout.PIDPath); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"pid_file": d.layout.PIDPath,
		"log_file": d.layout.LogPath,
	}).Info("starting devtrackd")

	if err := d.mon.Start(repos); err != nil {
		d.cleanup()
		return fmt.Errorf("daemon: start monitor: %w", err)
	}

	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		sig := <-sigCh
		d.log.WithField("signal", sig).Info("received signal")

		if sig == syscall.SIGHUP {
			d.handleReload()
			continue
		}

		d.shutdown()
		return nil
	}
}

// Stop requests a graceful shutdown of an in-process Daemon (used by
// tests and by in-process callers that don't go through signal delivery).
func (d *Daemon) Stop() error {
	if !d.running && !d.IsRunning() {
		return ErrNotRunning
	}
	d.shutdown()
	return nil
}

func (d *Daemon) shutdown() {
	d.log.Info("shutting down")

	d.mon.Stop()

	if d.st != nil {
		if err := d.st.Close(); err != nil {
			d.log.WithError(err).Warn("failed to close store cleanly")
		}
	}

	d.cleanup()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	if d.logOutput != nil {
		d.logOutput.Close()
	}

	d.log.Info("devtrackd stopped")
}

func (d *Daemon) handleReload() {
	if d.reload == nil {
		return
	}
	if err := d.reload(); err != nil {
		d.log.WithError(err).Error("failed to reload configuration")
		return
	}
	d.log.Info("configuration reloaded")
}

// Pause pauses the scheduler without stopping the daemon.
func (d *Daemon) Pause() error {
	if !d.IsRunning() {
		return ErrNotRunning
	}
	d.sched.Pause()
	return nil
}

// Resume resumes the scheduler.
func (d *Daemon) Resume() error {
	if !d.IsRunning() {
		return ErrNotRunning
	}
	d.sched.Resume()
	return nil
}

// Status reports the supervisor's current state for the control surface.
func (d *Daemon) Status() Status {
	status := Status{
		ConfigPath: d.layout.ConfigPath,
		LogPath:    d.layout.LogPath,
		PIDPath:    d.layout.PIDPath,
		Running:    d.IsRunning(),
	}

	if !status.Running {
		return status
	}

	if pid, err := readPID(d.layout.PIDPath); err == nil {
		status.PID = pid
	}

	if d.sched != nil {
		stats := d.sched.GetStats()
		status.TriggerCount = stats.TriggerCount
		status.LastTrigger = stats.LastTrigger
	}

	if info, err := os.Stat(d.layout.LogPath); err == nil {
		status.StartTime = info.ModTime()
		status.Uptime = time.Since(status.StartTime)
	}

	return status
}

func (d *Daemon) setupLogging() error {
	f, err := os.OpenFile(d.layout.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	d.logOutput = f
	d.log.SetOutput(f)
	d.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func (d *Daemon) cleanup() {
	if err := os.Remove(d.layout.PIDPath); err != nil && !os.IsNotExist(err) {
		d.log.WithError(err).Warn("failed to remove pid file")
	}
}
