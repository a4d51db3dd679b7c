// Package monitor fans commit and timer events into a single trigger
// pipeline: persist to the event store, then publish over IPC.
package monitor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devtrackd/devtrackd/internal/gitwatch"
	"github.com/devtrackd/devtrackd/internal/ipc"
	"github.com/devtrackd/devtrackd/internal/scheduler"
	"github.com/devtrackd/devtrackd/internal/store"
)

// TrackedRepo is one repository the monitor watches, resolved from config.
type TrackedRepo struct {
	Path    string
	Project string
}

// Monitor wires a Git watcher per tracked repository and one scheduler
// into the event store and the IPC server.
type Monitor struct {
	store     *store.Store
	ipcServer *ipc.Server
	scheduler *scheduler.Scheduler
	log       *logrus.Entry

	mu       sync.Mutex
	watchers map[string]*gitwatch.Watcher
	started  bool
}

// New constructs a Monitor. The caller supplies already-constructed
// collaborators (store, ipc server, scheduler) following the explicit
// dependency-passing used throughout this module, rather than having
// Monitor reach for global config or package-level state itself.
func New(st *store.Store, ipcServer *ipc.Server, sched *scheduler.Scheduler, log *logrus.Entry) *Monitor {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Monitor{
		store:     st,
		ipcServer: ipcServer,
		scheduler: sched,
		log:       log.WithField("component", "monitor"),
		watchers:  make(map[string]*gitwatch.Watcher),
	}
}

// Start binds the IPC server, registers its handlers, starts a Git
// watcher for each repo, and starts the scheduler.
func (m *Monitor) Start(repos []TrackedRepo) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.registerIPCHandlers()

	if m.ipcServer != nil {
		if err := m.ipcServer.Start(); err != nil {
			return fmt.Errorf("monitor: start ipc server: %w", err)
		}
	}

	for _, r := range repos {
		w, err := gitwatch.New(r.Path, m.log)
		if err != nil {
			m.log.WithError(err).WithField("repo", r.Path).Error("skipping unwatchable repository")
			continue
		}

		repoPath := r.Path
		if err := w.Start(func(c gitwatch.CommitInfo) { m.handleCommit(repoPath, c) }); err != nil {
			m.log.WithError(err).WithField("repo", r.Path).Error("failed to start watcher")
			continue
		}

		m.mu.Lock()
		m.watchers[r.Path] = w
		m.mu.Unlock()
	}

	if m.scheduler != nil {
		if err := m.scheduler.Start(); err != nil {
			return fmt.Errorf("monitor: start scheduler: %w", err)
		}
	}

	m.log.Info("integrated monitor started")
	return nil
}

// Stop publishes a shutdown message, gives peers a short grace period to
// observe it, then stops every watcher and the scheduler.
func (m *Monitor) Stop() {
	if m.ipcServer != nil {
		if msg, err := ipc.NewShutdown(); err == nil {
			m.ipcServer.SendMessage(msg)
		}
		time.Sleep(500 * time.Millisecond)
	}

	m.mu.Lock()
	watchers := m.watchers
	m.watchers = make(map[string]*gitwatch.Watcher)
	m.started = false
	m.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}

	if m.scheduler != nil {
		m.scheduler.Stop()
	}

	if m.ipcServer != nil {
		if err := m.ipcServer.Stop(); err != nil {
			m.log.WithError(err).Warn("failed to stop ipc server cleanly")
		}
	}

	m.log.Info("integrated monitor stopped")
}

// NewTimerHandler returns the callback to pass to scheduler.New, closing
// over this Monitor so a TimerTrigger is persisted and published the
// same way a commit is.
func (m *Monitor) NewTimerHandler() func(scheduler.TimerTrigger) {
	return m.handleTimer
}

func (m *Monitor) handleCommit(repoPath string, c gitwatch.CommitInfo) {
	data := ipc.CommitTriggerData{
		RepoPath:      repoPath,
		CommitHash:    c.Hash,
		CommitMessage: c.Message,
		Author:        c.Author,
		Timestamp:     c.Timestamp.Format(time.RFC3339),
		FilesChanged:  c.Files,
		Branch:        c.Branch,
	}

	triggerData, _ := json.Marshal(data)
	triggerID, err := m.store.InsertTrigger(store.Trigger{
		TriggerType:   "commit",
		Timestamp:     c.Timestamp,
		Source:        "git_watcher",
		RepoPath:      repoPath,
		CommitHash:    c.Hash,
		CommitMessage: c.Message,
		Author:        c.Author,
		Data:          string(triggerData),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to persist commit trigger")
	} else {
		m.log.WithField("trigger_id", triggerID).Info("persisted commit trigger")
	}

	msg, err := ipc.NewCommitTrigger(data)
	if err != nil {
		m.log.WithError(err).Error("failed to encode commit trigger message")
		return
	}
	if m.ipcServer != nil {
		if err := m.ipcServer.SendMessage(msg); err != nil {
			m.log.WithError(err).Error("failed to publish commit trigger")
		}
	}
}

func (m *Monitor) handleTimer(t scheduler.TimerTrigger) {
	data := ipc.TimerTriggerData{
		Timestamp:    t.Timestamp.Format(time.RFC3339),
		IntervalMins: t.IntervalMins,
		TriggerCount: t.TriggerCount,
	}

	triggerData, _ := json.Marshal(data)
	triggerID, err := m.store.InsertTrigger(store.Trigger{
		TriggerType: "timer",
		Timestamp:   t.Timestamp,
		Source:      "scheduler",
		Data:        string(triggerData),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to persist timer trigger")
	} else {
		m.log.WithField("trigger_id", triggerID).Info("persisted timer trigger")
	}

	msg, err := ipc.NewTimerTrigger(data)
	if err != nil {
		m.log.WithError(err).Error("failed to encode timer trigger message")
		return
	}
	if m.ipcServer != nil {
		if err := m.ipcServer.SendMessage(msg); err != nil {
			m.log.WithError(err).Error("failed to publish timer trigger")
		}
	}
}

func (m *Monitor) registerIPCHandlers() {
	if m.ipcServer == nil {
		return
	}

	m.ipcServer.RegisterHandler(ipc.TypeTaskUpdate, func(clientID string, msg ipc.Message) error {
		var data ipc.TaskUpdateData
		if err := ipc.Decode(msg, &data); err != nil {
			return err
		}

		_, err := m.store.InsertTaskUpdate(store.TaskUpdate{
			Timestamp:  time.Now(),
			Project:    data.Project,
			TicketID:   data.TicketID,
			UpdateText: data.Description,
			Status:     data.Status,
			Synced:     false,
			Platform:   "pending",
		})
		return err
	})

	m.ipcServer.RegisterHandler(ipc.TypeResponse, func(clientID string, msg ipc.Message) error {
		var data ipc.ResponseData
		if err := ipc.Decode(msg, &data); err != nil {
			return err
		}

		if _, err := m.store.InsertResponse(store.Response{
			TriggerID:   data.TriggerID,
			Timestamp:   time.Now(),
			Project:     data.Project,
			TicketID:    data.TicketID,
			Description: data.Description,
			TimeSpent:   data.TimeSpent,
			Status:      data.Status,
			RawInput:    data.RawInput,
		}); err != nil {
			return fmt.Errorf("monitor: persist response: %w", err)
		}

		if err := m.store.MarkTriggerProcessed(data.TriggerID); err != nil {
			return fmt.Errorf("monitor: mark trigger processed: %w", err)
		}
		return nil
	})

	m.ipcServer.RegisterHandler(ipc.TypeError, func(clientID string, msg ipc.Message) error {
		return m.store.InsertLog(store.LogEntry{
			Timestamp: time.Now(),
			Level:     "error",
			Component: "ipc_peer",
			Message:   msg.Error,
		})
	})

	m.ipcServer.RegisterHandler(ipc.TypeAck, func(clientID string, msg ipc.Message) error {
		var data ipc.AckData
		if err := ipc.Decode(msg, &data); err != nil {
			return err
		}
		m.log.WithField("acknowledged_id", data.AcknowledgedID).Debug("received ack")
		return nil
	})

	m.ipcServer.RegisterHandler(ipc.TypeControlCommand, m.handleControlCommand)
}

// handleControlCommand applies a control surface action, if any, then
// replies to the requesting client with a fresh status snapshot.
func (m *Monitor) handleControlCommand(clientID string, msg ipc.Message) error {
	var cmd ipc.ControlCommandData
	if err := ipc.Decode(msg, &cmd); err != nil {
		return err
	}

	if m.scheduler != nil {
		switch cmd.Action {
		case "pause":
			m.scheduler.Pause()
		case "resume":
			m.scheduler.Resume()
		case "force_trigger":
			m.scheduler.ForceImmediate()
		case "skip_next":
			m.scheduler.SkipNext()
		case "status":
			// no-op: just report the current snapshot
		case "send_summary":
			m.dispatchSummaryRequest()
		default:
			m.log.WithField("action", cmd.Action).Warn("unknown control action")
		}
	}

	reply, err := ipc.NewControlStatus(msg.ID, m.controlSnapshot(cmd.Action))
	if err != nil {
		return err
	}
	if m.ipcServer == nil {
		return nil
	}
	return m.ipcServer.SendTo(clientID, reply)
}

// dispatchSummaryRequest forwards a prompt_request to any connected peer
// (the intelligence process). Rendering the resulting report is out of
// scope here; this only asks the daemon to ask its peer.
func (m *Monitor) dispatchSummaryRequest() {
	if m.ipcServer == nil {
		return
	}
	msg, err := ipc.NewPromptRequest(ipc.PromptRequestData{})
	if err != nil {
		m.log.WithError(err).Error("failed to encode prompt request")
		return
	}
	if err := m.ipcServer.SendMessage(msg); err != nil {
		m.log.WithError(err).Error("failed to dispatch prompt request")
	}
}

func (m *Monitor) controlSnapshot(action string) ipc.ControlStatusData {
	snapshot := ipc.ControlStatusData{Action: action}

	if m.scheduler != nil {
		stats := m.scheduler.GetStats()
		work := m.scheduler.GetWorkHoursStatus()

		snapshot.IsPaused = stats.IsPaused
		snapshot.TriggerCount = stats.TriggerCount
		snapshot.LastTrigger = stats.LastTrigger
		snapshot.NextTrigger = stats.NextTrigger
		snapshot.IntervalMinutes = stats.IntervalMinutes
		snapshot.TimeUntilNext = stats.TimeUntilNext.String()
		snapshot.WorkHoursOnly = work.Enabled
		snapshot.IsWorkHours = work.IsWorkHours
		snapshot.NextWorkStart = work.NextWorkStart
	}

	m.mu.Lock()
	snapshot.WatchedRepos = len(m.watchers)
	m.mu.Unlock()

	return snapshot
}
