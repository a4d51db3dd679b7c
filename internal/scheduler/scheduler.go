// Package scheduler fires a wall-clock-aligned interval trigger.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultIntervalMinutes = 180
	minIntervalMinutes     = 1
)

// TimerTrigger is the payload handed to onTrigger for a regular firing.
type TimerTrigger struct {
	Timestamp    time.Time
	TriggerCount int
	IntervalMins int
}

// Stats mirrors the control surface's "status" view of the scheduler.
type Stats struct {
	IsPaused        bool
	TriggerCount    int
	LastTrigger     time.Time
	NextTrigger     time.Time
	IntervalMinutes int
	TimeUntilNext   time.Duration
}

// WorkHoursStatus reports whether the work-hours gate is currently open.
type WorkHoursStatus struct {
	Enabled       bool
	CurrentHour   int
	WorkStartHour int
	WorkEndHour   int
	IsWorkHours   bool
	NextWorkStart time.Time // zero if IsWorkHours or gate disabled
}

// Settings is the subset of config.Settings the scheduler needs, kept
// narrow so this package doesn't import internal/config.
type Settings struct {
	PromptInterval int
	WorkHoursOnly  bool
	WorkStartHour  int
	WorkEndHour    int
}

// Scheduler fires onTrigger at a fixed, wall-clock-aligned interval,
// gated by pause state and an optional work-hours window.
type Scheduler struct {
	cron      *cron.Cron
	onTrigger func(TimerTrigger)
	log       *logrus.Entry

	mu           sync.Mutex
	settings     Settings
	entryID      cron.EntryID
	isPaused     bool
	lastTrigger  time.Time
	nextTrigger  time.Time
	triggerCount int
	running      bool
}

// New constructs a Scheduler; it does not start firing until Start is called.
func New(settings Settings, onTrigger func(TimerTrigger), log *logrus.Entry) *Scheduler {
	if settings.PromptInterval <= 0 {
		settings.PromptInterval = defaultIntervalMinutes
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}

	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		onTrigger: onTrigger,
		log:       log.WithField("component", "scheduler"),
		settings:  settings,
	}
}

// SetOnTrigger installs the trigger callback. It exists so callers can
// resolve the construction cycle between a scheduler and the component
// whose handler it calls (see internal/monitor); call it before Start.
func (s *Scheduler) SetOnTrigger(fn func(TimerTrigger)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTrigger = fn
}

// Start registers the cron job for the configured interval and begins
// the underlying cron scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(cronExpr(s.settings.PromptInterval), func() {
		s.fire(false)
	})
	if err != nil {
		return fmt.Errorf("scheduler: add cron job: %w", err)
	}

	s.entryID = id
	s.running = true
	s.cron.Start()
	s.updateNextTriggerLocked()

	s.log.WithField("next_trigger", s.nextTrigger).Info("scheduler started")
	return nil
}

// Stop halts the cron scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.running = false
	s.mu.Unlock()

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
	}
	s.log.Info("scheduler stopped")
}

// Pause is idempotent; nextTrigger keeps advancing while paused so
// Resume doesn't produce a backlog of missed firings.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isPaused {
		return
	}
	s.isPaused = true
	s.log.Info("scheduler paused")
}

// Resume recomputes nextTrigger relative to now.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isPaused {
		return
	}
	s.isPaused = false
	s.updateNextTriggerLocked()
	s.log.WithField("next_trigger", s.nextTrigger).Info("scheduler resumed")
}

// IsPaused reports the current pause state.
func (s *Scheduler) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPaused
}

// SetInterval atomically replaces the schedule; existing pause state is
// preserved.
func (s *Scheduler) SetInterval(minutes int) error {
	if minutes < minIntervalMinutes {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Remove(s.entryID)
	s.settings.PromptInterval = minutes

	id, err := s.cron.AddFunc(cronExpr(minutes), func() {
		s.fire(false)
	})
	if err != nil {
		return fmt.Errorf("scheduler: update cron job: %w", err)
	}

	s.entryID = id
	s.updateNextTriggerLocked()

	s.log.WithFields(logrus.Fields{"interval_minutes": minutes, "next_trigger": s.nextTrigger}).Info("interval updated")
	return nil
}

// ForceImmediate invokes onTrigger exactly once, out-of-band, ignoring
// pause state and the work-hours gate, and without advancing nextTrigger.
func (s *Scheduler) ForceImmediate() {
	s.log.Info("forcing immediate trigger")
	go s.fire(true)
}

// SkipNext advances nextTrigger by exactly one configured interval.
func (s *Scheduler) SkipNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	interval := time.Duration(s.settings.PromptInterval) * time.Minute
	s.nextTrigger = s.nextTrigger.Add(interval)

	s.log.WithField("next_trigger", s.nextTrigger).Info("skipped next trigger")
}

// GetStats returns a snapshot of counters and timing for the control surface.
func (s *Scheduler) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var timeUntil time.Duration
	if !s.isPaused {
		timeUntil = time.Until(s.nextTrigger)
	}

	return Stats{
		IsPaused:        s.isPaused,
		TriggerCount:    s.triggerCount,
		LastTrigger:     s.lastTrigger,
		NextTrigger:     s.nextTrigger,
		IntervalMinutes: s.settings.PromptInterval,
		TimeUntilNext:   timeUntil,
	}
}

// GetWorkHoursStatus reports the work-hours gate's current state,
// handling midnight rollover when computing the next open time.
func (s *Scheduler) GetWorkHoursStatus() WorkHoursStatus {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	now := time.Now()
	hour := now.Hour()
	isWorkHours := !settings.WorkHoursOnly || (hour >= settings.WorkStartHour && hour < settings.WorkEndHour)

	status := WorkHoursStatus{
		Enabled:       settings.WorkHoursOnly,
		CurrentHour:   hour,
		WorkStartHour: settings.WorkStartHour,
		WorkEndHour:   settings.WorkEndHour,
		IsWorkHours:   isWorkHours,
	}

	if !isWorkHours {
		day := now
		if hour >= settings.WorkEndHour {
			day = now.Add(24 * time.Hour)
		}
		status.NextWorkStart = time.Date(day.Year(), day.Month(), day.Day(),
			settings.WorkStartHour, 0, 0, 0, now.Location())
	}

	return status
}

// fire is the cron callback. bypassGates is set only by ForceImmediate.
func (s *Scheduler) fire(bypassGates bool) {
	s.mu.Lock()

	// SkipNext moved nextTrigger past this firing: let it pass.
	if !bypassGates && time.Now().Before(s.nextTrigger) {
		s.mu.Unlock()
		s.log.Debug("trigger skipped: skip-next")
		return
	}

	if !bypassGates && s.isPaused {
		s.updateNextTriggerLocked()
		s.mu.Unlock()
		s.log.Debug("trigger skipped: paused")
		return
	}

	if !bypassGates && s.settings.WorkHoursOnly {
		hour := time.Now().Hour()
		if hour < s.settings.WorkStartHour || hour >= s.settings.WorkEndHour {
			s.mu.Unlock()
			s.log.WithField("hour", hour).Info("trigger skipped: outside work hours")
			return
		}
	}

	now := time.Now()
	if !bypassGates {
		s.lastTrigger = now
		s.triggerCount++
		s.updateNextTriggerLocked()
	}

	event := TimerTrigger{
		Timestamp:    now,
		TriggerCount: s.triggerCount,
		IntervalMins: s.settings.PromptInterval,
	}
	s.mu.Unlock()

	if s.onTrigger != nil {
		s.log.WithField("trigger_count", event.TriggerCount).Info("timer trigger")
		s.safeInvoke(event)
	}
}

func (s *Scheduler) safeInvoke(event TimerTrigger) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("trigger callback panicked")
		}
	}()
	s.onTrigger(event)
}

func (s *Scheduler) updateNextTriggerLocked() {
	if s.cron == nil {
		return
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			s.nextTrigger = entry.Next
			return
		}
	}
}

func cronExpr(intervalMinutes int) string {
	return fmt.Sprintf("0 */%d * * * *", intervalMinutes)
}
