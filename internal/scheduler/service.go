package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"smarttask/internal/calendar"
	"smarttask/internal/store"
	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// Config controls the background loop. Job specs accept cron expressions,
// cron descriptors, or plain Go durations.
type Config struct {
	Tick time.Duration // loop cadence; default 60s

	Approaching  string // default "@hourly"
	EmailImport  string // default "2h"
	CalendarSync string // default "3h"
	Cleanup      string // default "0 1 * * *" (daily 01:00 local)

	LookaheadDays int           // calendar sync window; default 14
	StopTimeout   time.Duration // bounded join on Stop; default 5s

	ReportTo string // when set, a daily report goes out on the cleanup tier
}

// Inbox is the email-import slice of the mail collaborator.
type Inbox interface {
	Scan(ctx context.Context) ([]task.Task, error)
}

// Reporter mails task summaries.
type Reporter interface {
	SendReport(ctx context.Context, addr string, tasks []task.Task) error
}

// Notifier delivers reminders.
type Notifier interface {
	Reminder(ctx context.Context, kind string, t task.Task) error
}

// job is one interval-scheduled function. next is recomputed from the
// schedule after every run.
type job struct {
	name string
	sch  schedule
	next time.Time
	run  func(ctx context.Context) error
}

// Service owns the background loop and the immediate-reminder timers.
// States: stopped, running. Start and Stop are both idempotent.
type Service struct {
	cfg      Config
	log      logx.Logger
	store    *store.Store
	notifier Notifier
	inbox    Inbox
	cal      calendar.Calendar
	reporter Reporter

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	jobs    []*job

	// Armed immediate reminders, keyed by task id. In-memory only: a
	// restart forgets in-flight arming, which is accepted.
	tmu    sync.Mutex
	timers map[string]*time.Timer

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg Config, st *store.Store, notifier Notifier, inbox Inbox, cal calendar.Calendar, reporter Reporter, log logx.Logger) *Service {
	if cfg.Tick <= 0 {
		cfg.Tick = 60 * time.Second
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = 14
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		store:    st,
		notifier: notifier,
		inbox:    inbox,
		cal:      cal,
		reporter: reporter,
		timers:   map[string]*time.Timer{},
		now:      time.Now,
	}
}

// Start spawns the background loop. Calling Start on a running service is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Debug("scheduler already running")
		return nil
	}

	jobs, err := s.buildJobs()
	if err != nil {
		return err
	}
	now := s.now()
	for _, j := range jobs {
		j.next = j.sch.Next(now)
	}
	s.jobs = jobs
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true

	stopCh := s.stopCh
	doneCh := s.doneCh
	go func() {
		defer close(doneCh)
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in scheduler loop", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.runLoop(ctx, stopCh)
	}()

	s.log.Info("scheduler started",
		logx.Duration("tick", s.cfg.Tick), logx.Int("jobs", len(jobs)))
	return nil
}

// Stop transitions to stopped. The loop exits at its next select point;
// waiting is bounded by StopTimeout and an overrun is logged, not escalated.
// An in-flight job is never aborted. Armed immediate-reminder timers are
// stopped; their definitions are not persisted.
func (s *Service) Stop() {
	// Immediate reminders can be armed by a fast-path pass even when the loop
	// never ran, so the timers are cleared regardless of loop state.
	s.tmu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.tmu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.stopCh = nil
	s.doneCh = nil
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.log.Info("scheduler stopped")
	case <-time.After(s.cfg.StopTimeout):
		s.log.Warn("scheduler stop timed out; loop will exit at next suspend point", logx.Duration("timeout", s.cfg.StopTimeout))
	}
}

// Running reports the loop state.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) buildJobs() ([]*job, error) {
	specs := []struct {
		name string
		raw  string
		run  func(ctx context.Context) error
	}{
		{"approaching", s.cfg.Approaching, func(ctx context.Context) error {
			s.checkApproaching(ctx)
			return nil
		}},
		{"email_import", s.cfg.EmailImport, func(ctx context.Context) error {
			_, err := s.ImportFromEmail(ctx)
			return err
		}},
		{"calendar_sync", s.cfg.CalendarSync, func(ctx context.Context) error {
			_, err := s.SyncCalendar(ctx)
			return err
		}},
		{"cleanup", s.cfg.Cleanup, func(ctx context.Context) error {
			_, err := s.CleanupOldTasks()
			return err
		}},
	}

	defaults := map[string]string{
		"approaching":   "@hourly",
		"email_import":  "2h",
		"calendar_sync": "3h",
		"cleanup":       "0 1 * * *",
	}

	var jobs []*job
	for _, sp := range specs {
		raw := sp.raw
		if raw == "" {
			raw = defaults[sp.name]
		}
		sch, err := parseSpec(raw)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &job{name: sp.name, sch: sch, run: sp.run})
	}

	if s.reporter != nil && s.cfg.ReportTo != "" {
		sch, err := parseSpec(coalesce(s.cfg.Cleanup, defaults["cleanup"]))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &job{name: "daily_report", sch: sch, run: s.sendDailyReport})
	}
	return jobs, nil
}

// runLoop is the cycle body: interval-due jobs first, then always the
// immediate-reminder fast path, then sleep. Jobs run before the fast path
// so a task imported this cycle is visible to this cycle's immediate check.
func (s *Service) runLoop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		now := s.now()
		for _, j := range s.jobs {
			if now.Before(j.next) {
				continue
			}
			s.runJob(ctx, j)
			j.next = j.sch.Next(s.now())
		}

		s.scheduleImmediateReminders(ctx)

		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Tick):
		}
	}
}

// runJob isolates one job execution: a panic or error is logged and the
// cycle moves on to the next job.
func (s *Service) runJob(ctx context.Context, j *job) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduler job",
				logx.String("job", j.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	if err := j.run(ctx); err != nil {
		s.log.Warn("job failed", logx.String("job", j.name), logx.Duration("dur", time.Since(start)), logx.Err(err))
		return
	}
	s.log.Debug("job completed", logx.String("job", j.name), logx.Duration("dur", time.Since(start)))
}

func (s *Service) sendDailyReport(ctx context.Context) error {
	tasks := s.store.Upcoming(7)
	if len(tasks) == 0 {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.reporter.SendReport(cctx, s.cfg.ReportTo, tasks)
}

func coalesce(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
