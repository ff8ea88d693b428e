package scheduler

import (
	"context"
	"time"

	"smarttask/internal/audit"
	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

const (
	approachingWindow = 24 * time.Hour
	urgentWindow      = 2 * time.Hour
	immediateWindow   = 30 * time.Minute
	immediateLead     = 15 * time.Minute
)

// checkApproaching is the hourly, coarse-granularity net: anything due
// within a day that is either high priority or under two hours out gets one
// reminder, marked by the persisted Reminded flag so the next hourly run
// doesn't repeat it. A single task's bad data or send failure never stops
// the sweep.
func (s *Service) checkApproaching(ctx context.Context) {
	now := s.now()
	for _, t := range s.store.All() {
		if t.Completed || t.Reminded {
			continue
		}
		until, ok := t.TimeUntil(now)
		if !ok {
			continue
		}
		if until <= 0 || until >= approachingWindow {
			continue
		}
		if t.Priority != task.PriorityHigh && until >= urgentWindow {
			continue
		}

		s.log.Info("sending approaching-deadline reminder",
			logx.String("task", t.ID), logx.String("priority", string(t.Priority)), logx.Duration("until", until))

		cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := s.notifier.Reminder(cctx, audit.KindApproaching, t); err != nil {
			s.log.Warn("approaching reminder delivery failed", logx.String("task", t.ID), logx.Err(err))
		}
		cancel()

		// Mark regardless of delivery outcome: the send is advisory and
		// retrying every hour against a broken channel would spam once it
		// recovers.
		t.Reminded = true
		if !s.store.Update(t) {
			s.log.Warn("could not persist reminded flag", logx.String("task", t.ID))
		}
	}
}

// scheduleImmediateReminders is the fast path, run every tick: tasks due
// within 30 minutes get a one-shot timer firing ~15 minutes before the due
// time (clamped to now). The armed set prevents re-arming on subsequent
// ticks; it is independent of the Reminded flag.
func (s *Service) scheduleImmediateReminders(ctx context.Context) {
	now := s.now()
	for _, t := range s.store.All() {
		until, ok := t.TimeUntil(now)
		if !ok {
			continue
		}
		if until <= 0 || until >= immediateWindow {
			continue
		}
		delay := until - immediateLead
		if delay < 0 {
			delay = 0
		}
		s.armReminder(ctx, t, delay)
	}
}

func (s *Service) armReminder(ctx context.Context, t task.Task, delay time.Duration) {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	if _, armed := s.timers[t.ID]; armed {
		return
	}

	id := t.ID
	s.timers[id] = time.AfterFunc(delay, func() {
		defer s.disarm(id)

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		s.log.Info("sending immediate reminder", logx.String("task", id))
		if err := s.notifier.Reminder(cctx, audit.KindImmediate, t); err != nil {
			s.log.Warn("immediate reminder delivery failed", logx.String("task", id), logx.Err(err))
		}
	})
	s.log.Debug("immediate reminder armed", logx.String("task", id), logx.Duration("delay", delay))
}

func (s *Service) disarm(id string) {
	s.tmu.Lock()
	delete(s.timers, id)
	s.tmu.Unlock()
}

// armedCount reports how many immediate reminders are currently armed.
func (s *Service) armedCount() int {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return len(s.timers)
}

// armed reports whether the given task currently has an armed timer.
func (s *Service) armed(id string) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	_, ok := s.timers[id]
	return ok
}
