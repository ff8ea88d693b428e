package notify

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"smarttask/internal/audit"
	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// Sender is one reminder delivery channel.
type Sender interface {
	Channel() string
	SendReminder(ctx context.Context, t task.Task) error
}

// Service fans a reminder out over every configured channel. Sends are
// rate-limited globally so a burst of due tasks can't hammer the SMTP or
// bot endpoint, and each attempt lands in the delivery log.
type Service struct {
	senders []Sender
	limiter *rate.Limiter
	log     logx.Logger
	audit   audit.Store
}

func New(log logx.Logger, deliveries audit.Store, ratePerSec int, senders ...Sender) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Service{
		senders: senders,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
		audit:   deliveries,
	}
}

// Reminder delivers one reminder of the given kind (approaching or
// immediate). It returns the first channel error for the caller's log line;
// a partial failure never blocks the remaining channels.
func (s *Service) Reminder(ctx context.Context, kind string, t task.Task) error {
	if len(s.senders) == 0 {
		return errors.New("no reminder channels configured")
	}

	var firstErr error
	for _, snd := range s.senders {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		err := snd.SendReminder(ctx, t)
		entry := audit.Entry{
			At:      start,
			TaskID:  t.ID,
			Kind:    kind,
			Channel: snd.Channel(),
			OK:      err == nil,
			TookMS:  time.Since(start).Milliseconds(),
		}
		if err != nil {
			entry.Error = err.Error()
			s.log.Warn("reminder send failed",
				logx.String("task", t.ID), logx.String("channel", snd.Channel()), logx.String("kind", kind), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		} else {
			s.log.Debug("reminder sent",
				logx.String("task", t.ID), logx.String("channel", snd.Channel()), logx.String("kind", kind))
		}
		audit.Record(ctx, s.audit, entry, s.log)
	}
	return firstErr
}
