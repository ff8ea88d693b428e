package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// ImportFromEmail pulls task candidates out of the inbox and inserts them.
// Candidates typed as events are additionally mirrored to the calendar,
// best-effort. Returns the number of tasks imported.
func (s *Service) ImportFromEmail(ctx context.Context) (int, error) {
	if s.inbox == nil {
		return 0, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	candidates, err := s.inbox.Scan(cctx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("inbox scan: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	s.log.Info("found tasks from email", logx.Int("count", len(candidates)))

	imported := 0
	for _, t := range candidates {
		t.ID = synthesizeID("email")
		t.Source = task.SourceEmail

		id, err := s.store.Add(t)
		if err != nil {
			s.log.Warn("email import insert failed", logx.String("description", t.Description), logx.Err(err))
			continue
		}
		imported++

		if t.Type == task.TypeEvent && s.cal != nil {
			ectx, ecancel := context.WithTimeout(ctx, 30*time.Second)
			eventID, err := s.cal.CreateEvent(ectx, t)
			ecancel()
			if err != nil {
				// Calendar mirroring is optional.
				s.log.Warn("calendar event creation failed", logx.String("task", id), logx.Err(err))
				continue
			}
			if eventID != "" {
				// Update replaces the full record, so start from the stored
				// copy: Add stamped CreatedAt and filled defaults there.
				if stored, ok := s.store.Get(id); ok {
					stored.CalendarEventID = eventID
					s.store.Update(stored)
				}
			}
		}
	}
	return imported, nil
}

// SyncCalendar mirrors upcoming external events into the store. Events whose
// id already appears on a local task are skipped, so re-running with stable
// external ids is idempotent. One-directional: local-only tasks are never
// pushed out. Returns the number of newly mirrored tasks.
func (s *Service) SyncCalendar(ctx context.Context) (int, error) {
	if s.cal == nil {
		return 0, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	events, err := s.cal.ListUpcoming(cctx, s.cfg.LookaheadDays)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("calendar list: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	known := map[string]struct{}{}
	for _, t := range s.store.All() {
		if t.CalendarEventID != "" {
			known[t.CalendarEventID] = struct{}{}
		}
	}

	added := 0
	for _, ev := range events {
		if _, ok := known[ev.ID]; ok {
			continue
		}
		t := ev.Task()
		t.ID = synthesizeID("calendar")
		if _, err := s.store.Add(t); err != nil {
			s.log.Warn("calendar mirror insert failed", logx.String("event", ev.ID), logx.Err(err))
			continue
		}
		added++
	}
	if added > 0 {
		s.log.Info("mirrored new calendar events", logx.Int("count", added))
	}
	return added, nil
}

func synthesizeID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().Unix(), uuid.NewString()[:8])
}
