package scheduler

import (
	"time"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

const (
	completedRetention = 30 * 24 * time.Hour
	overdueRetention   = 7 * 24 * time.Hour
)

// CleanupOldTasks applies the retention policy by pruning the store in one
// locked pass, so a task added while the sweep runs can never be dropped.
// Undated tasks are persistent and always survive; anything ambiguous fails
// open (kept). Returns the number removed.
func (s *Service) CleanupOldTasks() (int, error) {
	now := task.Naive(s.now())

	removed, err := s.store.Prune(func(t task.Task) bool {
		return keepTask(t, now)
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("retention cleanup removed old tasks", logx.Int("removed", removed))
	}
	return removed, nil
}

func keepTask(t task.Task, now time.Time) bool {
	due, ok := t.Due()
	if !ok {
		return true
	}
	date := task.Naive(due)

	if t.Completed {
		return now.Sub(date) < completedRetention
	}
	return date.After(now.Add(-overdueRetention))
}
