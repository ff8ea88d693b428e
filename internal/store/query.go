package store

import (
	"sort"
	"time"

	"smarttask/internal/task"
)

// Upcoming returns incomplete tasks due within [now, now+days], ascending by
// date. Undated tasks are excluded.
func (s *Store) Upcoming(days int) []task.Task {
	now := task.Naive(time.Now())
	end := now.AddDate(0, 0, days)

	var out []task.Task
	for _, t := range s.All() {
		if t.Completed {
			continue
		}
		due, ok := t.Due()
		if !ok {
			continue
		}
		due = task.Naive(due)
		if !due.Before(now) && !due.After(end) {
			out = append(out, t)
		}
	}
	sortByDate(out)
	return out
}

// Overdue returns incomplete tasks whose date is in the past, oldest first.
func (s *Store) Overdue() []task.Task {
	now := task.Naive(time.Now())

	var out []task.Task
	for _, t := range s.All() {
		if t.Completed {
			continue
		}
		due, ok := t.Due()
		if !ok {
			continue
		}
		if task.Naive(due).Before(now) {
			out = append(out, t)
		}
	}
	sortByDate(out)
	return out
}

// ByDate returns tasks due on the given calendar day regardless of
// completion state.
func (s *Store) ByDate(day time.Time) []task.Task {
	var out []task.Task
	for _, t := range s.All() {
		due, ok := t.Due()
		if !ok {
			continue
		}
		if task.SameDay(due, day) {
			out = append(out, t)
		}
	}
	return out
}

func sortByDate(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, _ := tasks[i].Due()
		dj, _ := tasks[j].Due()
		return task.Naive(di).Before(task.Naive(dj))
	})
}
