package calendar

import (
	"context"
	"time"

	"smarttask/internal/task"
)

// Event is one upcoming external calendar entry in the shape the
// reconciliation job consumes.
type Event struct {
	ID          string
	Description string
	Date        time.Time
	Priority    task.Priority
	Category    string
	Location    string
}

// Calendar is the collaborator contract consumed by the core. External
// mirroring is advisory: callers treat every method as best-effort.
type Calendar interface {
	CreateEvent(ctx context.Context, t task.Task) (string, error)
	UpdateEvent(ctx context.Context, eventID string, t task.Task) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListUpcoming(ctx context.Context, days int) ([]Event, error)
}

// Task converts an external event into the local mirror task. The caller
// assigns the id.
func (e Event) Task() task.Task {
	date := task.Naive(e.Date)
	t := task.Task{
		Type:            task.TypeEvent,
		Description:     e.Description,
		Date:            &date,
		Priority:        e.Priority,
		Category:        e.Category,
		Location:        e.Location,
		CalendarEventID: e.ID,
		Source:          task.SourceCalendar,
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if t.Category == "" {
		t.Category = "calendar"
	}
	return t
}
