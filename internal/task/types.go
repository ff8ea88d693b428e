package task

import (
	"strings"
	"time"
)

// Type classifies what a task record represents.
type Type string

const (
	TypeTask   Type = "task"
	TypeRemind Type = "remind"
	TypeEvent  Type = "event"
)

// Priority is the task urgency bucket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Provenance tags for Task.Source.
const (
	SourceLocal    = "local"
	SourceEmail    = "email"
	SourceCalendar = "google_calendar"
)

// Task is the central record tracked by the system.
//
// A nil Date marks a "persistent" task: it is never selected by date-windowed
// queries and never removed by date-based retention.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`

	Date *time.Time `json:"date,omitempty"`

	Type     Type     `json:"type,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Category string   `json:"category,omitempty"`

	Location     string   `json:"location,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Recurrence   string   `json:"recurrence,omitempty"`
	// EstimatedDuration is in minutes; the calendar collaborator uses it to
	// derive event end times.
	EstimatedDuration int `json:"estimated_duration,omitempty"`

	Completed   bool       `json:"completed,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Reminded is set once an approaching-deadline reminder went out.
	// It is independent of the immediate-reminder armed set, which is
	// in-memory only.
	Reminded bool `json:"reminded,omitempty"`

	CalendarEventID string `json:"calendar_event_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"`
}

// Normalize fills zero-valued classification fields with their defaults.
// Ingestion paths call this so the store never carries duck-typed shapes.
func (t *Task) Normalize() {
	if t.Type == "" {
		t.Type = TypeTask
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if strings.TrimSpace(t.Category) == "" {
		t.Category = "other"
	}
	if strings.TrimSpace(t.Source) == "" {
		t.Source = SourceLocal
	}
	if t.Date != nil {
		d := Naive(*t.Date)
		t.Date = &d
	}
}

// Due returns the due time and whether the task has one.
func (t Task) Due() (time.Time, bool) {
	if t.Date == nil {
		return time.Time{}, false
	}
	return *t.Date, true
}

// TimeUntil reports how far in the future the task is due relative to now.
// ok is false for undated tasks.
func (t Task) TimeUntil(now time.Time) (d time.Duration, ok bool) {
	due, ok := t.Due()
	if !ok {
		return 0, false
	}
	return Naive(due).Sub(Naive(now)), true
}

// Naive strips the zone offset from a timestamp, keeping the wall-clock
// reading. All scheduler comparisons happen in this single reference so a
// task created with a "Z" suffix and one created locally never land on
// opposite sides of a window by offset alone.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

// SameDay reports whether two timestamps fall on the same calendar day,
// compared zone-naively.
func SameDay(a, b time.Time) bool {
	a = Naive(a)
	b = Naive(b)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateLayouts are the accepted on-the-wire date shapes, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseWhen parses a timestamp from an external source (email body, calendar
// payload) and normalizes it to the zone-naive reference.
func ParseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Naive(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
