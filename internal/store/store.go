package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// EventDeleter is the slice of the calendar collaborator the store needs:
// deleting a task with a mirrored calendar event triggers a best-effort
// removal of the external event.
type EventDeleter interface {
	DeleteEvent(ctx context.Context, eventID string) error
}

// Store is the durable task collection. Every mutation rewrites the whole
// snapshot file synchronously; all mutations are serialized behind one mutex
// so the background loop and foreground CRUD can't lose updates to each other.
type Store struct {
	path string
	log  logx.Logger

	mu  sync.Mutex
	cal EventDeleter
}

// Open prepares a store at path, creating an empty snapshot if none exists.
func Open(path string, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path, log: log}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.saveLocked(nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetCalendar installs the collaborator used for best-effort event removal
// on Delete. A nil calendar is fine; deletes then stay local-only.
func (s *Store) SetCalendar(cal EventDeleter) {
	s.mu.Lock()
	s.cal = cal
	s.mu.Unlock()
}

// Add inserts a task, assigning an id when absent and stamping CreatedAt.
// The snapshot is persisted before Add returns.
func (s *Store) Add(t task.Task) (string, error) {
	t.Normalize()
	if t.ID == "" {
		t.ID = "task_" + uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.loadLocked()
	for _, existing := range tasks {
		if existing.ID == t.ID {
			return "", errors.New("duplicate task id: " + t.ID)
		}
	}
	tasks = append(tasks, t)
	if err := s.saveLocked(tasks); err != nil {
		return "", err
	}
	return t.ID, nil
}

// Update replaces the full record with the same id.
// It reports false when no such record exists.
func (s *Store) Update(t task.Task) bool {
	if t.ID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.loadLocked()
	found := false
	for i := range tasks {
		if tasks[i].ID == t.ID {
			tasks[i] = t
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if err := s.saveLocked(tasks); err != nil {
		s.log.Error("persisting update failed", logx.String("task", t.ID), logx.Err(err))
		return false
	}
	return true
}

// Delete removes the record with the given id. When the task mirrors an
// external calendar event, the event is removed best-effort: a collaborator
// failure is logged and the local delete proceeds.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.loadLocked()
	idx := -1
	for i := range tasks {
		if tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	if eventID := tasks[idx].CalendarEventID; eventID != "" && s.cal != nil {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.cal.DeleteEvent(cctx, eventID); err != nil {
			s.log.Warn("calendar event removal failed", logx.String("task", id), logx.String("event", eventID), logx.Err(err))
		}
		cancel()
	}

	tasks = append(tasks[:idx], tasks[idx+1:]...)
	if err := s.saveLocked(tasks); err != nil {
		s.log.Error("persisting delete failed", logx.String("task", id), logx.Err(err))
		return false
	}
	return true
}

// Complete marks a task completed and stamps CompletedAt.
func (s *Store) Complete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.loadLocked()
	for i := range tasks {
		if tasks[i].ID == id {
			now := time.Now()
			tasks[i].Completed = true
			tasks[i].CompletedAt = &now
			if err := s.saveLocked(tasks); err != nil {
				s.log.Error("persisting complete failed", logx.String("task", id), logx.Err(err))
				return false
			}
			return true
		}
	}
	return false
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.loadLocked() {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// All returns the full collection.
func (s *Store) All() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// ByCriteria returns tasks matching every given field exactly.
// A task missing a queried field never matches. The "date" key compares
// against the zone-naive "2006-01-02 15:04:05" rendering of the due time.
func (s *Store) ByCriteria(criteria map[string]string) []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []task.Task
	for _, t := range s.loadLocked() {
		if matchesCriteria(t, criteria) {
			out = append(out, t)
		}
	}
	return out
}

// Prune rewrites the collection with only the tasks keep reports true for,
// returning the number removed. Load, filter and save happen inside one
// critical section, so records added concurrently are never lost to a stale
// snapshot. keep must not call back into the store.
func (s *Store) Prune(keep func(task.Task) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.loadLocked()
	kept := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			kept = append(kept, t)
		}
	}
	removed := len(tasks) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.saveLocked(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func matchesCriteria(t task.Task, criteria map[string]string) bool {
	for key, want := range criteria {
		got, ok := fieldValue(t, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// fieldValue maps a queryable field name to its string form.
// ok is false when the field is unset (or unknown), which makes the task
// unmatchable for that key.
func fieldValue(t task.Task, key string) (string, bool) {
	switch key {
	case "id":
		return t.ID, t.ID != ""
	case "description":
		return t.Description, t.Description != ""
	case "type":
		return string(t.Type), t.Type != ""
	case "priority":
		return string(t.Priority), t.Priority != ""
	case "category":
		return t.Category, t.Category != ""
	case "location":
		return t.Location, t.Location != ""
	case "recurrence":
		return t.Recurrence, t.Recurrence != ""
	case "source":
		return t.Source, t.Source != ""
	case "date":
		if t.Date == nil {
			return "", false
		}
		return task.Naive(*t.Date).Format("2006-01-02 15:04:05"), true
	case "calendar_event_id":
		return t.CalendarEventID, t.CalendarEventID != ""
	case "completed":
		return strconv.FormatBool(t.Completed), true
	default:
		return "", false
	}
}

// loadLocked reads the snapshot. A corrupt or unreadable file degrades to an
// empty collection: the condition is logged loudly and the next successful
// write re-establishes a valid file.
func (s *Store) loadLocked() []task.Task {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Error("task store unreadable; continuing with empty collection", logx.String("path", s.path), logx.Err(err))
		}
		return nil
	}
	var tasks []task.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		s.log.Error("task store corrupt; continuing with empty collection", logx.String("path", s.path), logx.Err(err))
		return nil
	}
	return tasks
}

func (s *Store) saveLocked(tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	b, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
