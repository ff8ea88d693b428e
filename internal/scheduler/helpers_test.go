package scheduler

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"smarttask/internal/calendar"
	"smarttask/internal/store"
	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tasks.json"), logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

func datePtr(t time.Time) *time.Time { return &t }

// fakeNotifier records every delivery and signals each one on a channel so
// tests can wait for timer-driven sends without sleeping blind.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentReminder
	fired chan sentReminder
	err   error
}

type sentReminder struct {
	kind string
	id   string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fired: make(chan sentReminder, 16)}
}

func (n *fakeNotifier) Reminder(_ context.Context, kind string, t task.Task) error {
	n.mu.Lock()
	s := sentReminder{kind: kind, id: t.ID}
	n.sent = append(n.sent, s)
	n.mu.Unlock()
	n.fired <- s
	return n.err
}

func (n *fakeNotifier) all() []sentReminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentReminder(nil), n.sent...)
}

type fakeInbox struct {
	tasks []task.Task
	err   error
	calls int
}

func (in *fakeInbox) Scan(context.Context) ([]task.Task, error) {
	in.calls++
	return in.tasks, in.err
}

// fakeCalendar is an in-memory Calendar with stable event ids.
type fakeCalendar struct {
	mu        sync.Mutex
	events    []calendar.Event
	created   []task.Task
	deleted   []string
	seq       int
	createErr error
	listErr   error
}

func (c *fakeCalendar) CreateEvent(_ context.Context, t task.Task) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	c.seq++
	c.created = append(c.created, t)
	return "ev" + strconv.Itoa(c.seq), nil
}

func (c *fakeCalendar) UpdateEvent(context.Context, string, task.Task) error { return nil }

func (c *fakeCalendar) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, id)
	return nil
}

func (c *fakeCalendar) ListUpcoming(context.Context, int) ([]calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]calendar.Event(nil), c.events...), nil
}

func newTestService(t *testing.T, st *store.Store, n Notifier) *Service {
	t.Helper()
	if st == nil {
		st = newTestStore(t)
	}
	return New(Config{}, st, n, nil, nil, nil, logx.Nop())
}
