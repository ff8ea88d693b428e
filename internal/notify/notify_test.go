package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"smarttask/internal/audit"
	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

type stubSender struct {
	name string
	err  error
	sent []string
}

func (s *stubSender) Channel() string { return s.name }
func (s *stubSender) SendReminder(_ context.Context, t task.Task) error {
	s.sent = append(s.sent, t.ID)
	return s.err
}

type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memAudit) Append(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}
func (m *memAudit) Close() error { return nil }

func TestReminderFansOutToAllChannels(t *testing.T) {
	t.Parallel()
	email := &stubSender{name: "email"}
	tg := &stubSender{name: "telegram"}
	log := &memAudit{}

	svc := New(logx.Nop(), log, 100, email, tg)
	err := svc.Reminder(context.Background(), audit.KindApproaching, task.Task{ID: "task_1"})
	if err != nil {
		t.Fatalf("Reminder: %v", err)
	}

	if len(email.sent) != 1 || len(tg.sent) != 1 {
		t.Fatalf("sends = %d email, %d telegram; want 1 each", len(email.sent), len(tg.sent))
	}
	if len(log.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(log.entries))
	}
	for _, e := range log.entries {
		if e.Kind != audit.KindApproaching || e.TaskID != "task_1" || !e.OK {
			t.Fatalf("entry = %+v", e)
		}
	}
}

func TestReminderPartialFailure(t *testing.T) {
	t.Parallel()
	bad := &stubSender{name: "email", err: errors.New("smtp 550")}
	good := &stubSender{name: "telegram"}
	log := &memAudit{}

	svc := New(logx.Nop(), log, 100, bad, good)
	err := svc.Reminder(context.Background(), audit.KindImmediate, task.Task{ID: "task_2"})
	if err == nil {
		t.Fatal("expected first channel error to be returned")
	}

	if len(good.sent) != 1 {
		t.Fatal("failure on one channel blocked the next")
	}
	if len(log.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2 (failures logged too)", len(log.entries))
	}
	if log.entries[0].OK || log.entries[0].Error == "" {
		t.Fatalf("failed entry = %+v", log.entries[0])
	}
}

func TestReminderNoChannels(t *testing.T) {
	t.Parallel()
	svc := New(logx.Nop(), nil, 1)
	if err := svc.Reminder(context.Background(), audit.KindImmediate, task.Task{ID: "task_3"}); err == nil {
		t.Fatal("expected error with no channels configured")
	}
}

func TestReminderHonorsCancelledContext(t *testing.T) {
	t.Parallel()
	s := &stubSender{name: "email"}
	svc := New(logx.Nop(), nil, 1, s)

	// Exhaust the limiter burst first, then a cancelled context must not send.
	if err := svc.Reminder(context.Background(), audit.KindImmediate, task.Task{ID: "task_a"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Reminder(ctx, audit.KindImmediate, task.Task{ID: "task_b"}); err == nil {
		t.Fatal("expected limiter wait to fail on cancelled context")
	}
	if len(s.sent) != 1 {
		t.Fatalf("sends = %v, want only task_a", s.sent)
	}
}
