package scheduler

import (
	"context"
	"testing"
	"time"

	"smarttask/internal/audit"
	"smarttask/internal/task"
)

func TestCheckApproachingSelection(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		t    task.Task
		want bool
	}{
		{"high priority 5h out", task.Task{ID: "task_a", Priority: task.PriorityHigh, Date: datePtr(now.Add(5 * time.Hour))}, true},
		{"medium 5h out", task.Task{ID: "task_b", Priority: task.PriorityMedium, Date: datePtr(now.Add(5 * time.Hour))}, false},
		{"medium 90m out", task.Task{ID: "task_c", Priority: task.PriorityMedium, Date: datePtr(now.Add(90 * time.Minute))}, true},
		{"high 25h out", task.Task{ID: "task_d", Priority: task.PriorityHigh, Date: datePtr(now.Add(25 * time.Hour))}, false},
		{"high overdue", task.Task{ID: "task_e", Priority: task.PriorityHigh, Date: datePtr(now.Add(-time.Hour))}, false},
		{"completed high 1h out", task.Task{ID: "task_f", Priority: task.PriorityHigh, Date: datePtr(now.Add(time.Hour)), Completed: true}, false},
		{"already reminded", task.Task{ID: "task_g", Priority: task.PriorityHigh, Date: datePtr(now.Add(time.Hour)), Reminded: true}, false},
		{"undated high", task.Task{ID: "task_h", Priority: task.PriorityHigh}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			if _, err := st.Add(tt.t); err != nil {
				t.Fatalf("Add: %v", err)
			}
			n := newFakeNotifier()
			s := newTestService(t, st, n)
			s.now = func() time.Time { return now }

			s.checkApproaching(context.Background())

			sent := n.all()
			if got := len(sent) == 1; got != tt.want {
				t.Fatalf("reminded = %v, want %v (sent %v)", got, tt.want, sent)
			}
			if tt.want && sent[0].kind != audit.KindApproaching {
				t.Fatalf("kind = %q, want %q", sent[0].kind, audit.KindApproaching)
			}
		})
	}
}

func TestCheckApproachingMarksOnce(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	st := newTestStore(t)
	st.Add(task.Task{ID: "task_x", Priority: task.PriorityHigh, Date: datePtr(now.Add(3 * time.Hour))})

	n := newFakeNotifier()
	s := newTestService(t, st, n)
	s.now = func() time.Time { return now }

	s.checkApproaching(context.Background())
	s.checkApproaching(context.Background())

	if got := len(n.all()); got != 1 {
		t.Fatalf("sent %d reminders across two sweeps, want 1", got)
	}
	tk, _ := st.Get("task_x")
	if !tk.Reminded {
		t.Fatal("Reminded flag not persisted")
	}
}

func TestCheckApproachingMarksDespiteSendFailure(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	st := newTestStore(t)
	st.Add(task.Task{ID: "task_x", Priority: task.PriorityHigh, Date: datePtr(now.Add(time.Hour))})

	n := newFakeNotifier()
	n.err = context.DeadlineExceeded
	s := newTestService(t, st, n)
	s.now = func() time.Time { return now }

	s.checkApproaching(context.Background())

	tk, _ := st.Get("task_x")
	if !tk.Reminded {
		t.Fatal("send failure must not leave the task eligible for hourly re-sends")
	}
}

func TestImmediateArmingWindows(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		t    task.Task
		want bool
	}{
		{"20m out", task.Task{ID: "task_20m", Date: datePtr(now.Add(20 * time.Minute))}, true},
		{"29m out", task.Task{ID: "task_29m", Date: datePtr(now.Add(29 * time.Minute))}, true},
		{"40m out", task.Task{ID: "task_40m", Date: datePtr(now.Add(40 * time.Minute))}, false},
		{"exactly 30m", task.Task{ID: "task_30m", Date: datePtr(now.Add(30 * time.Minute))}, false},
		{"overdue", task.Task{ID: "task_past", Date: datePtr(now.Add(-time.Minute))}, false},
		{"undated", task.Task{ID: "task_undated"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			st.Add(tt.t)
			s := newTestService(t, st, newFakeNotifier())
			s.now = func() time.Time { return now }

			s.scheduleImmediateReminders(context.Background())

			if got := s.armed(tt.t.ID); got != tt.want {
				t.Fatalf("armed = %v, want %v", got, tt.want)
			}
			s.Stop()
		})
	}
}

func TestImmediateClampedDelayFires(t *testing.T) {
	t.Parallel()
	now := time.Now()

	st := newTestStore(t)
	// Due in 10 minutes: the 15-minute lead is already past, so the timer
	// arms at zero delay and fires right away.
	st.Add(task.Task{ID: "task_soon", Date: datePtr(now.Add(10 * time.Minute))})

	n := newFakeNotifier()
	s := newTestService(t, st, n)

	s.scheduleImmediateReminders(context.Background())

	select {
	case got := <-n.fired:
		if got.id != "task_soon" || got.kind != audit.KindImmediate {
			t.Fatalf("fired = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("clamped-delay reminder did not fire")
	}

	// Firing disarms the task; the Reminded flag belongs to the approaching
	// path and stays untouched.
	deadline := time.Now().Add(2 * time.Second)
	for s.armedCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("task not removed from armed set after firing")
		}
		time.Sleep(10 * time.Millisecond)
	}
	tk, _ := st.Get("task_soon")
	if tk.Reminded {
		t.Fatal("immediate path must not set the Reminded flag")
	}
}

func TestImmediateArmsOnlyOnce(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	st := newTestStore(t)
	st.Add(task.Task{ID: "task_r", Date: datePtr(now.Add(25 * time.Minute))})

	s := newTestService(t, st, newFakeNotifier())
	s.now = func() time.Time { return now }

	s.scheduleImmediateReminders(context.Background())
	s.scheduleImmediateReminders(context.Background())

	if got := s.armedCount(); got != 1 {
		t.Fatalf("armed count = %d, want 1", got)
	}
}

func TestStopCancelsArmedTimers(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	st := newTestStore(t)
	st.Add(task.Task{ID: "task_t", Date: datePtr(now.Add(25 * time.Minute))})

	s := newTestService(t, st, newFakeNotifier())
	s.now = func() time.Time { return now }

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.scheduleImmediateReminders(context.Background())
	if s.armedCount() != 1 {
		t.Fatal("timer not armed")
	}

	s.Stop()
	if got := s.armedCount(); got != 0 {
		t.Fatalf("armed count after Stop = %d, want 0", got)
	}
}

func TestStopClearsTimersWithoutStart(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)

	st := newTestStore(t)
	st.Add(task.Task{ID: "task_t", Date: datePtr(now.Add(25 * time.Minute))})

	s := newTestService(t, st, newFakeNotifier())
	s.now = func() time.Time { return now }

	// Arm via the fast path with the loop never running.
	s.scheduleImmediateReminders(context.Background())
	if s.armedCount() != 1 {
		t.Fatal("timer not armed")
	}

	s.Stop()
	if got := s.armedCount(); got != 0 {
		t.Fatalf("armed count after Stop = %d, want 0", got)
	}
}
