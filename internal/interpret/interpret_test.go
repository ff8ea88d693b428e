package interpret

import (
	"strings"
	"testing"
	"time"

	"smarttask/internal/task"
)

var ref = time.Date(2026, 5, 6, 10, 0, 0, 0, time.Local)

func mustInterpret(t *testing.T, text string) task.Task {
	t.Helper()
	got, err := New().Interpret(text, ref)
	if err != nil {
		t.Fatalf("Interpret(%q): %v", text, err)
	}
	return got
}

func TestInterpretReminderPrefix(t *testing.T) {
	t.Parallel()
	got := mustInterpret(t, "remind me to pay rent tomorrow")

	if got.Type != task.TypeRemind {
		t.Fatalf("Type = %q, want remind", got.Type)
	}
	if got.Date == nil {
		t.Fatal("no date parsed from 'tomorrow'")
	}
	if got.Date.Day() != 7 {
		t.Fatalf("date = %v, want May 7", got.Date)
	}
	if strings.Contains(strings.ToLower(got.Description), "remind me") {
		t.Fatalf("prefix not stripped: %q", got.Description)
	}
	if strings.Contains(strings.ToLower(got.Description), "tomorrow") {
		t.Fatalf("time phrase not removed: %q", got.Description)
	}
	if got.Category != "finance" {
		t.Fatalf("Category = %q, want finance", got.Category)
	}
}

func TestInterpretAddPrefix(t *testing.T) {
	t.Parallel()
	got := mustInterpret(t, "add a task: buy groceries")
	if got.Type != task.TypeTask {
		t.Fatalf("Type = %q", got.Type)
	}
	if got.Description != "buy groceries" {
		t.Fatalf("Description = %q", got.Description)
	}
	if got.Category != "personal" {
		t.Fatalf("Category = %q, want personal", got.Category)
	}
}

func TestInterpretEventWords(t *testing.T) {
	t.Parallel()
	got := mustInterpret(t, "meeting with alex on friday at 3pm")
	if got.Type != task.TypeEvent {
		t.Fatalf("Type = %q, want event", got.Type)
	}
	if len(got.Participants) != 1 || got.Participants[0] != "alex" {
		t.Fatalf("Participants = %v", got.Participants)
	}
	if got.Date == nil {
		t.Fatal("no date for 'friday at 3pm'")
	}
}

func TestInterpretPriorities(t *testing.T) {
	t.Parallel()
	if got := mustInterpret(t, "urgent: call the bank"); got.Priority != task.PriorityHigh {
		t.Fatalf("Priority = %q, want high", got.Priority)
	}
	if got := mustInterpret(t, "clean the garage whenever"); got.Priority != task.PriorityLow {
		t.Fatalf("Priority = %q, want low", got.Priority)
	}
	if got := mustInterpret(t, "water the plants"); got.Priority != task.PriorityMedium {
		t.Fatalf("Priority = %q, want medium", got.Priority)
	}
}

func TestInterpretUndated(t *testing.T) {
	t.Parallel()
	got := mustInterpret(t, "organize bookshelf")
	if got.Date != nil {
		t.Fatalf("unexpected date: %v", got.Date)
	}
	if got.Description != "organize bookshelf" {
		t.Fatalf("Description = %q", got.Description)
	}
}

func TestInterpretEmptyInput(t *testing.T) {
	t.Parallel()
	if _, err := New().Interpret("   ", ref); err == nil {
		t.Fatal("expected error for empty input")
	}
}
