package interpret

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"smarttask/internal/task"
)

// Interpreter turns free-form user text into a task record. It is consumed
// by the outer request layer; the scheduler core only sees its output shape.
type Interpreter struct {
	w *when.Parser
}

func New() *Interpreter {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Interpreter{w: w}
}

var (
	remindPrefixRe = regexp.MustCompile(`(?i)^(please\s+)?remind me (to|about|of)\s+`)
	addPrefixRe    = regexp.MustCompile(`(?i)^(add|create|new)\s+(a\s+)?(task|todo|event|reminder)\s*(:|to|for)?\s*`)
	withRe         = regexp.MustCompile(`(?i)\bwith ([a-z][a-z ]+?)(?:\s+(?:at|on|in|by|tomorrow|next)\b|$)`)

	eventWords = []string{"meeting", "appointment", "call", "lunch", "dinner", "interview"}
	highWords  = []string{"urgent", "important", "critical", "asap"}
	lowWords   = []string{"low priority", "whenever", "not urgent", "someday"}

	categoryWords = []struct {
		words    []string
		category string
	}{
		{[]string{"work", "office", "project", "client", "report"}, "work"},
		{[]string{"home", "family", "house", "grocery", "groceries"}, "personal"},
		{[]string{"doctor", "dentist", "gym", "workout", "medication"}, "health"},
		{[]string{"rent", "bill", "bank", "payment", "invoice", "tax"}, "finance"},
		{[]string{"study", "class", "course", "exam", "homework"}, "education"},
	}
)

// Interpret extracts a task from text relative to now. The recognized time
// phrase is removed from the description; everything else stays verbatim.
// Text with no content at all is an error; text with no recognizable date
// yields an undated (persistent) task.
func (in *Interpreter) Interpret(text string, now time.Time) (task.Task, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return task.Task{}, errors.New("empty input")
	}

	t := task.Task{
		Type:     task.TypeTask,
		Priority: task.PriorityMedium,
		Category: "other",
		Source:   task.SourceLocal,
	}

	desc := trimmed
	if remindPrefixRe.MatchString(desc) {
		t.Type = task.TypeRemind
		desc = remindPrefixRe.ReplaceAllString(desc, "")
	} else {
		desc = addPrefixRe.ReplaceAllString(desc, "")
	}

	lower := strings.ToLower(trimmed)
	for _, w := range eventWords {
		if strings.Contains(lower, w) {
			t.Type = task.TypeEvent
			break
		}
	}

	for _, w := range highWords {
		if strings.Contains(lower, w) {
			t.Priority = task.PriorityHigh
			break
		}
	}
	if t.Priority == task.PriorityMedium {
		for _, w := range lowWords {
			if strings.Contains(lower, w) {
				t.Priority = task.PriorityLow
				break
			}
		}
	}

	for _, cw := range categoryWords {
		for _, w := range cw.words {
			if strings.Contains(lower, w) {
				t.Category = cw.category
				break
			}
		}
		if t.Category != "other" {
			break
		}
	}

	if m := withRe.FindStringSubmatch(trimmed); m != nil {
		p := strings.TrimSpace(m[1])
		if p != "" && !strings.EqualFold(p, "me") && !strings.EqualFold(p, "you") {
			t.Participants = []string{p}
		}
	}

	if r, err := in.w.Parse(desc, now); err == nil && r != nil {
		due := task.Naive(r.Time)
		t.Date = &due
		desc = strings.TrimSpace(desc[:r.Index] + desc[r.Index+len(r.Text):])
	}

	desc = strings.Trim(desc, " .,;:")
	if desc == "" {
		desc = trimmed
	}
	t.Description = desc

	return t, nil
}
