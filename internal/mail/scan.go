package mail

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// Message is one inbox message as seen by the scanner. Fetching (IMAP or
// otherwise) stays outside the core; the scanner only cares about content.
type Message struct {
	From    string
	Subject string
	Body    string
}

// Fetcher retrieves recent unread messages.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Message, error)
}

// Inbox turns task-like inbox messages into task candidates.
type Inbox struct {
	fetcher Fetcher
	log     logx.Logger
	now     func() time.Time
}

func NewInbox(f Fetcher, log logx.Logger) *Inbox {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Inbox{fetcher: f, log: log, now: time.Now}
}

var subjectKeywords = []string{"task", "reminder", "meeting", "appointment", "schedule", "todo"}

// Scan fetches recent messages and extracts a task candidate from each one
// whose subject looks task-related. A message that fails extraction is
// skipped, never fatal.
func (in *Inbox) Scan(ctx context.Context) ([]task.Task, error) {
	msgs, err := in.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var out []task.Task
	for _, m := range msgs {
		subject := strings.ToLower(m.Subject)
		related := false
		for _, kw := range subjectKeywords {
			if strings.Contains(subject, kw) {
				related = true
				break
			}
		}
		if !related {
			continue
		}
		out = append(out, ExtractTask(m, in.now()))
	}
	return out, nil
}

var (
	htmlTagRe = regexp.MustCompile(`<[^<]+?>`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
		regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`\b(tomorrow|next week)\b`),
	}

	clockRe  = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)`)
	hourRe   = regexp.MustCompile(`(\d{1,2})\s*(am|pm)`)
	withRe   = regexp.MustCompile(`with ([a-z][a-z ]+)`)
	weekdays = map[string]time.Weekday{
		"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
		"sunday": time.Sunday,
	}

	highPriorityWords = []string{"urgent", "important", "critical", "asap", "high priority"}
	lowPriorityWords  = []string{"low priority", "whenever", "if you have time", "not urgent"}

	categoryPatterns = []struct {
		re       *regexp.Regexp
		category string
	}{
		{regexp.MustCompile(`\b(work|job|office|business|project)\b`), "work"},
		{regexp.MustCompile(`\b(personal|home|family|house)\b`), "personal"},
		{regexp.MustCompile(`\b(health|doctor|medical|appointment|workout|exercise)\b`), "health"},
		{regexp.MustCompile(`\b(finance|money|bank|payment|bill)\b`), "finance"},
		{regexp.MustCompile(`\b(education|study|class|course|learn|school)\b`), "education"},
	}
)

// ExtractTask builds a task candidate from message content. The subject
// becomes the description; date, priority, category and participants are
// pulled from the body by a fixed ruleset.
// Without a recognizable date the candidate defaults to tomorrow 09:00.
func ExtractTask(m Message, now time.Time) task.Task {
	body := m.Body
	if strings.Contains(strings.ToLower(body), "<html") {
		body = htmlTagRe.ReplaceAllString(body, " ")
	}
	lower := strings.ToLower(body)

	t := task.Task{
		Type:         task.TypeTask,
		Description:  m.Subject,
		Priority:     task.PriorityMedium,
		Category:     "email",
		Participants: []string{m.From},
		Source:       task.SourceEmail,
	}

	due := extractDate(lower, now)
	hour, minute := extractClock(lower)
	due = time.Date(due.Year(), due.Month(), due.Day(), hour, minute, 0, 0, time.Local)
	t.Date = &due

	for _, w := range highPriorityWords {
		if strings.Contains(lower, w) {
			t.Priority = task.PriorityHigh
			break
		}
	}
	if t.Priority == task.PriorityMedium {
		for _, w := range lowPriorityWords {
			if strings.Contains(lower, w) {
				t.Priority = task.PriorityLow
				break
			}
		}
	}

	for _, cp := range categoryPatterns {
		if cp.re.MatchString(lower) {
			t.Category = cp.category
			break
		}
	}

	if m := withRe.FindStringSubmatch(lower); m != nil {
		p := strings.TrimSpace(m[1])
		if p != "" && p != "me" && p != "you" && p != "a" {
			t.Participants = append(t.Participants, p)
		}
	}

	return t
}

func extractDate(lower string, now time.Time) time.Time {
	now = task.Naive(now)
	var phrase string
	for _, re := range datePatterns {
		if m := re.FindString(lower); m != "" {
			phrase = m
			break
		}
	}

	switch {
	case phrase == "":
		// Default: tomorrow.
		return now.AddDate(0, 0, 1)
	case phrase == "tomorrow":
		return now.AddDate(0, 0, 1)
	case phrase == "next week":
		return now.AddDate(0, 0, 7)
	}

	if wd, ok := weekdays[phrase]; ok {
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead)
	}

	if d, err := task.ParseWhen(phrase); err == nil {
		return d
	}
	if d, err := time.ParseInLocation("1/2/2006", phrase, time.Local); err == nil {
		return d
	}
	if d, err := time.ParseInLocation("1/2/06", phrase, time.Local); err == nil {
		return d
	}
	return now
}

// extractClock returns the first am/pm time found, defaulting to 09:00.
func extractClock(lower string) (hour, minute int) {
	hour, minute = 9, 0
	if m := clockRe.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if m[3] == "pm" && hour < 12 {
			hour += 12
		}
		return hour, minute
	}
	if m := hourRe.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] == "pm" && hour < 12 {
			hour += 12
		}
	}
	return hour, minute
}
