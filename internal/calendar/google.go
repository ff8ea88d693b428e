package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// Config locates the OAuth material for the Google Calendar client.
type Config struct {
	CredentialsFile string
	TokenFile       string
	CalendarID      string
}

// GoogleClient implements Calendar against the Google Calendar API.
type GoogleClient struct {
	srv        *gcal.Service
	calendarID string
	log        logx.Logger
}

// NewGoogleClient builds the client from a client-secrets file and a stored
// token. Obtaining the token (the interactive consent flow) belongs to the
// outer OAuth layer; the core only consumes a token that already exists.
func NewGoogleClient(ctx context.Context, cfg Config, log logx.Logger) (*GoogleClient, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", cfg.CredentialsFile, err)
	}
	conf, err := google.ConfigFromJSON(b, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tok, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("no stored token at %s (run the auth flow first): %w", cfg.TokenFile, err)
	}

	srv, err := gcal.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	id := cfg.CalendarID
	if id == "" {
		id = "primary"
	}
	return &GoogleClient{srv: srv, calendarID: id, log: log}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}

// CreateEvent inserts a calendar event for the task and returns its id.
// The event runs from the task date for EstimatedDuration minutes
// (default 30) and carries the standard reminder overrides.
func (c *GoogleClient) CreateEvent(ctx context.Context, t task.Task) (string, error) {
	due, ok := t.Due()
	if !ok {
		return "", errors.New("task has no date")
	}
	ev := c.eventBody(t, due)

	created, err := c.srv.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

// UpdateEvent rewrites the mutable fields of an existing event from the task.
func (c *GoogleClient) UpdateEvent(ctx context.Context, eventID string, t task.Task) error {
	due, ok := t.Due()
	if !ok {
		return errors.New("task has no date")
	}
	ev, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return err
	}

	body := c.eventBody(t, due)
	ev.Summary = body.Summary
	ev.Location = body.Location
	ev.Description = body.Description
	ev.Start = body.Start
	ev.End = body.End

	_, err = c.srv.Events.Update(c.calendarID, eventID, ev).Context(ctx).Do()
	return err
}

func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// ListUpcoming returns timed events starting within the next `days` days.
// All-day events (date only, no start time) are skipped, matching the
// reconciliation contract.
func (c *GoogleClient) ListUpcoming(ctx context.Context, days int) ([]Event, error) {
	now := time.Now().UTC()
	res, err := c.srv.Events.List(c.calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.AddDate(0, 0, days).Format(time.RFC3339)).
		MaxResults(50).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}

	out := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		start, err := task.ParseWhen(item.Start.DateTime)
		if err != nil {
			c.log.Warn("skipping event with unparsable start", logx.String("event", item.Id), logx.Err(err))
			continue
		}
		ev := Event{
			ID:          item.Id,
			Description: item.Summary,
			Date:        start,
			Priority:    task.PriorityMedium,
			Category:    "calendar",
			Location:    item.Location,
		}
		if ev.Description == "" {
			ev.Description = "Unnamed event"
		}
		applyDescriptionTags(&ev, item.Description)
		out = append(out, ev)
	}
	return out, nil
}

// applyDescriptionTags recovers "Priority:"/"Category:" lines that
// CreateEvent writes into the event description.
func applyDescriptionTags(ev *Event, desc string) {
	for _, line := range strings.Split(strings.ToLower(desc), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "priority:"):
			p := task.Priority(strings.TrimSpace(strings.TrimPrefix(line, "priority:")))
			if p == task.PriorityLow || p == task.PriorityMedium || p == task.PriorityHigh {
				ev.Priority = p
			}
		case strings.HasPrefix(line, "category:"):
			if c := strings.TrimSpace(strings.TrimPrefix(line, "category:")); c != "" {
				ev.Category = c
			}
		}
	}
}

func (c *GoogleClient) eventBody(t task.Task, due time.Time) *gcal.Event {
	duration := t.EstimatedDuration
	if duration <= 0 {
		duration = 30
	}
	start := due.UTC()
	end := start.Add(time.Duration(duration) * time.Minute)

	ev := &gcal.Event{
		Summary:     t.Description,
		Location:    t.Location,
		Description: fmt.Sprintf("Priority: %s\nCategory: %s", t.Priority, t.Category),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 15},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if t.Recurrence != "" && t.Recurrence != "none" {
		ev.Recurrence = []string{"RRULE:FREQ=" + strings.ToUpper(t.Recurrence)}
	}

	for _, p := range t.Participants {
		if strings.Contains(p, "@") {
			ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: p})
		} else {
			ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{DisplayName: p})
		}
	}

	return ev
}
