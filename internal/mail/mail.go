package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// Config mirrors the email section of the process config.
type Config struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
}

// Sender delivers reminder and report mails over SMTP.
//
// Recipient selection: the first participant that looks like an address
// gets the reminder, otherwise it goes to the configured account itself.
type Sender struct {
	cfg Config
	log logx.Logger

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Host) == "" || strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("mail: host and username are required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Sender{cfg: cfg, log: log}
	s.send = smtp.SendMail
	if cfg.UseTLS {
		s.send = s.sendImplicitTLS
	}
	return s, nil
}

// sendImplicitTLS dials a TLS-from-the-start (smtps) endpoint, for servers
// that expose port 465 instead of STARTTLS on the submission port.
func (s *Sender) sendImplicitTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if a != nil {
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *Sender) Channel() string { return "email" }

// SendReminder mails a single task reminder.
func (s *Sender) SendReminder(ctx context.Context, t task.Task) error {
	to := s.cfg.Username
	if len(t.Participants) > 0 && strings.Contains(t.Participants[0], "@") {
		to = t.Participants[0]
	}
	subject := "Reminder: " + t.Description
	body := reminderBody(t)
	return s.deliver(ctx, to, subject, body)
}

// SendReport mails a date-grouped summary of the given tasks.
func (s *Sender) SendReport(ctx context.Context, addr string, tasks []task.Task) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("mail: report address is empty")
	}
	return s.deliver(ctx, addr, "SmartTask Assistant - Task Report", reportBody(tasks, time.Now()))
}

func (s *Sender) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.Username)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	// smtp.SendMail upgrades to STARTTLS whenever the server offers it.
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.cfg.Username, []string{to}, []byte(msg.String())) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func reminderBody(t task.Task) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>Task Reminder</h2>")
	fmt.Fprintf(&b, "<p><strong>Task:</strong> %s</p>", t.Description)
	if due, ok := t.Due(); ok {
		fmt.Fprintf(&b, "<p><strong>Date:</strong> %s</p>", due.Format("Monday, January 2, 2006 at 3:04 PM"))
	}
	fmt.Fprintf(&b, "<p><strong>Priority:</strong> %s</p>", capitalize(string(t.Priority)))
	fmt.Fprintf(&b, "<p><strong>Category:</strong> %s</p>", capitalize(t.Category))
	if t.Location != "" {
		fmt.Fprintf(&b, "<p><strong>Location:</strong> %s</p>", t.Location)
	}
	if len(t.Participants) > 1 {
		fmt.Fprintf(&b, "<p><strong>Participants:</strong> %s</p>", strings.Join(t.Participants[1:], ", "))
	}
	b.WriteString("<p>This is an automated reminder from your SmartTask Assistant.</p>")
	b.WriteString("</body></html>")
	return b.String()
}

func reportBody(tasks []task.Task, now time.Time) string {
	groups := map[string][]task.Task{}
	for _, t := range tasks {
		key := "Undated"
		if due, ok := t.Due(); ok {
			key = task.Naive(due).Format("2006-01-02")
		}
		groups[key] = append(groups[key], t)
	}

	today := task.Naive(now).Format("2006-01-02")
	tomorrow := task.Naive(now).AddDate(0, 0, 1).Format("2006-01-02")
	horizon := task.Naive(now).AddDate(0, 0, 7).Format("2006-01-02")

	var b strings.Builder
	b.WriteString("<html><body><h1>SmartTask Assistant - Task Report</h1>")

	if g, ok := groups[today]; ok {
		b.WriteString("<h2>Today's Tasks</h2>")
		writeTaskTable(&b, g)
	}
	if g, ok := groups[tomorrow]; ok {
		b.WriteString("<h2>Tomorrow's Tasks</h2>")
		writeTaskTable(&b, g)
	}

	var upcoming []string
	for day := range groups {
		if day == today || day == tomorrow || day == "Undated" {
			continue
		}
		if day <= horizon {
			upcoming = append(upcoming, day)
		}
	}
	sort.Strings(upcoming)
	if len(upcoming) > 0 {
		b.WriteString("<h2>Upcoming Tasks</h2>")
		for _, day := range upcoming {
			if d, err := time.Parse("2006-01-02", day); err == nil {
				fmt.Fprintf(&b, "<h3>%s</h3>", d.Format("Monday, January 2"))
			}
			writeTaskTable(&b, groups[day])
		}
	}

	b.WriteString("<p>This is an automated report from your SmartTask Assistant.</p></body></html>")
	return b.String()
}

func writeTaskTable(b *strings.Builder, tasks []task.Task) {
	b.WriteString("<table><tr><th>Task</th><th>Time</th><th>Priority</th><th>Category</th></tr>")
	for _, t := range tasks {
		when := "All day"
		if due, ok := t.Due(); ok {
			when = due.Format("3:04 PM")
		}
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			t.Description, when, capitalize(string(t.Priority)), capitalize(t.Category))
	}
	b.WriteString("</table>")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
