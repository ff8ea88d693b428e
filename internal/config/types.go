package config

// Config is the whole process configuration. The file may be JSON or YAML;
// unknown fields are rejected so typos surface at startup instead of being
// silently ignored.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Store     StoreConfig     `json:"store"`
	Audit     *AuditConfig    `json:"audit,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler"`

	Email    *EmailConfig    `json:"email,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Calendar *CalendarConfig `json:"calendar,omitempty"`
	Notify   NotifyConfig    `json:"notify,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StoreConfig locates the durable task snapshot.
type StoreConfig struct {
	Path string `json:"path"`
}

// AuditConfig controls the optional reminder delivery log.
//
// Driver values:
//   - "file": append-only JSON Lines
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the delivery log is disabled.
type AuditConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SchedulerConfig controls the background loop.
//
// Job specs accept cron expressions ("0 1 * * *"), cron descriptors
// ("@hourly", "@every 2h"), or plain Go durations ("2h").
// All other durations are Go duration strings.
type SchedulerConfig struct {
	Enabled bool   `json:"enabled"`
	Tick    string `json:"tick,omitempty"` // loop cadence, default "60s"

	Approaching  string `json:"approaching,omitempty"`   // default "@hourly"
	EmailImport  string `json:"email_import,omitempty"`  // default "2h"
	CalendarSync string `json:"calendar_sync,omitempty"` // default "3h"
	Cleanup      string `json:"cleanup,omitempty"`       // default "0 1 * * *"

	LookaheadDays int    `json:"lookahead_days,omitempty"` // calendar sync window, default 14
	StopTimeout   string `json:"stop_timeout,omitempty"`   // default "5s"
}

// EmailConfig configures the SMTP reminder channel and inbox import.
type EmailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	UseTLS   bool   `json:"use_tls"`
	Username string `json:"username"`
	Password string `json:"password"`

	// InboxDir enables the import job: messages dropped as files into this
	// directory are scanned for tasks and consumed.
	InboxDir string `json:"inbox_dir,omitempty"`

	// ReportTo receives daily task reports when set.
	ReportTo string `json:"report_to,omitempty"`
}

// TelegramConfig configures the supplementary telegram reminder channel.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// CalendarConfig configures the Google Calendar collaborator.
type CalendarConfig struct {
	CredentialsFile string `json:"credentials_file"`
	TokenFile       string `json:"token_file"`
	CalendarID      string `json:"calendar_id,omitempty"` // default "primary"
}

// NotifyConfig bounds outbound reminder traffic.
type NotifyConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"` // default 1
}
