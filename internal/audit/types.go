package audit

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("audit disabled")

// Config configures the reminder delivery log.
//
// Driver values:
//   - "file": dependency-free append-only JSON Lines
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the log is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Reminder kinds recorded per delivery.
const (
	KindApproaching = "approaching"
	KindImmediate   = "immediate"
	KindReport      = "report"
)

// Entry records one reminder delivery attempt.
// Keep it compact and schema-stable.
type Entry struct {
	At      time.Time `json:"at"`
	TaskID  string    `json:"task_id"`
	Kind    string    `json:"kind"`
	Channel string    `json:"channel"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}
