package audit

import (
	"context"
	"errors"
	"strings"

	logx "smarttask/pkg/logx"
)

// Store is the minimal delivery-log API used by the notifier.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if the log is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}

// Record appends best-effort: a nil store or a write failure never disturbs
// the delivery path that produced the entry.
func Record(ctx context.Context, st Store, e Entry, log logx.Logger) {
	if st == nil {
		return
	}
	if err := st.Append(ctx, e); err != nil {
		log.Warn("delivery log append failed", logx.String("task", e.TaskID), logx.Err(err))
	}
}
