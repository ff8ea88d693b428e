package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseJSONWithDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "DEBUG", "console": true},
		"scheduler": {"enabled": true}
	}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Fatalf("Level = %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.Tick != "60s" {
		t.Fatalf("default tick = %q, want 60s", cfg.Scheduler.Tick)
	}
	if cfg.Scheduler.Approaching != "@hourly" {
		t.Fatalf("default approaching = %q", cfg.Scheduler.Approaching)
	}
	if cfg.Scheduler.Cleanup != "0 1 * * *" {
		t.Fatalf("default cleanup = %q", cfg.Scheduler.Cleanup)
	}
	if cfg.Scheduler.LookaheadDays != 14 {
		t.Fatalf("default lookahead = %d", cfg.Scheduler.LookaheadDays)
	}
	if cfg.Store.Path != "./tasks.json" {
		t.Fatalf("default store path = %q", cfg.Store.Path)
	}
	if cfg.Notify.RatePerSec != 1 {
		t.Fatalf("default rate = %d", cfg.Notify.RatePerSec)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: INFO
  console: true
store:
  path: /var/lib/smarttask/tasks.json
scheduler:
  enabled: true
  tick: 30s
  lookahead_days: 7
calendar:
  credentials_file: creds.json
  token_file: token.json
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.Path != "/var/lib/smarttask/tasks.json" {
		t.Fatalf("store path = %q", cfg.Store.Path)
	}
	if cfg.Scheduler.Tick != "30s" || cfg.Scheduler.LookaheadDays != 7 {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Calendar == nil || cfg.Calendar.CalendarID != "primary" {
		t.Fatalf("calendar default id not applied: %+v", cfg.Calendar)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"scheduler": {"tik": "60s"}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"scheduler": {}}{"more": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := NewManager(filepath.Join(t.TempDir(), "nope.json")).Parse(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCommitAndCurrent(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"scheduler": {"enabled": true}}`)
	m := NewManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if m.Current() != nil {
		t.Fatal("Current before Commit should be nil")
	}
	m.Commit(cfg)
	if m.Current() != cfg {
		t.Fatal("Current did not return committed config")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("scheduler.tick", "90s")
	if err != nil || d.Seconds() != 90 {
		t.Fatalf("ParseDurationField = %v, %v", d, err)
	}
	if _, err := ParseDurationField("scheduler.tick", "ninety"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
