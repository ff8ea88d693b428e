package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "smarttask/pkg/logx"
)

// Manager loads the config file and, when watching, republishes it on change.
// Only a valid config is ever committed; a broken edit keeps the last good one.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log logx.Logger

	// lastHash tracks the last successfully committed content so editor
	// write storms without content changes don't republish.
	lastHash uint64
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// Parse reads and strictly decodes the config file.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	jb, err := asJSON(m.path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch re-parses the file on fsnotify events and calls onChange with each
// newly committed config. It returns when ctx is done. Invalid edits are
// logged and skipped.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors often replace the file (rename+create),
	// which drops a watch placed on the file itself.
	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watcher error", logx.Err(err))
		case <-fire:
			cfg, err := m.Parse()
			if err != nil {
				m.log.Warn("config reload skipped: parse failed", logx.Err(err))
				continue
			}
			m.mu.RLock()
			prev := m.lastHash
			m.mu.RUnlock()
			if h := hashConfig(cfg); h == prev {
				continue
			}
			m.Commit(cfg)
			m.log.Info("config reloaded", logx.String("path", m.path))
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Scheduler.Tick == "" {
		cfg.Scheduler.Tick = "60s"
	}
	if cfg.Scheduler.Approaching == "" {
		cfg.Scheduler.Approaching = "@hourly"
	}
	if cfg.Scheduler.EmailImport == "" {
		cfg.Scheduler.EmailImport = "2h"
	}
	if cfg.Scheduler.CalendarSync == "" {
		cfg.Scheduler.CalendarSync = "3h"
	}
	if cfg.Scheduler.Cleanup == "" {
		cfg.Scheduler.Cleanup = "0 1 * * *"
	}
	if cfg.Scheduler.LookaheadDays <= 0 {
		cfg.Scheduler.LookaheadDays = 14
	}
	if cfg.Scheduler.StopTimeout == "" {
		cfg.Scheduler.StopTimeout = "5s"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./tasks.json"
	}
	if cfg.Notify.RatePerSec <= 0 {
		cfg.Notify.RatePerSec = 1
	}
	if cfg.Calendar != nil && cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
}

func hashConfig(cfg *Config) uint64 {
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
