package app

import (
	"context"

	"smarttask/internal/audit"
	"smarttask/internal/calendar"
	"smarttask/internal/config"
	"smarttask/internal/mail"
	"smarttask/internal/notify"
	"smarttask/internal/scheduler"
	"smarttask/internal/store"
	logx "smarttask/pkg/logx"
)

// App assembles the process: config, logging, the task store, the optional
// collaborators (email, calendar, telegram), and the scheduler on top.
type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	store      *store.Store
	deliveries audit.Store
	sched      *scheduler.Service

	// Collaborators kept for rebuilding the scheduler on config reload.
	notifier scheduler.Notifier
	inbox    scheduler.Inbox
	cal      calendar.Calendar
	reporter scheduler.Reporter

	// lastCfg is the config currently applied; Watch commits the new one
	// to the manager before the change callback runs.
	lastCfg *config.Config

	runCtx      context.Context
	watchCancel context.CancelFunc
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Parse()
	if err != nil {
		return nil, err
	}
	cfgm.Commit(cfg)

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, log: log, logs: logSvc, lastCfg: cfg}

	// Delivery log (optional)
	if cfg.Audit != nil && cfg.Audit.Driver != "" && cfg.Audit.Driver != "none" {
		busy, err := config.ParseDurationOrDefault("audit.busy_timeout", cfg.Audit.BusyTimeout, 0)
		if err != nil {
			return nil, err
		}
		deliveries, err := audit.Open(audit.Config{
			Driver:      cfg.Audit.Driver,
			Path:        cfg.Audit.Path,
			BusyTimeout: busy,
		}, logSvc.Logger().With(logx.String("comp", "audit")))
		if err != nil {
			return nil, err
		}
		a.deliveries = deliveries
		log.Info("delivery log enabled", logx.String("driver", cfg.Audit.Driver))
	}

	st, err := store.Open(cfg.Store.Path, logSvc.Logger().With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}
	a.store = st

	// Calendar collaborator (optional). A configured but unreachable calendar
	// is a startup error: silent degradation here would mask bad credentials.
	var cal calendar.Calendar
	if cfg.Calendar != nil {
		gc, err := calendar.NewGoogleClient(context.Background(), calendar.Config{
			CredentialsFile: cfg.Calendar.CredentialsFile,
			TokenFile:       cfg.Calendar.TokenFile,
			CalendarID:      cfg.Calendar.CalendarID,
		}, logSvc.Logger().With(logx.String("comp", "calendar")))
		if err != nil {
			return nil, err
		}
		cal = gc
		st.SetCalendar(gc)
	}

	// Reminder channels
	var senders []notify.Sender
	var sender *mail.Sender
	if cfg.Email != nil {
		sender, err = mail.NewSender(mail.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			UseTLS:   cfg.Email.UseTLS,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
		}, logSvc.Logger().With(logx.String("comp", "mail")))
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender)
	}
	if cfg.Telegram != nil {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, logSvc.Logger().With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		senders = append(senders, tg)
	}
	notif := notify.New(logSvc.Logger().With(logx.String("comp", "notify")), a.deliveries, cfg.Notify.RatePerSec, senders...)

	// Inbox import (optional)
	var inbox scheduler.Inbox
	if cfg.Email != nil && cfg.Email.InboxDir != "" {
		mlog := logSvc.Logger().With(logx.String("comp", "inbox"))
		inbox = mail.NewInbox(mail.NewDirFetcher(cfg.Email.InboxDir, mlog), mlog)
	}

	var reporter scheduler.Reporter
	if sender != nil && cfg.Email.ReportTo != "" {
		reporter = sender
	}

	a.notifier = notif
	a.inbox = inbox
	a.cal = cal
	a.reporter = reporter

	a.sched, err = a.buildScheduler(cfg)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *App) buildScheduler(cfg *config.Config) (*scheduler.Service, error) {
	tick, err := config.ParseDurationField("scheduler.tick", cfg.Scheduler.Tick)
	if err != nil {
		return nil, err
	}
	stopTimeout, err := config.ParseDurationField("scheduler.stop_timeout", cfg.Scheduler.StopTimeout)
	if err != nil {
		return nil, err
	}
	reportTo := ""
	if a.reporter != nil && cfg.Email != nil {
		reportTo = cfg.Email.ReportTo
	}
	return scheduler.New(scheduler.Config{
		Tick:          tick,
		Approaching:   cfg.Scheduler.Approaching,
		EmailImport:   cfg.Scheduler.EmailImport,
		CalendarSync:  cfg.Scheduler.CalendarSync,
		Cleanup:       cfg.Scheduler.Cleanup,
		LookaheadDays: cfg.Scheduler.LookaheadDays,
		StopTimeout:   stopTimeout,
		ReportTo:      reportTo,
	}, a.store, a.notifier, a.inbox, a.cal, a.reporter, a.logs.Logger().With(logx.String("comp", "scheduler"))), nil
}

// Store exposes the task store for embedding callers (CLI verbs, tests).
func (a *App) Store() *store.Store { return a.store }

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Current()
	a.runCtx = ctx

	if cfg.Scheduler.Enabled {
		if err := a.sched.Start(ctx); err != nil {
			return err
		}
	} else {
		a.log.Info("scheduler disabled by config")
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go func() {
		if err := a.cfgm.Watch(wctx, a.onConfigChange); err != nil && wctx.Err() == nil {
			a.log.Warn("config watch ended", logx.Err(err))
		}
	}()

	a.log.Info("started")
	return nil
}

// onConfigChange applies what can change at runtime: logging takes effect
// immediately, and a changed scheduler section swaps in a rebuilt scheduler.
// Store path and collaborator wiring still need a restart.
func (a *App) onConfigChange(cfg *config.Config) {
	prev := a.lastCfg
	a.lastCfg = cfg

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if prev != nil && prev.Scheduler == cfg.Scheduler {
		return
	}

	next, err := a.buildScheduler(cfg)
	if err != nil {
		a.log.Warn("scheduler keeps previous cadence: new config invalid", logx.Err(err))
		return
	}

	a.sched.Stop()
	if !cfg.Scheduler.Enabled {
		a.sched = next
		a.log.Info("scheduler disabled by config reload")
		return
	}
	if err := next.Start(a.runCtx); err != nil {
		a.log.Error("rebuilt scheduler failed to start; restoring previous", logx.Err(err))
		if err := a.sched.Start(a.runCtx); err != nil {
			a.log.Error("previous scheduler also failed to restart", logx.Err(err))
		}
		return
	}
	a.sched = next
	a.log.Info("scheduler cadence reloaded")
}

func (a *App) Stop() {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.sched.Stop()
	if a.deliveries != nil {
		_ = a.deliveries.Close()
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
}
