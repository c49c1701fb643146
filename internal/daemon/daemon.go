// Package daemon runs pagesync continuously: a periodic sync schedule, a
// config file watcher for live reload, and an HTTP endpoint for metrics
// and status.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pagesync/internal/config"
	"git.home.luguber.info/inful/pagesync/internal/events"
	"git.home.luguber.info/inful/pagesync/internal/journal"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/metrics"
	"git.home.luguber.info/inful/pagesync/internal/services"
	syncengine "git.home.luguber.info/inful/pagesync/internal/sync"
)

// Status is the JSON shape served at /status.
type Status struct {
	Repository   string     `json:"repository"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastOutcome  string     `json:"last_outcome,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
	SyncRunning  bool       `json:"sync_running"`
}

// Daemon owns the long-running pieces and serializes sync runs: at most
// one run per repository at a time, a skipped tick when one is in flight.
type Daemon struct {
	configPath string
	log        *slog.Logger

	mu      sync.RWMutex
	cfg     *config.Config
	last    *syncengine.Report
	lastErr error

	syncing  sync.Mutex
	inFlight bool

	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	journal  journal.Store
	events   events.Publisher
}

// New creates a daemon from a loaded configuration. configPath enables
// live reload; empty disables the watcher.
func New(cfg *config.Config, configPath string, log *slog.Logger) *Daemon {
	if log == nil {
		log = slog.Default()
	}
	registry := prom.NewRegistry()
	return &Daemon{
		configPath: configPath,
		log:        log,
		cfg:        cfg,
		registry:   registry,
		recorder:   metrics.NewPrometheusRecorder(registry),
	}
}

// Run blocks until ctx is canceled. One sync runs immediately at startup,
// then on every scheduler tick.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.currentConfig()

	if cfg.Journal.Path != "" {
		store, err := journal.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return err
		}
		d.journal = store
		defer func() { _ = store.Close() }()
	}

	publisher, err := events.NewNATSPublisher(&cfg.Events, d.log)
	if err != nil {
		return err
	}
	d.events = publisher
	defer func() { _ = publisher.Close() }()

	scheduler, err := NewScheduler()
	if err != nil {
		return err
	}
	if _, err := scheduler.ScheduleSync(cfg.Daemon.Interval.Std(), func() { d.runSync(ctx) }); err != nil {
		return err
	}

	if d.configPath != "" {
		watcher, werr := NewConfigWatcher(d.configPath, d.reloadConfig)
		if werr != nil {
			return werr
		}
		if werr := watcher.Start(ctx); werr != nil {
			return werr
		}
		defer func() { _ = watcher.Stop() }()
	}

	server := newHTTPServer(cfg.Daemon.Listen, d.registry, d, d.log)
	server.Start()
	scheduler.Start()

	d.runSync(ctx)

	<-ctx.Done()
	d.log.Info("shutting down daemon")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("HTTP shutdown failed", logfields.Error(err))
	}
	return scheduler.Stop()
}

// runSync executes one sync. A tick that arrives while a run is in flight
// is skipped, not queued; the next tick covers it.
func (d *Daemon) runSync(ctx context.Context) {
	if !d.syncing.TryLock() {
		d.log.Warn("previous sync still running, skipping tick")
		return
	}
	defer d.syncing.Unlock()

	d.setInFlight(true)
	defer d.setInFlight(false)

	cfg := d.currentConfig()
	o := services.New(cfg, d.log, d.recorder, d.journal, d.events)
	report, err := o.Sync(ctx)

	d.mu.Lock()
	d.last = &report
	d.lastErr = err
	d.mu.Unlock()

	if err != nil {
		d.log.Error("scheduled sync failed", logfields.Error(err))
	}
}

// reloadConfig re-reads the config file. A broken file keeps the previous
// configuration active. The new configuration applies to subsequent sync
// runs; daemon-level settings (interval, listen, journal, events) keep their
// startup values.
func (d *Daemon) reloadConfig() {
	cfg, err := config.Load(d.configPath)
	if err != nil {
		d.log.Error("config reload failed, keeping previous configuration", logfields.Error(err))
		return
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.log.Info("configuration reloaded", logfields.Path(d.configPath))
}

func (d *Daemon) currentConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Daemon) setInFlight(v bool) {
	d.mu.Lock()
	d.inFlight = v
	d.mu.Unlock()
}

// Status reports the last run for the HTTP status endpoint.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Status{
		Repository:  d.cfg.Repository.Name,
		SyncRunning: d.inFlight,
	}
	if d.last != nil {
		s.LastRunID = d.last.RunID
		s.LastOutcome = string(d.last.Outcome)
		finished := d.last.FinishedAt
		s.LastFinished = &finished
	}
	if d.lastErr != nil {
		s.LastError = d.lastErr.Error()
	}
	return s
}
