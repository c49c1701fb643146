package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagesync/internal/config"
	"git.home.luguber.info/inful/pagesync/internal/daemon"
	"git.home.luguber.info/inful/pagesync/internal/events"
	"git.home.luguber.info/inful/pagesync/internal/journal"
	"git.home.luguber.info/inful/pagesync/internal/services"
	syncengine "git.home.luguber.info/inful/pagesync/internal/sync"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"pagesync.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Sync struct {
		Production bool `help:"Push the publish branch after committing"`
	} `cmd:"" help:"Run one synchronization of the publish branch"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Status struct {
		Limit int `short:"n" help:"Number of recent runs to show" default:"10"`
	} `cmd:"" help:"Show recent sync runs from the journal"`

	Daemon struct {
	} `cmd:"" help:"Run continuously: periodic sync, config reload, metrics endpoint"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "sync":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if CLI.Sync.Production {
			cfg.Publish.Production = true
		}
		if err := runSync(cfg, logger); err != nil {
			slog.Error("Sync failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Configuration written", "path", CLI.Config)
	case "status":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runStatus(cfg, CLI.Status.Limit); err != nil {
			slog.Error("Status failed", "error", err)
			os.Exit(1)
		}
	case "daemon":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runDaemon(cfg, logger); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	}
}

func runSync(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store journal.Store
	if cfg.Journal.Path != "" {
		s, err := journal.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	publisher, err := events.NewNATSPublisher(&cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("connect event publisher: %w", err)
	}
	defer func() { _ = publisher.Close() }()

	o := services.New(cfg, logger, nil, store, publisher)
	report, err := o.Sync(ctx)
	if err != nil {
		return err
	}

	switch report.Outcome {
	case syncengine.OutcomeNoop:
		slog.Info("Already synchronized", "commit", report.SourceHead.Short())
	default:
		slog.Info("Publish complete",
			"outcome", string(report.Outcome),
			"rendered", len(report.Apply.Rendered),
			"removed", len(report.Apply.Removed),
			"failures", len(report.Apply.Failures),
			"pushed", report.Commit.Pushed)
	}
	return nil
}

func runStatus(cfg *config.Config, limit int) error {
	if cfg.Journal.Path == "" {
		return fmt.Errorf("no journal configured (journal.path)")
	}
	store, err := journal.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(context.Background(), cfg.Repository.Name, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-9s  %-10s  rendered=%d removed=%d failures=%d",
			e.FinishedAt.Format("2006-01-02 15:04:05"), e.Outcome, e.Mode,
			e.FilesRendered, e.FilesDeleted, e.RenderFailures)
		if e.Error != "" {
			line += "  error: " + e.Error
		}
		fmt.Println(line)
	}
	return nil
}

func runDaemon(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Starting daemon mode",
		"interval", cfg.Daemon.Interval.Std().String(),
		"listen", cfg.Daemon.Listen)

	d := daemon.New(cfg, CLI.Config, logger)
	return d.Run(ctx)
}
