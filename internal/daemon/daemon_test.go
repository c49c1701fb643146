package daemon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/pagesync/internal/config"
	syncengine "git.home.luguber.info/inful/pagesync/internal/sync"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatusReflectsLastRun(t *testing.T) {
	cfg := &config.Config{Repository: config.Repository{Name: "widgets"}}
	d := New(cfg, "", discard())

	s := d.Status()
	if s.Repository != "widgets" || s.LastRunID != "" || s.SyncRunning {
		t.Fatalf("initial status %+v", s)
	}

	d.mu.Lock()
	d.last = &syncengine.Report{RunID: "run-1", Outcome: syncengine.OutcomePublished}
	d.mu.Unlock()

	s = d.Status()
	if s.LastRunID != "run-1" || s.LastOutcome != "published" {
		t.Fatalf("status %+v", s)
	}
}

func TestReloadKeepsConfigOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pagesync.yaml")

	good := `
repository:
  name: widgets
  path: /srv/widgets.git
classifier:
  url: http://classifier.local
`
	if err := os.WriteFile(path, []byte(good), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	d := New(cfg, path, discard())

	// Valid edit takes effect.
	updated := `
repository:
  name: gadgets
  path: /srv/widgets.git
classifier:
  url: http://classifier.local
`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	d.reloadConfig()
	if got := d.currentConfig().Repository.Name; got != "gadgets" {
		t.Fatalf("config not reloaded: %s", got)
	}

	// Broken edit keeps the previous configuration.
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	d.reloadConfig()
	if got := d.currentConfig().Repository.Name; got != "gadgets" {
		t.Fatalf("broken config replaced good one: %s", got)
	}
}
