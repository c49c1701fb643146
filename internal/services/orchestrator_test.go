package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/pagesync/internal/config"
	"git.home.luguber.info/inful/pagesync/internal/journal"
	"git.home.luguber.info/inful/pagesync/internal/sync"
	"git.home.luguber.info/inful/pagesync/internal/testutil"
)

// classifierServer approves every candidate path.
func classifierServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Paths []string `json:"paths"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"source_files": req.Paths})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, originDir, classifierURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Repository: config.Repository{
			Path:   originDir,
			Name:   "widgets",
			Branch: "main",
		},
		Publish: config.PublishConfig{
			Branch: "pages",
			Remote: "origin",
		},
		Classifier: config.ClassifierConfig{
			URL:     classifierURL,
			Timeout: config.Duration(5 * time.Second),
		},
		Workspace: config.WorkspaceConfig{
			Dir:        t.TempDir(),
			Persistent: true,
		},
	}
}

func TestSyncEndToEnd(t *testing.T) {
	_, originWT, originDir := testutil.InitRepo(t)
	testutil.WriteFile(t, originDir, "README.md", "# widgets\n")
	testutil.WriteFile(t, originDir, "docs/guide.md", "# guide\n")
	testutil.CommitAll(t, originWT, "initial docs")

	srv := classifierServer(t)
	cfg := testConfig(t, originDir, srv.URL)

	store, err := journal.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	defer store.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := New(cfg, log, nil, store, nil)
	ctx := context.Background()

	// First run: publish branch does not exist anywhere, full rebuild.
	report, err := o.Sync(ctx)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if report.Outcome != sync.OutcomePublished || !report.FullRebuild {
		t.Fatalf("first run: %+v", report)
	}
	if len(report.Apply.Rendered) != 2 {
		t.Fatalf("rendered %v", report.Apply.Rendered)
	}
	if report.Commit.Pushed {
		t.Fatal("dry-run must not push")
	}

	// Second run with no source changes: no-op, no new commit.
	report, err = o.Sync(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.Outcome != sync.OutcomeNoop || report.Commit.Committed {
		t.Fatalf("second run: %+v", report)
	}

	// Change one file at origin: incremental run renders exactly it.
	testutil.WriteFile(t, originDir, "docs/guide.md", "# guide v2\n")
	testutil.CommitAll(t, originWT, "update guide")

	report, err = o.Sync(ctx)
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if report.Outcome != sync.OutcomePublished {
		t.Fatalf("third run outcome %s", report.Outcome)
	}
	if report.FullRebuild {
		t.Fatal("third run should be incremental")
	}
	if len(report.Apply.Rendered) != 1 || report.Apply.Rendered[0] != "docs/guide.html" {
		t.Fatalf("rendered %v", report.Apply.Rendered)
	}

	// All three runs are in the journal, newest first.
	entries, err := store.Recent(ctx, "widgets", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("journal has %d entries", len(entries))
	}
	if entries[0].Outcome != string(sync.OutcomePublished) ||
		entries[1].Outcome != string(sync.OutcomeNoop) ||
		entries[2].Outcome != string(sync.OutcomePublished) {
		t.Fatalf("journal outcomes: %s %s %s", entries[0].Outcome, entries[1].Outcome, entries[2].Outcome)
	}
}

func TestSyncClassifierDownFailsBeforeMutation(t *testing.T) {
	_, originWT, originDir := testutil.InitRepo(t)
	testutil.WriteFile(t, originDir, "README.md", "# widgets\n")
	testutil.CommitAll(t, originWT, "initial docs")

	cfg := testConfig(t, originDir, "http://127.0.0.1:1")
	cfg.Classifier.Timeout = config.Duration(200 * time.Millisecond)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := New(cfg, log, nil, nil, nil)

	if _, err := o.Sync(context.Background()); err == nil {
		t.Fatal("expected fatal error")
	}

	// The origin repository still has no publish branch.
	origin, err := gogit.PlainOpen(originDir)
	if err != nil {
		t.Fatalf("open origin: %v", err)
	}
	branches, err := origin.Branches()
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().Short() == "pages" {
			t.Errorf("publish branch created despite fatal error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("iterate branches: %v", err)
	}
}
