// Package journal persists a history of sync runs in SQLite so operators
// can answer "what did the last run do" without reading git history.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded sync run.
type Entry struct {
	RunID          string
	Repository     string
	Mode           string // production or dry-run
	Outcome        string // published, no-op, failed, canceled
	SourceCommit   string
	PublishCommit  string
	FilesRendered  int
	RenderFailures int
	FilesDeleted   int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store persists run entries. Journal failures must never fail a run; the
// caller logs and continues.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, repository string, limit int) ([]Entry, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the journal database. Use ":memory:" for an
// in-memory journal, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		repository TEXT NOT NULL,
		mode TEXT NOT NULL,
		outcome TEXT NOT NULL,
		source_commit TEXT,
		publish_commit TEXT,
		files_rendered INTEGER NOT NULL DEFAULT 0,
		render_failures INTEGER NOT NULL DEFAULT 0,
		files_deleted INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_repository ON runs(repository);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one run entry.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, repository, mode, outcome, source_commit, publish_commit,
			files_rendered, render_failures, files_deleted, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Repository, e.Mode, e.Outcome, e.SourceCommit, e.PublishCommit,
		e.FilesRendered, e.RenderFailures, e.FilesDeleted, e.Error,
		e.StartedAt.Unix(), e.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns the latest runs for a repository, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, repository string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, repository, mode, outcome, source_commit, publish_commit,
			files_rendered, render_failures, files_deleted, error, started_at, finished_at
		 FROM runs WHERE repository = ? ORDER BY id DESC LIMIT ?`,
		repository, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.RunID, &e.Repository, &e.Mode, &e.Outcome,
			&e.SourceCommit, &e.PublishCommit,
			&e.FilesRendered, &e.RenderFailures, &e.FilesDeleted,
			&e.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.StartedAt = time.Unix(started, 0)
		e.FinishedAt = time.Unix(finished, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
