package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/pagesync/internal/logfields"
)

// Manager handles the scratch area holding the source and publish checkouts
// (both temporary and persistent).
type Manager struct {
	baseDir    string
	workDir    string
	persistent bool // If true, use a fixed directory without timestamps
}

// NewManager creates a workspace manager with ephemeral timestamped
// directories, removed on Cleanup.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewPersistentManager creates a workspace manager that reuses a fixed
// directory (baseDir/subdirName) across runs, keeping clones warm for
// incremental fetches. Cleanup leaves it in place.
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		workDir:    filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create ensures the workspace directory exists. Ephemeral mode creates a
// fresh timestamped directory each run.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.workDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.workDir))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	workDir := filepath.Join(m.baseDir, fmt.Sprintf("pagesync-%s", timestamp))

	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.workDir = workDir
	slog.Info("Created workspace", logfields.Path(workDir))
	return nil
}

// GetPath returns the path to the workspace directory.
func (m *Manager) GetPath() string {
	return m.workDir
}

// SourceDir is where the source branch checkout lives.
func (m *Manager) SourceDir() string {
	return filepath.Join(m.workDir, "source")
}

// PublishDir is where the publish branch checkout lives.
func (m *Manager) PublishDir() string {
	return filepath.Join(m.workDir, "publish")
}

// Cleanup removes the workspace directory. Persistent workspaces are kept
// for the next incremental run.
func (m *Manager) Cleanup() error {
	if m.workDir == "" {
		return nil
	}

	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.workDir))
		return nil
	}

	if err := os.RemoveAll(m.workDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Info("Cleaned up workspace", logfields.Path(m.workDir))
	m.workDir = ""
	return nil
}
