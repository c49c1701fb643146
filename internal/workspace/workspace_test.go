package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEphemeralCreateAndCleanup(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	path := m.GetPath()
	if !strings.HasPrefix(filepath.Base(path), "pagesync-") {
		t.Fatalf("unexpected workspace name: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("workspace missing: %v", err)
	}

	if err := m.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("ephemeral workspace survived cleanup")
	}
}

func TestPersistentSurvivesCleanup(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "working")

	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	path := m.GetPath()
	if path != filepath.Join(base, "working") {
		t.Fatalf("unexpected path: %s", path)
	}

	if err := m.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("persistent workspace removed: %v", err)
	}

	// Creating again is idempotent.
	if err := m.Create(); err != nil {
		t.Fatalf("recreate: %v", err)
	}
}

func TestCheckoutDirs(t *testing.T) {
	m := NewPersistentManager(t.TempDir(), "working")
	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.SourceDir() != filepath.Join(m.GetPath(), "source") {
		t.Fatalf("source dir %s", m.SourceDir())
	}
	if m.PublishDir() != filepath.Join(m.GetPath(), "publish") {
		t.Fatalf("publish dir %s", m.PublishDir())
	}
}
