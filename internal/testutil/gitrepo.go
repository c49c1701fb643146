// Package testutil provides shared git repository fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// InitRepo initializes a temporary git repository with "main" as the default
// branch. Returns the repository, its worktree, and the directory path.
func InitRepo(t *testing.T) (*gogit.Repository, *gogit.Worktree, string) {
	t.Helper()

	dir := t.TempDir()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	return repo, wt, dir
}

// WriteFile writes content to a path relative to the repository root,
// creating parent directories as needed.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()

	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// RemoveFile deletes a file from the worktree.
func RemoveFile(t *testing.T, dir, rel string) {
	t.Helper()

	if err := os.Remove(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
		t.Fatalf("remove %s: %v", rel, err)
	}
}

// CommitAll stages everything and commits with a fixed test author,
// returning the full commit hash.
func CommitAll(t *testing.T, wt *gogit.Worktree, message string) string {
	t.Helper()

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		t.Fatalf("stage: %v", err)
	}

	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("commit %q: %v", message, err)
	}
	return hash.String()
}

// CreateBranch creates and checks out a new branch at the current HEAD.
func CreateBranch(t *testing.T, repo *gogit.Repository, wt *gogit.Worktree, name string) {
	t.Helper()

	if err := wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	}); err != nil {
		t.Fatalf("create branch %s: %v", name, err)
	}
}

// Checkout switches the worktree to an existing branch.
func Checkout(t *testing.T, wt *gogit.Worktree, name string) {
	t.Helper()

	if err := wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
	}); err != nil {
		t.Fatalf("checkout %s: %v", name, err)
	}
}
