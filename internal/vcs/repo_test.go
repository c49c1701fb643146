package vcs

import (
	"sort"
	"testing"

	"git.home.luguber.info/inful/pagesync/internal/testutil"
)

func TestHeadResolvesTipAndSubject(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "README.md", "# hello\n")
	want := testutil.CommitAll(t, wt, "initial import\n\nlong body here")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	head, err := repo.Head("main")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Hash != want {
		t.Fatalf("head hash %s, want %s", head.Hash, want)
	}
	if head.Subject != "initial import" {
		t.Fatalf("subject %q", head.Subject)
	}
	if head.Short() != want[:7] {
		t.Fatalf("short %q", head.Short())
	}
}

func TestHeadMissingBranch(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "a.txt", "a")
	testutil.CommitAll(t, wt, "a")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.Head("does-not-exist"); err == nil {
		t.Fatal("expected error for missing branch")
	}
}

func TestResolvePrefix(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "a.txt", "a")
	first := testutil.CommitAll(t, wt, "first")
	testutil.WriteFile(t, dir, "b.txt", "b")
	second := testutil.CommitAll(t, wt, "second")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	c, ok, err := repo.ResolvePrefix("main", first[:7])
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if c.Hash != first {
		t.Fatalf("resolved %s, want %s", c.Hash, first)
	}

	if c, ok, _ := repo.ResolvePrefix("main", second[:10]); !ok || c.Hash != second {
		t.Fatalf("tip prefix not resolved: ok=%v", ok)
	}

	// Non-hex, too-short, and unknown prefixes resolve to nothing, never error.
	for _, prefix := range []string{"", "xyz1234", "ab", "ffffffffffff"} {
		if _, ok, err := repo.ResolvePrefix("main", prefix); ok || err != nil {
			t.Fatalf("prefix %q: ok=%v err=%v", prefix, ok, err)
		}
	}
}

func TestBranchExists(t *testing.T) {
	r, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "a.txt", "a")
	testutil.CommitAll(t, wt, "a")
	testutil.CreateBranch(t, r, wt, "pages")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for name, want := range map[string]bool{"main": true, "pages": true, "gone": false} {
		got, err := repo.BranchExists(name)
		if err != nil {
			t.Fatalf("branch exists %s: %v", name, err)
		}
		if got != want {
			t.Fatalf("branch %s: got %v, want %v", name, got, want)
		}
	}
}

func TestLogNewestFirstWithLimit(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "a.txt", "1")
	testutil.CommitAll(t, wt, "one")
	testutil.WriteFile(t, dir, "a.txt", "2")
	testutil.CommitAll(t, wt, "two")
	testutil.WriteFile(t, dir, "a.txt", "3")
	third := testutil.CommitAll(t, wt, "three")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entries, err := repo.Log("main", 0)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(entries) != 3 || entries[0].Hash != third {
		t.Fatalf("unexpected log: %+v", entries)
	}

	limited, err := repo.Log("main", 2)
	if err != nil {
		t.Fatalf("log limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d entries", len(limited))
	}
}

func TestTrackedPaths(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "README.md", "r")
	testutil.WriteFile(t, dir, "docs/guide.md", "g")
	testutil.WriteFile(t, dir, "src/main.go", "m")
	hash := testutil.CommitAll(t, wt, "layout")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	paths, err := repo.TrackedPaths(hash)
	if err != nil {
		t.Fatalf("tracked paths: %v", err)
	}
	sort.Strings(paths)
	want := []string{"README.md", "docs/guide.md", "src/main.go"}
	if len(paths) != len(want) {
		t.Fatalf("got %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got %v, want %v", paths, want)
		}
	}
}

func TestDiffNameStatus(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "keep.md", "same")
	testutil.WriteFile(t, dir, "edit.md", "v1")
	testutil.WriteFile(t, dir, "gone.md", "bye")
	testutil.WriteFile(t, dir, "moved.md", "payload")
	old := testutil.CommitAll(t, wt, "base")

	testutil.WriteFile(t, dir, "edit.md", "v2")
	testutil.WriteFile(t, dir, "new.md", "hi")
	testutil.RemoveFile(t, dir, "gone.md")
	// Rename: old path removed, identical content at new path.
	testutil.RemoveFile(t, dir, "moved.md")
	testutil.WriteFile(t, dir, "renamed.md", "payload")
	next := testutil.CommitAll(t, wt, "changes")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	changes, err := repo.DiffNameStatus(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	got := map[string]ChangeStatus{}
	for _, ch := range changes {
		got[ch.Path] = ch.Status
	}

	if got["edit.md"] != StatusModified {
		t.Fatalf("edit.md status %c", got["edit.md"])
	}
	if got["new.md"] != StatusAdded {
		t.Fatalf("new.md status %c", got["new.md"])
	}
	if got["gone.md"] != StatusDeleted {
		t.Fatalf("gone.md status %c", got["gone.md"])
	}
	// Renames decompose into delete + add.
	if got["moved.md"] != StatusDeleted || got["renamed.md"] != StatusAdded {
		t.Fatalf("rename not decomposed: %v", got)
	}
	if _, ok := got["keep.md"]; ok {
		t.Fatal("unchanged file reported")
	}
}

func TestDiffModifyThenDeleteAcrossSpan(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "doc.md", "v1")
	old := testutil.CommitAll(t, wt, "base")

	testutil.WriteFile(t, dir, "doc.md", "v2")
	testutil.CommitAll(t, wt, "edit")
	testutil.RemoveFile(t, dir, "doc.md")
	testutil.WriteFile(t, dir, ".keep", "")
	next := testutil.CommitAll(t, wt, "delete")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	changes, err := repo.DiffNameStatus(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	// The endpoint diff must report doc.md only as deleted.
	seen := 0
	for _, ch := range changes {
		if ch.Path == "doc.md" {
			seen++
			if ch.Status != StatusDeleted {
				t.Fatalf("doc.md status %c, want D", ch.Status)
			}
		}
	}
	if seen != 1 {
		t.Fatalf("doc.md reported %d times", seen)
	}
}

func TestCommitAllAndIsClean(t *testing.T) {
	_, wt, dir := testutil.InitRepo(t)
	testutil.WriteFile(t, dir, "a.txt", "a")
	testutil.CommitAll(t, wt, "base")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	clean, err := repo.IsClean()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !clean {
		t.Fatal("expected clean worktree after commit")
	}

	testutil.WriteFile(t, dir, "b.txt", "b")
	clean, err = repo.IsClean()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if clean {
		t.Fatal("expected dirty worktree")
	}

	hash, err := repo.CommitAll("publish output")
	if err != nil {
		t.Fatalf("commit all: %v", err)
	}
	head, err := repo.Head("main")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Hash != hash || head.Subject != "publish output" {
		t.Fatalf("head %+v, commit %s", head, hash)
	}
}
