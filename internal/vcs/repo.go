package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Repo is a go-git backed implementation of Queries and Publisher over a
// single on-disk checkout.
type Repo struct {
	dir  string
	repo *gogit.Repository
	auth transport.AuthMethod
}

var (
	_ Queries   = (*Repo)(nil)
	_ Publisher = (*Repo)(nil)
)

// Open opens an existing repository checkout.
func Open(dir string) (*Repo, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return &Repo{dir: dir, repo: repo}, nil
}

// Dir returns the worktree root.
func (r *Repo) Dir() string { return r.dir }

// Head resolves the tip of a branch to a commit reference.
func (r *Repo) Head(branch string) (Commit, error) {
	hash, err := r.resolveBranch(branch)
	if err != nil {
		return Commit{}, err
	}
	return r.commitAt(hash)
}

func (r *Repo) resolveBranch(branch string) (plumbing.Hash, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err == nil {
		return ref.Hash(), nil
	}
	// Fall back to the remote-tracking ref when no local branch exists.
	ref, rerr := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if rerr == nil {
		return ref.Hash(), nil
	}
	return plumbing.ZeroHash, fmt.Errorf("resolve branch %s: %w", branch, err)
}

func (r *Repo) commitAt(hash plumbing.Hash) (Commit, error) {
	obj, err := r.repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("commit %s: %w", hash, err)
	}
	return Commit{Hash: obj.Hash.String(), Subject: subjectOf(obj.Message)}, nil
}

func subjectOf(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return strings.TrimSpace(message[:i])
	}
	return strings.TrimSpace(message)
}

// ResolvePrefix finds the first commit on the branch whose hash starts with
// prefix, walking from the tip. First match wins.
func (r *Repo) ResolvePrefix(branch, prefix string) (Commit, bool, error) {
	if !isHex(prefix) || len(prefix) < 4 || len(prefix) > 40 {
		return Commit{}, false, nil
	}

	tip, err := r.resolveBranch(branch)
	if err != nil {
		return Commit{}, false, nil // missing branch degrades to "not found"
	}

	iter, err := r.repo.Log(&gogit.LogOptions{From: tip})
	if err != nil {
		return Commit{}, false, fmt.Errorf("log %s: %w", branch, err)
	}
	defer iter.Close()

	for {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			return Commit{}, false, nil
		}
		if err != nil {
			return Commit{}, false, fmt.Errorf("walk %s: %w", branch, err)
		}
		if strings.HasPrefix(c.Hash.String(), prefix) {
			return Commit{Hash: c.Hash.String(), Subject: subjectOf(c.Message)}, true, nil
		}
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// BranchExists reports whether the branch has a local or remote-tracking ref.
func (r *Repo) BranchExists(branch string) (bool, error) {
	if _, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true); err == nil {
		return true, nil
	}
	if _, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true); err == nil {
		return true, nil
	}
	return false, nil
}

// Log returns up to limit commits reachable from the branch tip, newest first.
func (r *Repo) Log(branch string, limit int) ([]LogEntry, error) {
	tip, err := r.resolveBranch(branch)
	if err != nil {
		return nil, err
	}

	iter, err := r.repo.Log(&gogit.LogOptions{From: tip})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", branch, err)
	}
	defer iter.Close()

	var entries []LogEntry
	for limit <= 0 || len(entries) < limit {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", branch, err)
		}
		entries = append(entries, LogEntry{Hash: c.Hash.String(), Message: c.Message})
	}
	return entries, nil
}

// TrackedPaths lists every file path in the tree of the given revision.
func (r *Repo) TrackedPaths(rev string) ([]string, error) {
	tree, err := r.treeAt(rev)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tree %s: %w", rev, err)
	}
	return paths, nil
}

func (r *Repo) treeAt(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", rev, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", rev, err)
	}
	return tree, nil
}

// DiffNameStatus computes the name-status diff from oldRev to newRev.
// go-git tree diffs do not detect renames, so a rename surfaces as a
// delete of the old path plus an add of the new path.
func (r *Repo) DiffNameStatus(oldRev, newRev string) ([]Change, error) {
	oldTree, err := r.treeAt(oldRev)
	if err != nil {
		return nil, err
	}
	newTree, err := r.treeAt(newRev)
	if err != nil {
		return nil, err
	}

	diff, err := oldTree.Diff(newTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", oldRev, newRev, err)
	}

	changes := make([]Change, 0, len(diff))
	for _, ch := range diff {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("classify change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			changes = append(changes, Change{Path: ch.To.Name, Status: StatusAdded})
		case merkletrie.Delete:
			changes = append(changes, Change{Path: ch.From.Name, Status: StatusDeleted})
		case merkletrie.Modify:
			changes = append(changes, Change{Path: ch.To.Name, Status: StatusModified})
		}
	}
	return changes, nil
}

// CheckoutBranch checks out an existing branch, creating a local branch from
// the remote-tracking ref when necessary.
func (r *Repo) CheckoutBranch(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, err := r.repo.Reference(branchRef, true); err == nil {
		return wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef})
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("branch %s not found locally or on origin: %w", branch, err)
	}
	return wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Hash: remoteRef.Hash(), Create: true})
}

// CreateBranchAt creates and checks out a new branch pointing at the given
// commit. Used for the first-ever publish, where the publish branch is
// created from the current source tree.
func (r *Repo) CreateBranchAt(branch, hash string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	return wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Hash:   plumbing.NewHash(hash),
		Create: true,
	})
}

// IsClean reports whether the worktree matches the branch tip exactly.
func (r *Repo) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return status.IsClean(), nil
}

// CommitAll stages every worktree change and creates one commit.
func (r *Repo) CommitAll(message string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}

	sig := &object.Signature{Name: "pagesync", Email: "pagesync@noreply.local", When: time.Now()}
	// Empty commits are allowed so the first publish can anchor a record
	// even when the branch content is already identical to the source.
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// Push publishes the branch to the named remote. Already-up-to-date is success.
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	refspec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitcfg.RefSpec{refspec},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push %s to %s: %w", branch, remote, err)
	}
	return nil
}
