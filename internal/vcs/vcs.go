// Package vcs wraps go-git behind the narrow capability sets the sync engine
// consumes: read-only history queries for the decision stages, and worktree
// mutation for the publish stages.
package vcs

import (
	"context"
)

// Commit is an immutable reference to a single commit.
type Commit struct {
	Hash    string // full hex hash
	Subject string // first line of the commit message
}

// Short returns the 7-character display form of the hash.
func (c Commit) Short() string {
	if len(c.Hash) < 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// IsZero reports whether the commit reference is empty.
func (c Commit) IsZero() bool { return c.Hash == "" }

// ChangeStatus classifies one path in a name-status diff.
type ChangeStatus byte

const (
	StatusAdded    ChangeStatus = 'A'
	StatusModified ChangeStatus = 'M'
	StatusDeleted  ChangeStatus = 'D'
)

// Change is one entry of a name-status diff between two commits.
type Change struct {
	Path   string
	Status ChangeStatus
}

// LogEntry pairs a commit hash with its full message, as produced by Log.
type LogEntry struct {
	Hash    string
	Message string
}

// Queries is the read-only capability set consumed by the decision engine.
// Every method is a pure function of repository state.
type Queries interface {
	// Head resolves the tip of a branch to a commit reference.
	Head(branch string) (Commit, error)

	// ResolvePrefix finds the first commit on the given branch whose hash
	// starts with prefix. A non-hex or empty prefix resolves to nothing.
	ResolvePrefix(branch, prefix string) (Commit, bool, error)

	// BranchExists reports whether the branch has a local or remote-tracking ref.
	BranchExists(branch string) (bool, error)

	// Log returns up to limit commits reachable from the branch tip, newest
	// first. limit <= 0 means unlimited.
	Log(branch string, limit int) ([]LogEntry, error)

	// TrackedPaths lists every file path recorded in the tree of the given
	// revision, relative to the repository root.
	TrackedPaths(rev string) ([]string, error)

	// DiffNameStatus computes the name-status diff from oldRev to newRev.
	// Renames are reported decomposed as a delete plus an add.
	DiffNameStatus(oldRev, newRev string) ([]Change, error)
}

// Publisher is the mutation capability set used only by the apply and
// provenance stages. All mutation is confined to the publish worktree.
type Publisher interface {
	// Dir returns the worktree root the apply stage writes into.
	Dir() string

	// IsClean reports whether the worktree matches the branch tip exactly.
	IsClean() (bool, error)

	// CommitAll stages every worktree change and creates one commit with the
	// given message, returning the new commit hash.
	CommitAll(message string) (string, error)

	// Push publishes the branch to the named remote.
	Push(ctx context.Context, remote, branch string) error
}
