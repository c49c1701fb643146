package sync

import (
	"strings"

	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
	"git.home.luguber.info/inful/pagesync/internal/vcs"
)

// TouchedSet is the file-level work for one run. The two lists are disjoint:
// a path changed and later deleted within the span appears only in Deleted.
type TouchedSet struct {
	AddedOrModified []string
	Deleted         []string
}

// IsEmpty reports whether the set names no work at all.
func (t TouchedSet) IsEmpty() bool {
	return len(t.AddedOrModified) == 0 && len(t.Deleted) == 0
}

// TouchesDir reports whether any path in either list lies under dir.
func (t TouchedSet) TouchesDir(dir string) bool {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	for _, list := range [][]string{t.AddedOrModified, t.Deleted} {
		for _, p := range list {
			if strings.HasPrefix(p, prefix) || p == dir {
				return true
			}
		}
	}
	return false
}

// Resolver computes touched sets from source history.
type Resolver struct {
	repo vcs.Queries
}

func NewResolver(repo vcs.Queries) *Resolver {
	return &Resolver{repo: repo}
}

// Between classifies the name-status diff from old to new: A and M paths
// land in AddedOrModified, D paths in Deleted. Renames surface from the
// diff as delete plus add, which is exactly the decomposition wanted here.
func (r *Resolver) Between(oldRev, newRev string) (TouchedSet, error) {
	changes, err := r.repo.DiffNameStatus(oldRev, newRev)
	if err != nil {
		return TouchedSet{}, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "diff source commits")
	}

	var set TouchedSet
	for _, ch := range changes {
		switch ch.Status {
		case vcs.StatusAdded, vcs.StatusModified:
			set.AddedOrModified = append(set.AddedOrModified, ch.Path)
		case vcs.StatusDeleted:
			set.Deleted = append(set.Deleted, ch.Path)
		}
	}
	return set, nil
}

// FullRebuild treats every tracked path at rev as touched and nothing as
// explicitly deleted. Stale artifacts from an unrelated publish state are
// caught by the apply stage's dangling-artifact sweep instead.
func (r *Resolver) FullRebuild(rev string) (TouchedSet, error) {
	paths, err := r.repo.TrackedPaths(rev)
	if err != nil {
		return TouchedSet{}, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "list tracked paths")
	}
	return TouchedSet{AddedOrModified: paths}, nil
}
