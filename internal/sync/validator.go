package sync

import (
	"log/slog"

	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/provenance"
	"git.home.luguber.info/inful/pagesync/internal/vcs"
)

// TrustState says whether a located synchronization record is safe to use
// for incremental computation.
type TrustState string

const (
	Trusted   TrustState = "trusted"
	Untrusted TrustState = "untrusted"
)

// Validation is the outcome of checking one record against source history.
type Validation struct {
	State TrustState
	// ResolvedSource is the full commit the record's hash resolved to.
	// Only meaningful when State is Trusted.
	ResolvedSource vcs.Commit
	// AlreadySynced is set when the resolved source commit equals the
	// current source head: the run must terminate as a no-op.
	AlreadySynced bool
}

// Validator confirms a record's source hash resolves in source history.
type Validator struct {
	repo   vcs.Queries
	branch string
	log    *slog.Logger
}

func NewValidator(repo vcs.Queries, branch string, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{repo: repo, branch: branch, log: log}
}

// Validate resolves the record's source hash by prefix, first match wins.
// Every failure mode degrades to Untrusted; shallow or rewritten history
// must trigger a full rebuild, never fail the run.
func (v *Validator) Validate(rec *provenance.Record, head vcs.Commit) Validation {
	if rec == nil || rec.SourceCommit == "" {
		return Validation{State: Untrusted}
	}

	resolved, ok, err := v.repo.ResolvePrefix(v.branch, rec.SourceCommit)
	if err != nil {
		v.log.Warn("resolving recorded source commit failed, falling back to full rebuild",
			logfields.Commit(rec.SourceCommit), logfields.Error(err))
		return Validation{State: Untrusted}
	}
	if !ok {
		v.log.Info("recorded source commit not in history, falling back to full rebuild",
			logfields.Commit(rec.SourceCommit))
		return Validation{State: Untrusted}
	}

	return Validation{
		State:          Trusted,
		ResolvedSource: resolved,
		AlreadySynced:  resolved.Hash == head.Hash,
	}
}
