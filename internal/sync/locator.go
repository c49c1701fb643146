// Package sync implements the synchronization decision engine: locating the
// prior synchronization point, validating it against source history,
// resolving the touched set, and driving the apply and commit stages.
package sync

import (
	"log/slog"

	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/provenance"
	"git.home.luguber.info/inful/pagesync/internal/vcs"
)

// Locator finds the most recent synchronization record reachable from the
// publish branch tip.
type Locator struct {
	repo   vcs.Queries
	branch string
	log    *slog.Logger
}

func NewLocator(repo vcs.Queries, branch string, log *slog.Logger) *Locator {
	if log == nil {
		log = slog.Default()
	}
	return &Locator{repo: repo, branch: branch, log: log}
}

// Locate scans the publish branch log newest-first for a decodable record.
// A missing branch or a history without any decodable record yields
// (nil, false, nil): both degrade to a full rebuild. Only a failing log
// read is an error, because without the log the trust decision itself is
// unreliable.
func (l *Locator) Locate() (*provenance.Record, bool, error) {
	exists, err := l.repo.BranchExists(l.branch)
	if err != nil {
		return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "check publish branch")
	}
	if !exists {
		l.log.Info("publish branch not found", logfields.Branch(l.branch))
		return nil, false, nil
	}

	entries, err := l.repo.Log(l.branch, 0)
	if err != nil {
		return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "read publish branch log")
	}

	for _, entry := range entries {
		rec, ok := provenance.DecodeMessage(entry.Message)
		if !ok {
			continue
		}
		rec.PublishCommit = entry.Hash
		l.log.Debug("found synchronization record",
			logfields.Commit(entry.Hash),
			slog.String("source_commit", rec.SourceCommit))
		return &rec, true, nil
	}

	l.log.Info("no synchronization record in publish history", logfields.Branch(l.branch))
	return nil, false, nil
}
