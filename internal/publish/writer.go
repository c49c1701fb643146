package publish

import (
	"context"
	"log/slog"

	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/provenance"
	"git.home.luguber.info/inful/pagesync/internal/vcs"
)

// CommitResult reports what the provenance writer did.
type CommitResult struct {
	Committed bool
	Hash      string
	Pushed    bool
}

// Writer turns an applied publish worktree into at most one commit carrying
// the synchronization record, and pushes it in production mode.
type Writer struct {
	repo       vcs.Publisher
	remote     string
	branch     string
	production bool
	log        *slog.Logger
}

func NewWriter(repo vcs.Publisher, remote, branch string, production bool, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{repo: repo, remote: remote, branch: branch, production: production, log: log}
}

// Write commits the worktree with a record for source. A clean worktree
// skips the commit entirely unless force is set; force exists for the first
// publish, which must anchor a record even when the branch content already
// matches the source tree.
func (w *Writer) Write(ctx context.Context, source vcs.Commit, force bool) (CommitResult, error) {
	clean, err := w.repo.IsClean()
	if err != nil {
		return CommitResult{}, pserrors.Wrap(err, pserrors.CategoryPublish, pserrors.SeverityError, "inspect publish worktree")
	}
	if clean && !force {
		w.log.Info("publish tree unchanged, skipping commit", logfields.Branch(w.branch))
		return CommitResult{}, nil
	}

	message := provenance.EncodeMessage(source.Hash, source.Subject)
	hash, err := w.repo.CommitAll(message)
	if err != nil {
		return CommitResult{}, pserrors.Wrap(err, pserrors.CategoryPublish, pserrors.SeverityError, "commit publish changes")
	}
	result := CommitResult{Committed: true, Hash: hash}
	w.log.Info("created publish commit",
		logfields.Branch(w.branch), logfields.Commit(hash))

	if !w.production {
		w.log.Info("non-production mode, not pushing", logfields.Branch(w.branch))
		return result, nil
	}

	if err := w.repo.Push(ctx, w.remote, w.branch); err != nil {
		return result, pserrors.WrapRetryable(err, pserrors.CategoryPublish, pserrors.SeverityError, "push publish branch")
	}
	result.Pushed = true
	return result, nil
}
