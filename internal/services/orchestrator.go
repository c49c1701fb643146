// Package services wires configuration, checkouts, and collaborators into
// runnable sync operations.
package services

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/pagesync/internal/classify"
	"git.home.luguber.info/inful/pagesync/internal/config"
	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
	"git.home.luguber.info/inful/pagesync/internal/events"
	"git.home.luguber.info/inful/pagesync/internal/journal"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/metrics"
	"git.home.luguber.info/inful/pagesync/internal/publish"
	"git.home.luguber.info/inful/pagesync/internal/render"
	"git.home.luguber.info/inful/pagesync/internal/sync"
	"git.home.luguber.info/inful/pagesync/internal/vcs"
	"git.home.luguber.info/inful/pagesync/internal/workspace"
)

// Orchestrator prepares the workspace and checkouts for one repository and
// runs the synchronization engine against them.
type Orchestrator struct {
	cfg      *config.Config
	log      *slog.Logger
	recorder metrics.Recorder
	journal  journal.Store    // optional
	events   events.Publisher // optional
}

func New(cfg *config.Config, log *slog.Logger, recorder metrics.Recorder,
	store journal.Store, publisher events.Publisher) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Orchestrator{cfg: cfg, log: log, recorder: recorder, journal: store, events: publisher}
}

// Sync runs one full synchronization: update the source checkout, prepare
// the publish checkout (creating the publish branch on first publish), run
// the engine, then record the run in the journal and emit an event.
func (o *Orchestrator) Sync(ctx context.Context) (sync.Report, error) {
	started := time.Now()

	mgr := o.workspaceManager()
	if err := mgr.Create(); err != nil {
		return sync.Report{}, pserrors.Wrap(err, pserrors.CategoryFileSystem, pserrors.SeverityFatal, "create workspace")
	}
	defer func() {
		if err := mgr.Cleanup(); err != nil {
			o.log.Warn("workspace cleanup failed", logfields.Error(err))
		}
	}()

	client, err := vcs.NewClient(o.cfg.Repository.Auth)
	if err != nil {
		return sync.Report{}, pserrors.Wrap(err, pserrors.CategoryAuth, pserrors.SeverityFatal, "configure repository access")
	}

	url := o.cfg.Repository.URL
	if url == "" {
		url = o.cfg.Repository.Path
	}

	srcRepo, err := client.CloneOrUpdate(ctx, url, mgr.SourceDir(), o.cfg.Repository.Branch)
	if err != nil {
		return sync.Report{}, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "prepare source checkout")
	}

	pubRepo, firstPublish, err := o.preparePublishCheckout(ctx, client, srcRepo, url, mgr)
	if err != nil {
		return sync.Report{}, err
	}

	engine := sync.NewEngine(sync.Options{
		RepoName:      o.cfg.Repository.Name,
		SourceBranch:  o.cfg.Repository.Branch,
		PublishBranch: o.cfg.Publish.Branch,
		AssetsDir:     o.cfg.Render.AssetsDir,
		Production:    o.cfg.Publish.Production,
	},
		srcRepo, pubRepo,
		classify.NewHTTPClassifier(o.cfg.Classifier.URL, o.cfg.Classifier.Timeout.Std()),
		publish.NewApplier(render.NewGoldmark(), o.log),
		publish.NewWriter(pubRepo, o.cfg.Publish.Remote, o.cfg.Publish.Branch, o.cfg.Publish.Production, o.log),
		o.recorder, o.log)

	report, runErr := engine.Run(ctx, sync.Input{
		FirstPublish: firstPublish,
		SourceRoot:   srcRepo.Dir(),
		PublishRoot:  pubRepo.Dir(),
	})

	o.recordRun(ctx, report, started, runErr)
	if runErr == nil && report.Commit.Committed {
		o.emitEvent(ctx, report)
	}
	return report, runErr
}

// preparePublishCheckout returns the publish checkout and whether this run
// is the first-ever publish. On first publish the branch is created from
// the current source tree, so the engine's full rebuild starts from a
// checkout matching the source.
func (o *Orchestrator) preparePublishCheckout(ctx context.Context, client *vcs.Client,
	srcRepo *vcs.Repo, url string, mgr *workspace.Manager) (*vcs.Repo, bool, error) {
	branch := o.cfg.Publish.Branch

	// Dry-run publishes are never pushed, so in a persistent workspace the
	// publish branch may exist only in the previous run's checkout. Reuse
	// it; otherwise a dry-run would anchor a fresh record every run. The
	// reuse goes through the client so the checkout keeps push credentials.
	if existing, err := client.Open(mgr.PublishDir()); err == nil {
		if ok, _ := existing.BranchExists(branch); ok {
			if err := existing.CheckoutBranch(branch); err == nil {
				return existing, false, nil
			}
		}
	}

	exists, err := srcRepo.BranchExists(branch)
	if err != nil {
		return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "check publish branch")
	}

	if exists {
		pubRepo, err := client.CloneOrUpdate(ctx, url, mgr.PublishDir(), branch)
		if err != nil {
			return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "prepare publish checkout")
		}
		return pubRepo, false, nil
	}

	o.log.Info("publish branch does not exist, creating from source tree",
		logfields.Branch(branch))

	pubRepo, err := client.Clone(ctx, url, mgr.PublishDir(), o.cfg.Repository.Branch)
	if err != nil {
		return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "prepare publish checkout")
	}
	head, err := srcRepo.Head(o.cfg.Repository.Branch)
	if err != nil {
		return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "resolve source head")
	}
	if err := pubRepo.CreateBranchAt(branch, head.Hash); err != nil {
		return nil, false, pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "create publish branch")
	}
	return pubRepo, true, nil
}

func (o *Orchestrator) workspaceManager() *workspace.Manager {
	if o.cfg.Workspace.Persistent {
		return workspace.NewPersistentManager(o.cfg.Workspace.Dir, "working")
	}
	return workspace.NewManager(o.cfg.Workspace.Dir)
}

// recordRun appends the run to the journal. Journal failures are logged
// and swallowed; bookkeeping must never fail a publish.
func (o *Orchestrator) recordRun(ctx context.Context, report sync.Report, started time.Time, runErr error) {
	if o.journal == nil {
		return
	}
	entry := journal.Entry{
		RunID:          report.RunID,
		Repository:     o.cfg.Repository.Name,
		Mode:           report.Mode,
		Outcome:        string(report.Outcome),
		SourceCommit:   report.SourceHead.Hash,
		PublishCommit:  report.Commit.Hash,
		FilesRendered:  len(report.Apply.Rendered),
		RenderFailures: len(report.Apply.Failures),
		FilesDeleted:   len(report.Apply.Removed),
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := o.journal.Record(ctx, entry); err != nil {
		o.log.Warn("journal write failed", logfields.RunID(report.RunID), logfields.Error(err))
	}
}

// emitEvent publishes a completion event. Emission failures are logged and
// swallowed for the same reason as journal failures.
func (o *Orchestrator) emitEvent(ctx context.Context, report sync.Report) {
	err := o.events.PublishCompleted(ctx, events.PublishedEvent{
		Repository:     o.cfg.Repository.Name,
		SourceCommit:   report.SourceHead.Hash,
		PublishCommit:  report.Commit.Hash,
		FilesRendered:  len(report.Apply.Rendered),
		RenderFailures: len(report.Apply.Failures),
		FilesDeleted:   len(report.Apply.Removed),
		Pushed:         report.Commit.Pushed,
	})
	if err != nil {
		o.log.Warn("event publish failed", logfields.RunID(report.RunID), logfields.Error(err))
	}
}
