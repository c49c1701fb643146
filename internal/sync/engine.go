package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pagesync/internal/classify"
	"git.home.luguber.info/inful/pagesync/internal/config"
	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/metrics"
	"git.home.luguber.info/inful/pagesync/internal/provenance"
	"git.home.luguber.info/inful/pagesync/internal/publish"
	"git.home.luguber.info/inful/pagesync/internal/vcs"
)

// Outcome is the terminal state of one run.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeNoop      Outcome = "no-op"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Applier is the publish-worktree mutation capability consumed by the
// engine. Satisfied by publish.Applier.
type Applier interface {
	Apply(ctx context.Context, in publish.Input) (publish.ApplyReport, error)
}

// CommitWriter turns an applied worktree into a publish commit. Satisfied
// by publish.Writer.
type CommitWriter interface {
	Write(ctx context.Context, source vcs.Commit, force bool) (publish.CommitResult, error)
}

// Options configures one engine instance for one repository.
type Options struct {
	RepoName      string
	SourceBranch  string
	PublishBranch string
	ReservedDir   string // defaults to config.ReservedDir
	AssetsDir     string
	Production    bool
}

// Input names the per-run facts the orchestrator established before the
// engine starts.
type Input struct {
	// FirstPublish means the publish branch did not exist anywhere and was
	// freshly created from the current source tree.
	FirstPublish bool
	SourceRoot   string
	PublishRoot  string
}

// Report is the observable result of one run.
type Report struct {
	RunID       string
	Mode        string
	Outcome     Outcome
	SourceHead  vcs.Commit
	PriorRecord *provenance.Record
	Trust       TrustState
	FullRebuild bool
	Touched     TouchedSet
	Apply       publish.ApplyReport
	Commit      publish.CommitResult
	StartedAt   time.Time
	FinishedAt  time.Time
	Durations   map[string]time.Duration
}

// Engine runs the synchronization decision pipeline. All collaborators are
// injected; the engine itself never opens repositories or sockets.
type Engine struct {
	opts       Options
	source     vcs.Queries
	publishQ   vcs.Queries
	classifier classify.Classifier
	applier    Applier
	writer     CommitWriter
	recorder   metrics.Recorder
	log        *slog.Logger
}

func NewEngine(opts Options, source, publishQ vcs.Queries, classifier classify.Classifier,
	applier Applier, writer CommitWriter, recorder metrics.Recorder, log *slog.Logger) *Engine {
	if opts.ReservedDir == "" {
		opts.ReservedDir = config.ReservedDir
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		opts:       opts,
		source:     source,
		publishQ:   publishQ,
		classifier: classifier,
		applier:    applier,
		writer:     writer,
		recorder:   recorder,
		log:        log,
	}
}

// state carries intermediates between stages of one run.
type state struct {
	in      Input
	report  *Report
	head    vcs.Commit
	record  *provenance.Record
	found   bool
	valid   Validation
	trigger Triggers
	touched TouchedSet
	sources []string // classifier-approved subset of AddedOrModified
	done    bool     // set by a stage to finish the run early
}

// Run executes one synchronization run. The trust decision is fixed before
// any diff is computed or file rendered and is never revisited mid-run.
func (e *Engine) Run(ctx context.Context, in Input) (Report, error) {
	mode := "dry-run"
	if e.opts.Production {
		mode = "production"
	}
	report := &Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		Outcome:   OutcomeFailed,
		StartedAt: time.Now(),
		Durations: make(map[string]time.Duration),
	}
	st := &state{in: in, report: report}

	log := e.log.With(logfields.RunID(report.RunID), logfields.Repository(e.opts.RepoName))
	log.Info("starting sync run", logfields.Mode(mode))

	err := e.runStages(ctx, st, []stageDef{
		{StageLocate, e.stageLocate},
		{StageValidate, e.stageValidate},
		{StageResolve, e.stageResolve},
		{StageClassify, e.stageClassify},
		{StageApply, e.stageApply},
		{StageCommit, e.stageCommit},
	})

	report.FinishedAt = time.Now()
	e.recorder.ObserveRunDuration(report.FinishedAt.Sub(report.StartedAt))

	switch {
	case err != nil && ctx.Err() != nil:
		report.Outcome = OutcomeCanceled
	case err != nil:
		report.Outcome = OutcomeFailed
	case report.Commit.Committed:
		report.Outcome = OutcomePublished
	default:
		report.Outcome = OutcomeNoop
	}
	e.recorder.IncRunOutcome(string(report.Outcome))

	if err != nil {
		log.Error("sync run failed", logfields.Error(err))
		return *report, err
	}
	log.Info("sync run finished",
		slog.String("outcome", string(report.Outcome)),
		logfields.Commit(report.SourceHead.Hash),
		logfields.DurationMS(float64(report.FinishedAt.Sub(report.StartedAt).Milliseconds())))
	return *report, nil
}

func (e *Engine) stageLocate(_ context.Context, st *state) error {
	head, err := e.source.Head(e.opts.SourceBranch)
	if err != nil {
		return pserrors.Wrap(err, pserrors.CategoryGit, pserrors.SeverityFatal, "resolve source head")
	}
	st.head = head
	st.report.SourceHead = head

	if st.in.FirstPublish {
		return nil
	}

	rec, found, err := NewLocator(e.publishQ, e.opts.PublishBranch, e.log).Locate()
	if err != nil {
		return err
	}
	st.record, st.found = rec, found
	st.report.PriorRecord = rec
	return nil
}

func (e *Engine) stageValidate(_ context.Context, st *state) error {
	st.valid = NewValidator(e.source, e.opts.SourceBranch, e.log).Validate(st.record, st.head)
	st.report.Trust = st.valid.State

	if !st.in.FirstPublish && st.valid.State == Trusted && st.valid.AlreadySynced {
		e.log.Info("already synchronized, nothing to do",
			logfields.Commit(st.head.Hash))
		st.done = true
	}
	return nil
}

func (e *Engine) stageResolve(_ context.Context, st *state) error {
	st.trigger = Triggers{
		BranchMissing: st.in.FirstPublish,
		Untrusted:     st.valid.State != Trusted,
	}

	resolver := NewResolver(e.source)

	if !st.trigger.FullRebuild() {
		set, err := resolver.Between(st.valid.ResolvedSource.Hash, st.head.Hash)
		if err != nil {
			return err
		}
		if set.TouchesDir(e.opts.ReservedDir) {
			st.trigger.ConfigPathTouched = true
		} else {
			st.touched = set
		}
	}

	if st.trigger.FullRebuild() {
		e.log.Info("forcing full rebuild", slog.String("reason", st.trigger.Reason()))
		set, err := resolver.FullRebuild(st.head.Hash)
		if err != nil {
			return err
		}
		st.touched = set
	}

	st.report.FullRebuild = st.trigger.FullRebuild()
	st.report.Touched = st.touched
	return nil
}

func (e *Engine) stageClassify(ctx context.Context, st *state) error {
	result, err := e.classifier.Classify(ctx, e.opts.RepoName, st.touched.AddedOrModified)
	if err != nil {
		// Fatal before any publish mutation: without the verdict the
		// engine cannot decide what belongs on the publish branch.
		return err
	}
	st.sources = result.SourceFiles
	return nil
}

func (e *Engine) stageApply(ctx context.Context, st *state) error {
	if err := publish.RefreshAssets(st.in.PublishRoot, e.opts.AssetsDir); err != nil {
		return pserrors.Wrap(err, pserrors.CategoryPublish, pserrors.SeverityFatal, "refresh static assets")
	}

	report, err := e.applier.Apply(ctx, publish.Input{
		RepoName:        e.opts.RepoName,
		SourceRoot:      st.in.SourceRoot,
		PublishRoot:     st.in.PublishRoot,
		AddedOrModified: st.sources,
		Deleted:         st.touched.Deleted,
		FullRebuild:     st.trigger.FullRebuild(),
	})
	if err != nil {
		return err
	}
	st.report.Apply = report

	e.recorder.AddFilesRendered(len(report.Rendered))
	e.recorder.AddRenderFailures(len(report.Failures))
	e.recorder.AddArtifactsDeleted(len(report.Removed))
	return nil
}

func (e *Engine) stageCommit(ctx context.Context, st *state) error {
	result, err := e.writer.Write(ctx, st.head, st.in.FirstPublish)
	if err != nil {
		return err
	}
	st.report.Commit = result
	return nil
}
