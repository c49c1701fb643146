package sync

import (
	"context"
	"time"

	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/metrics"
)

// Stage names, in execution order.
const (
	StageLocate   = "locate"
	StageValidate = "validate"
	StageResolve  = "resolve"
	StageClassify = "classify"
	StageApply    = "apply"
	StageCommit   = "commit"
)

type stageFn func(ctx context.Context, st *state) error

type stageDef struct {
	name string
	fn   stageFn
}

// runStages executes stages in order, recording timing and stopping on the
// first error. A stage may set st.done to finish the run early; the
// remaining stages are skipped without error.
func (e *Engine) runStages(ctx context.Context, st *state, stages []stageDef) error {
	for _, sd := range stages {
		select {
		case <-ctx.Done():
			e.recorder.IncStageResult(sd.name, metrics.ResultCanceled)
			return pserrors.Wrap(ctx.Err(), pserrors.CategoryRuntime, pserrors.SeverityFatal, "run canceled")
		default:
		}

		t0 := time.Now()
		err := sd.fn(ctx, st)
		dur := time.Since(t0)

		st.report.Durations[sd.name] = dur
		e.recorder.ObserveStageDuration(sd.name, dur)

		if err != nil {
			if ctx.Err() != nil {
				e.recorder.IncStageResult(sd.name, metrics.ResultCanceled)
			} else {
				e.recorder.IncStageResult(sd.name, metrics.ResultFatal)
			}
			e.log.Error("stage failed", logfields.Stage(sd.name), logfields.Error(err))
			return err
		}
		e.recorder.IncStageResult(sd.name, metrics.ResultSuccess)
		e.log.Debug("stage complete",
			logfields.Stage(sd.name),
			logfields.DurationMS(float64(dur.Milliseconds())))

		if st.done {
			return nil
		}
	}
	return nil
}
