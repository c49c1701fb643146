// Package publish mutates the publish worktree: rendering artifacts for
// touched sources, removing artifacts for deleted ones, refreshing static
// assets, and writing the provenance commit.
package publish

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagesync/internal/config"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
	"git.home.luguber.info/inful/pagesync/internal/render"
)

// FileFailure records one source file that could not be rendered. Per-file
// failures do not abort the run; the remaining files are still published.
type FileFailure struct {
	Path string
	Err  error
}

// ApplyReport describes what one apply pass did to the publish worktree.
// A non-nil error from Apply means the run failed before or during the
// mutation; a populated Failures list with a nil error means a partial but
// valid publish.
type ApplyReport struct {
	Rendered []string      // artifact paths written
	Removed  []string      // artifact paths deleted
	Failures []FileFailure // sources skipped because rendering failed
}

// Input names the work for one apply pass. Paths are repository-relative.
type Input struct {
	RepoName        string
	SourceRoot      string
	PublishRoot     string
	AddedOrModified []string
	Deleted         []string
	FullRebuild     bool
}

// Applier runs the apply stage against a publish worktree.
type Applier struct {
	renderer render.Renderer
	log      *slog.Logger
}

func NewApplier(renderer render.Renderer, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{renderer: renderer, log: log}
}

// Apply renders every touched source best-effort, removes artifacts for
// deleted sources, and on a full rebuild sweeps artifacts whose source is
// no longer present. Only context cancellation aborts the pass.
func (a *Applier) Apply(ctx context.Context, in Input) (ApplyReport, error) {
	var report ApplyReport

	for _, src := range in.Deleted {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		artifact := render.ArtifactPath(src)
		removed, err := a.removeArtifact(in.PublishRoot, artifact)
		if err != nil {
			report.Failures = append(report.Failures, FileFailure{Path: src, Err: err})
			continue
		}
		if removed {
			report.Removed = append(report.Removed, artifact)
		}
	}

	for _, src := range in.AddedOrModified {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		artifact, err := a.renderer.Render(ctx, render.Request{
			SourcePath: src,
			SourceRoot: in.SourceRoot,
			RepoName:   in.RepoName,
			OutputRoot: in.PublishRoot,
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			a.log.Warn("render failed, skipping file",
				logfields.Path(src), logfields.Error(err))
			report.Failures = append(report.Failures, FileFailure{Path: src, Err: err})
			continue
		}
		report.Rendered = append(report.Rendered, artifact)
	}

	if in.FullRebuild {
		swept, err := a.sweepDangling(in.PublishRoot, report.Rendered)
		if err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, swept...)
	}

	return report, nil
}

func (a *Applier) removeArtifact(root, artifact string) (bool, error) {
	full := filepath.Join(root, filepath.FromSlash(artifact))
	err := os.Remove(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	a.log.Debug("removed artifact", logfields.Path(artifact))
	return true, nil
}

// sweepDangling removes html artifacts that this full rebuild did not
// produce. Without it a full rebuild could leave pages for sources deleted
// while no record was trusted.
func (a *Applier) sweepDangling(root string, rendered []string) ([]string, error) {
	keep := make(map[string]struct{}, len(rendered))
	for _, p := range rendered {
		keep[p] = struct{}{}
	}

	var removed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == ".git" || rel == "assets" || rel == strings.TrimSuffix(config.ReservedDir, "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(rel, ".html") {
			return nil
		}
		if _, ok := keep[rel]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed = append(removed, rel)
		a.log.Debug("swept dangling artifact", logfields.Path(rel))
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}
