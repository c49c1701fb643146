package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/pagesync/internal/config"
	"git.home.luguber.info/inful/pagesync/internal/logfields"
)

// Client handles clone and update operations against the origin remote.
type Client struct {
	auth transport.AuthMethod
}

// NewClient creates a Client with authentication derived from config.
func NewClient(authCfg *config.AuthConfig) (*Client, error) {
	auth, err := buildAuth(authCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup authentication: %w", err)
	}
	return &Client{auth: auth}, nil
}

// Open opens an existing checkout with the client's credentials attached.
// Pushes from a reused checkout must authenticate the same way clones do;
// the bare package-level Open carries no credentials.
func (c *Client) Open(dir string) (*Repo, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return &Repo{dir: dir, repo: repo, auth: c.auth}, nil
}

// Clone clones the repository into dir, checked out at branch. Any existing
// directory content is removed first. All branches are fetched so both the
// source and publish branches are resolvable from one checkout.
func (c *Client) Clone(ctx context.Context, url, dir, branch string) (*Repo, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to remove existing directory: %w", err)
	}

	slog.Debug("Cloning repository", logfields.URL(url), logfields.Branch(branch), logfields.Path(dir))

	cloneOptions := &gogit.CloneOptions{
		URL:  url,
		Auth: c.auth,
	}
	if branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repository, err := gogit.PlainCloneContext(ctx, dir, false, cloneOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository %s: %w", url, err)
	}

	if ref, err := repository.Head(); err == nil {
		slog.Info("Repository cloned",
			logfields.URL(url),
			logfields.Commit(ref.Hash().String()[:8]),
			logfields.Path(dir))
	}

	return &Repo{dir: dir, repo: repository, auth: c.auth}, nil
}

// CloneOrUpdate reuses an existing checkout when present, fetching and hard
// resetting it to the remote branch tip; otherwise it clones fresh.
func (c *Client) CloneOrUpdate(ctx context.Context, url, dir, branch string) (*Repo, error) {
	if _, err := os.Stat(dir); err != nil {
		return c.Clone(ctx, url, dir, branch)
	}

	repository, err := gogit.PlainOpen(dir)
	if err != nil {
		slog.Debug("Existing directory is not a repository, recloning", logfields.Path(dir))
		return c.Clone(ctx, url, dir, branch)
	}

	r := &Repo{dir: dir, repo: repository, auth: c.auth}
	if err := r.fetchOrigin(ctx); err != nil {
		return nil, err
	}

	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return nil, fmt.Errorf("branch %s not found on origin: %w", branch, err)
	}

	wt, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, err := repository.Reference(branchRef, true); err != nil {
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Hash: remoteRef.Hash(), Create: true}); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", branch, err)
		}
	} else {
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", branch, err)
		}
		if err := wt.Reset(&gogit.ResetOptions{Commit: remoteRef.Hash(), Mode: gogit.HardReset}); err != nil {
			return nil, fmt.Errorf("reset %s to origin: %w", branch, err)
		}
	}

	slog.Info("Repository updated", logfields.Branch(branch), logfields.Commit(remoteRef.Hash().String()[:8]))
	return r, nil
}

// fetchOrigin fetches all branch heads from origin.
func (r *Repo) fetchOrigin(ctx context.Context) error {
	err := r.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []gitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Tags:       gogit.NoTags,
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}
