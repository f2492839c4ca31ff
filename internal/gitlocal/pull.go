package gitlocal

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Pull fetches branch from remote and moves the current branch onto it.
//
// Only fast-forwards are performed:
//   - unborn HEAD: the branch is created at the fetched commit and checked out
//   - HEAD is an ancestor of the fetched commit: hard reset onto it
//   - HEAD already contains the fetched commit: nothing to do
//   - anything else fails with ErrNonFastForward
//
// Tracked files with local modifications, or untracked files the fetched
// commit would overwrite, fail with ErrDirtyWorktree before the worktree is
// touched.
//
// The fetch is attempted anonymously first; if the remote rejects it for
// authentication reasons and an AuthResolver is configured, it is retried
// with HTTP basic auth.
func (g *GoGit) Pull(ctx context.Context, dir, remoteName, branch string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}

	remote, err := repo.Remote(remoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return fmt.Errorf("%w: %s", ErrRemoteNotFound, remoteName)
		}
		return fmt.Errorf("failed to read remote %s: %w", remoteName, err)
	}

	url := ""
	if urls := remote.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}
	g.log.Info("Pulling", "dir", dir, "remote", remoteName, "url", url, "branch", branch)

	if err := g.fetch(ctx, remote, remoteName, branch, url); err != nil {
		return err
	}

	fetched, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return fmt.Errorf("branch %s not found on remote %s: %w", branch, remoteName, err)
	}

	return g.fastForward(repo, branch, fetched.Hash())
}

func (g *GoGit) fetch(ctx context.Context, remote *git.Remote, remoteName, branch, url string) error {
	refSpec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remoteName, branch))
	opts := &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
	}

	// Try without authentication first (public repositories)
	err := remote.FetchContext(ctx, opts)
	if isAuthenticationError(err) {
		if auth := g.basicAuth(url); auth != nil {
			g.log.Debug("Anonymous fetch rejected, retrying with credentials", "remote", remoteName)
			opts.Auth = auth
			err = remote.FetchContext(ctx, opts)
		}
	}

	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return translateFetchError(remoteName, err)
	}
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		g.log.Debug("Remote already up to date", "remote", remoteName)
	}
	return nil
}

func (g *GoGit) fastForward(repo *git.Repository, branch string, target plumbing.Hash) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get working tree: %w", err)
	}

	targetCommit, err := repo.CommitObject(target)
	if err != nil {
		return fmt.Errorf("failed to read fetched commit %s: %w", target, err)
	}

	head, err := repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Unborn HEAD: adopt the remote history as the local branch.
		if err := checkUntrackedCollisions(wt, targetCommit); err != nil {
			return err
		}
		localBranch := plumbing.NewBranchReferenceName(branch)
		if err := repo.Storer.SetReference(plumbing.NewHashReference(localBranch, target)); err != nil {
			return fmt.Errorf("failed to create branch %s: %w", branch, err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, localBranch)); err != nil {
			return fmt.Errorf("failed to update HEAD: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	default:
		if head.Hash() == target {
			return nil
		}

		headCommit, err := repo.CommitObject(head.Hash())
		if err != nil {
			return fmt.Errorf("failed to read HEAD commit: %w", err)
		}

		ahead, err := targetCommit.IsAncestor(headCommit)
		if err != nil {
			return fmt.Errorf("failed to compare history: %w", err)
		}
		if ahead {
			// Local history already contains the fetched commit
			return nil
		}

		ff, err := headCommit.IsAncestor(targetCommit)
		if err != nil {
			return fmt.Errorf("failed to compare history: %w", err)
		}
		if !ff {
			return fmt.Errorf("%w: local %s and remote %s have diverged", ErrNonFastForward, head.Hash(), target)
		}

		if err := checkTrackedChanges(wt); err != nil {
			return err
		}
		if err := checkUntrackedCollisions(wt, targetCommit); err != nil {
			return err
		}

		if head.Name().IsBranch() {
			if err := repo.Storer.SetReference(plumbing.NewHashReference(head.Name(), target)); err != nil {
				return fmt.Errorf("failed to update %s: %w", head.Name().Short(), err)
			}
		}
	}

	if err := wt.Reset(&git.ResetOptions{Commit: target, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("failed to update working tree: %w", err)
	}

	g.log.Info("Fast-forwarded", "branch", branch, "commit", target.String())
	return nil
}

// checkTrackedChanges fails when any tracked file differs from HEAD.
func checkTrackedChanges(wt *git.Worktree) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get working tree status: %w", err)
	}
	for path, s := range status {
		if s.Worktree == git.Untracked && s.Staging == git.Untracked {
			continue
		}
		if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
			return fmt.Errorf("%w: %s", ErrDirtyWorktree, path)
		}
	}
	return nil
}

// checkUntrackedCollisions fails when an untracked file would be overwritten
// by a file of the same path in target.
func checkUntrackedCollisions(wt *git.Worktree, target *object.Commit) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get working tree status: %w", err)
	}
	tree, err := target.Tree()
	if err != nil {
		return fmt.Errorf("failed to read fetched tree: %w", err)
	}
	for path := range status {
		if _, err := tree.File(path); err == nil {
			return fmt.Errorf("%w: untracked %s would be overwritten", ErrDirtyWorktree, path)
		}
	}
	return nil
}
