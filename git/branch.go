package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// CurrentBranch returns the name of the currently checked out branch.
// It returns ErrDetachedHead if HEAD does not point at a branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", WrapError(err, "failed to get HEAD reference")
	}

	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", ErrDetachedHead
	}

	return head.Target().Short(), nil
}

// CheckoutBranch switches the worktree to the named branch. A local branch is
// created from refs/remotes/origin/<name> when it does not exist yet, fetching
// that remote branch first if the clone never saw it. The new branch tracks
// its remote counterpart.
//
// Context timeout/cancellation is honored during the operation.
func (r *Repo) CheckoutBranch(ctx context.Context, name string) error {
	if name == "" {
		return WrapError(ErrInvalidOptions, "branch name cannot be empty")
	}

	if current, err := r.CurrentBranch(ctx); err == nil && current == name {
		return nil
	}

	branchRefName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(branchRefName, true); err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return WrapErrorf(err, "failed to look up branch %q", name)
		}
		if err := r.createTrackingBranch(ctx, name); err != nil {
			return err
		}
	}

	if err := r.worktree.Checkout(&git.CheckoutOptions{Branch: branchRefName}); err != nil {
		return WrapErrorf(err, "failed to checkout branch %q", name)
	}

	return nil
}

// createTrackingBranch creates refs/heads/<name> at the remote-tracking ref
// and records origin as its upstream.
func (r *Repo) createTrackingBranch(ctx context.Context, name string) error {
	remoteRefName := plumbing.NewRemoteReferenceName(DefaultRemoteName, name)

	remoteRef, err := r.repo.Reference(remoteRefName, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		if fetchErr := r.FetchBranch(ctx, name); fetchErr != nil && !errors.Is(fetchErr, ErrAlreadyUpToDate) {
			return fetchErr
		}
		remoteRef, err = r.repo.Reference(remoteRefName, true)
	}
	if err != nil {
		return WrapErrorf(ErrBranchMissing, "%s/%s", DefaultRemoteName, name)
	}

	localRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), remoteRef.Hash())
	if err := r.repo.Storer.SetReference(localRef); err != nil {
		return WrapError(err, "failed to create local branch")
	}

	err = r.repo.CreateBranch(&config.Branch{
		Name:   name,
		Remote: DefaultRemoteName,
		Merge:  plumbing.NewBranchReferenceName(name),
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return WrapError(err, "failed to record upstream branch")
	}

	return nil
}

// FetchBranch fetches a single branch from origin into its remote-tracking
// ref. It returns ErrAlreadyUpToDate when nothing changed.
func (r *Repo) FetchBranch(ctx context.Context, name string) error {
	remoteURL, err := r.RemoteURL()
	if err != nil {
		return err
	}

	authMethod, err := resolveAuth(r.options.Auth, remoteURL)
	if err != nil {
		return err
	}

	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s",
		plumbing.NewBranchReferenceName(name),
		plumbing.NewRemoteReferenceName(DefaultRemoteName, name)))

	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: DefaultRemoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Depth:      r.options.ShallowDepth,
		Auth:       authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return ErrAlreadyUpToDate
	}
	return classifyTransportError(err, "failed to fetch branch "+name)
}
