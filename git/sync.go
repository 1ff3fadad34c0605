package git

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// RemoteURL returns the first URL configured for origin.
func (r *Repo) RemoteURL() (string, error) {
	remote, err := r.repo.Remote(DefaultRemoteName)
	if err != nil {
		return "", WrapErrorf(err, "failed to get remote %q", DefaultRemoteName)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", WrapErrorf(ErrInvalidOptions, "remote %q has no URL", DefaultRemoteName)
	}
	return urls[0], nil
}

// PullFFOnly fast-forwards the current branch to its counterpart on origin.
// The branch is fetched explicitly first, because origin's configured
// refspec only covers the branch the repository was cloned with. An already
// up-to-date branch is not an error. Submodules are left alone; see
// UpdateSubmodules.
//
// Context timeout/cancellation is honored during the pull operation.
func (r *Repo) PullFFOnly(ctx context.Context) error {
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return WrapError(err, "cannot pull")
	}

	if err := r.FetchBranch(ctx, branch); err != nil && !errors.Is(err, ErrAlreadyUpToDate) {
		return err
	}

	remoteURL, err := r.RemoteURL()
	if err != nil {
		return err
	}

	authMethod, err := resolveAuth(r.options.Auth, remoteURL)
	if err != nil {
		return err
	}

	err = r.worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         r.options.ShallowDepth,
		Auth:          authMethod,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return classifyTransportError(err, "failed to pull from remote")
	}
	return nil
}

// UpdateSubmodules initializes and updates every submodule recursively.
// Repositories without submodules are left untouched.
func (r *Repo) UpdateSubmodules(ctx context.Context) error {
	subs, err := r.worktree.Submodules()
	if err != nil {
		return WrapError(err, "failed to read submodules")
	}
	if len(subs) == 0 {
		return nil
	}

	remoteURL, err := r.RemoteURL()
	if err != nil {
		return err
	}

	authMethod, err := resolveAuth(r.options.Auth, remoteURL)
	if err != nil {
		return err
	}

	err = subs.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		Auth:              authMethod,
	})
	return classifyTransportError(err, "failed to update submodules")
}
