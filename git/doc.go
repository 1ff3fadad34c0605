// Package git keeps a working directory checked out on one branch of a remote
// repository using go-git.
//
// The package has two layers. Repo is a thin facade over a go-git repository
// opened through the project's filesystem abstraction; it offers exactly the
// operations reposync needs: Clone (single branch, optionally recursive),
// CheckoutBranch, PullFFOnly, UpdateSubmodules and Head. Gateway adapts those
// operations to absolute destination paths and implements reconcile.VCS.
//
// # Opening and cloning
//
//	fsys := billy.NewBaseOSFS()
//
//	repo, err := git.Clone(ctx, "git@github.com:org/app.git", &git.Options{
//	    FS:      fsys,
//	    Workdir: "/srv/app",
//	    Auth:    git.SSHAgentAuth(nil),
//	}, git.CloneOptions{Branch: "main", Recursive: true})
//
//	repo, err = git.Open(ctx, &git.Options{FS: fsys, Workdir: "/srv/app"})
//	if errors.Is(err, git.ErrNotRepository) {
//	    // not a checkout
//	}
//
// # Updating
//
//	if err := repo.CheckoutBranch(ctx, "main"); err != nil {
//	    return err
//	}
//	if err := repo.PullFFOnly(ctx); err != nil {
//	    return err
//	}
//	head, err := repo.Head(ctx)
//
// # Errors
//
// Failures wrap the package sentinels (ErrAuthRequired, ErrAuthFailed,
// ErrBranchMissing, ErrNotFastForward, ErrNotRepository, ErrNoCommits) so
// callers can use errors.Is. Gateway additionally attaches an
// errors.ErrorCode to failures with a well-known cause.
//
// # Authentication
//
// Only SSH remotes receive credentials, from ssh-agent (SSHAgentAuth) or a
// key file (SSHKeyAuth). Host keys are verified through the supplied HostKeys,
// typically a trust.KnownHosts, which also narrows the key algorithms offered
// to each server to those recorded for it.
package git
