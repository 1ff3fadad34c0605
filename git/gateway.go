package git

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-git/v5/plumbing/transport"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	rfs "github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs/billy"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

// Gateway runs reconciler VCS operations with go-git against absolute
// destination paths.
type Gateway struct {
	fs           rfs.Filesystem
	auth         AuthProvider
	logger       *slog.Logger
	shallowDepth int
}

var _ reconcile.VCS = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithAuth sets the credentials provider for remote operations.
func WithAuth(provider AuthProvider) GatewayOption {
	return func(g *Gateway) {
		g.auth = provider
	}
}

// WithFilesystem replaces the default host filesystem. The filesystem must
// come from the fs/billy package.
func WithFilesystem(fsys rfs.Filesystem) GatewayOption {
	return func(g *Gateway) {
		if fsys != nil {
			g.fs = fsys
		}
	}
}

// WithLogger configures the gateway with a custom logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithShallowDepth limits clone and pull history. Zero means full history.
func WithShallowDepth(depth int) GatewayOption {
	return func(g *Gateway) {
		g.shallowDepth = depth
	}
}

// NewGateway returns a Gateway over the host filesystem.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		fs:     billy.NewBaseOSFS(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) options(destination string) *Options {
	return &Options{
		FS:           g.fs,
		Workdir:      destination,
		Auth:         g.auth,
		ShallowDepth: g.shallowDepth,
	}
}

// Clone clones branch of repository into destination. When the clone fails
// and destination did not exist before, everything written is removed so the
// destination is left absent.
func (g *Gateway) Clone(ctx context.Context, repository, destination, branch string, recursive bool) error {
	existed, err := g.fs.Exists(destination)
	if err != nil {
		return err
	}

	_, err = Clone(ctx, repository, g.options(destination), CloneOptions{
		Branch:    branch,
		Recursive: recursive,
	})
	if err == nil {
		return nil
	}

	if !existed {
		if rmErr := g.fs.RemoveAll(destination); rmErr != nil {
			g.logger.Warn("failed to clean up partial clone",
				"destination", destination,
				"error", rmErr,
			)
		}
	}
	return withCode(err)
}

// CheckoutBranch switches the checkout at destination to branch. It does
// nothing when branch is already checked out.
func (g *Gateway) CheckoutBranch(ctx context.Context, destination, branch string) error {
	repo, err := Open(ctx, g.options(destination))
	if err != nil {
		return withCode(err)
	}

	if current, err := repo.CurrentBranch(ctx); err == nil && current == branch {
		g.logger.Debug("branch already checked out", "destination", destination, "branch", branch)
		return nil
	}
	return withCode(repo.CheckoutBranch(ctx, branch))
}

// Pull fast-forwards the checkout at destination. Submodules are initialized
// and updated only when recursive is set.
func (g *Gateway) Pull(ctx context.Context, destination string, recursive bool) error {
	repo, err := Open(ctx, g.options(destination))
	if err != nil {
		return withCode(err)
	}
	if err := repo.PullFFOnly(ctx); err != nil {
		return withCode(err)
	}
	if !recursive {
		return nil
	}
	return withCode(repo.UpdateSubmodules(ctx))
}

// Inspect reports whether destination holds a checkout with at least one
// commit. A .git file (linked worktree or submodule gitfile) is not treated
// as a checkout.
func (g *Gateway) Inspect(ctx context.Context, destination string) (reconcile.Inspection, error) {
	info, err := g.fs.Stat(filepath.Join(destination, ".git"))
	switch {
	case err == nil && !info.IsDir():
		return reconcile.Inspection{}, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return reconcile.Inspection{}, nil
	case err != nil:
		return reconcile.Inspection{}, err
	}

	repo, err := Open(ctx, g.options(destination))
	if errors.Is(err, ErrNotRepository) {
		return reconcile.Inspection{}, nil
	}
	if err != nil {
		return reconcile.Inspection{}, withCode(err)
	}

	head, err := repo.Head(ctx)
	if errors.Is(err, ErrNoCommits) {
		return reconcile.Inspection{}, nil
	}
	if err != nil {
		return reconcile.Inspection{}, withCode(err)
	}

	return reconcile.Inspection{Valid: true, Revision: reconcile.Revision(head)}, nil
}

// withCode attaches a structured error code to the failures callers can act
// on. Other errors are returned unchanged.
func withCode(err error) error {
	var code reposyncerrors.ErrorCode
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		code = reposyncerrors.CodeTimeout
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrAuthFailed):
		code = reposyncerrors.CodeUnauthorized
	case errors.Is(err, ErrBranchMissing), errors.Is(err, transport.ErrRepositoryNotFound):
		code = reposyncerrors.CodeNotFound
	case errors.Is(err, ErrNotFastForward):
		code = reposyncerrors.CodeConflict
	case errors.Is(err, ErrInvalidOptions):
		code = reposyncerrors.CodeInvalidInput
	default:
		return err
	}
	return reposyncerrors.Wrap(err, code, "git")
}
