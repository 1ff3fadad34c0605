// Package cli implements the reconciler's VCS operations by running the git
// binary. All parsing of git's output happens here; callers only see
// structured values and errors whose messages carry git's stderr unmodified.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/executor"
	rfs "github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs/billy"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

// Gateway runs git subcommands through an executor.
type Gateway struct {
	git     executor.Executor
	fs      rfs.Filesystem
	logger  *slog.Logger
	timeout time.Duration
}

var _ reconcile.VCS = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithExecutor replaces the git executor.
func WithExecutor(e executor.Executor) Option {
	return func(g *Gateway) {
		if e != nil {
			g.git = e
		}
	}
}

// WithFilesystem replaces the host filesystem used for existence checks.
func WithFilesystem(fsys rfs.Filesystem) Option {
	return func(g *Gateway) {
		if fsys != nil {
			g.fs = fsys
		}
	}
}

// WithLogger configures the gateway with a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCommandTimeout bounds every git invocation.
func WithCommandTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// NewGateway returns a Gateway running git from PATH with terminal prompts
// disabled.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		git:    executor.NewWrappedExecutor("git", executor.WithEnvVar("GIT_TERMINAL_PROMPT", "0")),
		fs:     billy.NewBaseOSFS(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone runs git clone. git removes the directory it created when the clone
// fails.
func (g *Gateway) Clone(ctx context.Context, repository, destination, branch string, recursive bool) error {
	args := []string{"clone"}
	if recursive {
		args = append(args, "--recursive")
	}
	args = append(args, "--branch", branch, "--", repository, destination)

	_, err := g.run(ctx, "", args...)
	return err
}

// CheckoutBranch runs git checkout. git creates a tracking branch from
// origin/<branch> when no local branch exists.
func (g *Gateway) CheckoutBranch(ctx context.Context, destination, branch string) error {
	_, err := g.run(ctx, destination, "checkout", branch)
	return err
}

// Pull runs git pull --ff-only. With recursive set, submodules are then
// initialized and updated when the repository declares any.
func (g *Gateway) Pull(ctx context.Context, destination string, recursive bool) error {
	if _, err := g.run(ctx, destination, "pull", "--ff-only"); err != nil {
		return err
	}
	if !recursive {
		return nil
	}

	hasSubmodules, err := g.fs.Exists(filepath.Join(destination, ".gitmodules"))
	if err != nil {
		return err
	}
	if !hasSubmodules {
		return nil
	}

	_, err = g.run(ctx, destination, "submodule", "update", "--init", "--recursive")
	return err
}

// Inspect reports whether destination is the top level of a work tree with
// at least one commit.
func (g *Gateway) Inspect(ctx context.Context, destination string) (reconcile.Inspection, error) {
	info, err := g.fs.Stat(destination)
	if err != nil {
		return reconcile.Inspection{}, err
	}
	if !info.IsDir() {
		return reconcile.Inspection{}, nil
	}

	out, err := g.run(ctx, destination, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if isNotRepository(err) {
			return reconcile.Inspection{}, nil
		}
		return reconcile.Inspection{}, err
	}
	if out != "true" {
		return reconcile.Inspection{}, nil
	}

	toplevel, err := g.run(ctx, destination, "rev-parse", "--show-toplevel")
	if err != nil {
		return reconcile.Inspection{}, err
	}
	if !samePath(toplevel, destination) {
		g.logger.Debug("destination is inside another work tree", "destination", destination, "toplevel", toplevel)
		return reconcile.Inspection{}, nil
	}

	head, err := g.run(ctx, destination, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err != nil {
		var exitErr *executor.ExitError
		if errors.As(err, &exitErr) {
			// Unborn HEAD.
			return reconcile.Inspection{}, nil
		}
		return reconcile.Inspection{}, err
	}

	return reconcile.Inspection{Valid: true, Revision: reconcile.Revision(head)}, nil
}

// run executes git with args in dir and returns trimmed stdout.
func (g *Gateway) run(ctx context.Context, dir string, args ...string) (string, error) {
	var opts []executor.Option
	if dir != "" {
		opts = append(opts, executor.WithWorkingDir(dir))
	}
	if g.timeout > 0 {
		opts = append(opts, executor.WithTimeout(g.timeout))
	}

	g.logger.Debug("running git", "args", args, "dir", dir)
	result, err := g.git.Execute(ctx, args, opts...)
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

func samePath(a, b string) bool {
	if resolved, err := filepath.EvalSymlinks(a); err == nil {
		a = resolved
	}
	if resolved, err := filepath.EvalSymlinks(b); err == nil {
		b = resolved
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func subcommand(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func isNotRepository(err error) bool {
	var exitErr *executor.ExitError
	return errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, "not a git repository")
}

// stderrCodes maps git diagnostics to error codes. First match wins.
var stderrCodes = []struct {
	fragment string
	code     reposyncerrors.ErrorCode
}{
	{"Permission denied (publickey", reposyncerrors.CodeUnauthorized},
	{"Authentication failed", reposyncerrors.CodeUnauthorized},
	{"Host key verification failed", reposyncerrors.CodeUntrustedHost},
	{"Could not resolve host", reposyncerrors.CodeNetwork},
	{"Connection refused", reposyncerrors.CodeNetwork},
	{"Connection timed out", reposyncerrors.CodeTimeout},
	{"not found in upstream origin", reposyncerrors.CodeNotFound},
	{"did not match any file(s) known to git", reposyncerrors.CodeNotFound},
	{"does not exist", reposyncerrors.CodeNotFound},
	{"Not possible to fast-forward", reposyncerrors.CodeConflict},
	{"would be overwritten", reposyncerrors.CodeConflict},
}

// classify attaches an error code derived from git's stderr. The message is
// the stderr itself, trimmed.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return reposyncerrors.Wrap(err, reposyncerrors.CodeTimeout, "git")
	}

	var exitErr *executor.ExitError
	if !errors.As(err, &exitErr) {
		return reposyncerrors.Wrap(err, reposyncerrors.CodeExecutionFailed, "git")
	}

	code := reposyncerrors.CodeExecutionFailed
	for _, sc := range stderrCodes {
		if strings.Contains(exitErr.Stderr, sc.fragment) {
			code = sc.code
			break
		}
	}
	return reposyncerrors.WrapWithContext(err, code, "git "+subcommand(exitErr.Args), map[string]interface{}{
		"exit_code": exitErr.ExitCode,
		"stderr":    strings.TrimSpace(exitErr.Stderr),
	})
}
