package git

import (
	"context"
	"errors"
	"fmt"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git/internal/fsbridge"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultRemoteName is the only remote reposync manages.
	DefaultRemoteName = "origin"

	// DefaultBranch is checked out when no branch is requested.
	DefaultBranch = "master"
)

// Options configures repository discovery/creation and performance.
type Options struct {
	// FS is the REQUIRED native filesystem root (OS or in-memory).
	// All repository state lives within this filesystem.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to "." (current directory in FS).
	Workdir string

	// StorerCacheSize sets the LRU objects cache entries.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int

	// Auth is an optional provider that resolves per-URL AuthMethod.
	// If nil, transports run unauthenticated.
	Auth AuthProvider

	// ShallowDepth sets the depth for shallow clones. Zero means full history.
	ShallowDepth int
}

// CloneOptions selects what a clone checks out.
type CloneOptions struct {
	// Branch is the remote branch to clone and check out.
	// Defaults to DefaultBranch.
	Branch string

	// Recursive initializes and updates submodules after the checkout.
	Recursive bool
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidOptions, "FS is required")
	}

	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidOptions, "StorerCacheSize cannot be negative")
	}

	if o.ShallowDepth < 0 {
		return WrapError(ErrInvalidOptions, "ShallowDepth cannot be negative")
	}

	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}

	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// storage resolves the worktree and .git storage for the configured workdir.
//
//nolint:ireturn // billy.Filesystem is the type go-git consumes.
func (o *Options) storage() (*filesystem.Storage, gobilly.Filesystem, error) {
	checkout, err := fsbridge.Open(o.FS, o.Workdir, o.StorerCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("filesystem conversion failed: %w", err)
	}
	return checkout.Storage, checkout.Worktree, nil
}

// Init creates a new non-bare git repository at the configured workdir.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	opts.applyDefaults()

	storage, worktreeFS, err := opts.storage()
	if err != nil {
		return nil, err
	}

	repo, err := git.Init(storage, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to initialize repository")
	}

	return newRepo(repo, opts)
}

// Open opens an existing repository at the configured workdir. It returns an
// error wrapping ErrNotRepository when no repository is present.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	opts.applyDefaults()

	storage, worktreeFS, err := opts.storage()
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(storage, worktreeFS)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, WrapErrorf(ErrNotRepository, "%s", opts.Workdir)
		}
		return nil, WrapError(err, "failed to open repository")
	}

	return newRepo(repo, opts)
}

// Clone clones remoteURL into the configured workdir, checking out only the
// requested branch. Submodules are cloned recursively when co.Recursive is
// set.
//
// Context timeout/cancellation is honored during the clone operation.
func Clone(ctx context.Context, remoteURL string, opts *Options, co CloneOptions) (*Repo, error) {
	if remoteURL == "" {
		return nil, WrapError(ErrInvalidOptions, "remote URL cannot be empty")
	}

	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	opts.applyDefaults()

	if co.Branch == "" {
		co.Branch = DefaultBranch
	}

	storage, worktreeFS, err := opts.storage()
	if err != nil {
		return nil, err
	}

	cloneOpts := &git.CloneOptions{
		URL:           remoteURL,
		RemoteName:    DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(co.Branch),
		SingleBranch:  true,
		Depth:         opts.ShallowDepth,
	}
	if co.Recursive {
		cloneOpts.RecurseSubmodules = git.DefaultSubmoduleRecursionDepth
	}

	authMethod, err := resolveAuth(opts.Auth, remoteURL)
	if err != nil {
		return nil, err
	}
	cloneOpts.Auth = authMethod

	repo, err := git.CloneContext(ctx, storage, worktreeFS, cloneOpts)
	if err != nil {
		return nil, classifyTransportError(err, "failed to clone repository")
	}

	return newRepo(repo, opts)
}

func newRepo(repo *git.Repository, opts *Options) (*Repo, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}

	return &Repo{
		repo:     repo,
		worktree: worktree,
		fs:       opts.FS,
		options:  *opts,
	}, nil
}

// resolveAuth asks provider for the transport credentials of remoteURL.
//
//nolint:ireturn // transport.AuthMethod is the type go-git consumes.
func resolveAuth(provider AuthProvider, remoteURL string) (transport.AuthMethod, error) {
	if provider == nil {
		return nil, nil
	}

	method, err := provider.Method(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	return method, nil
}

// AuthProvider resolves authentication methods for git operations.
type AuthProvider interface {
	// Method returns the appropriate transport.AuthMethod for the given remote URL.
	// Returns nil if no authentication is needed/available for this URL.
	Method(remoteURL string) (transport.AuthMethod, error)
}

// Repo represents a git repository with a worktree.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	fs       fs.Filesystem
	options  Options
}
