// Package fsbridge connects the reposync filesystem abstraction to the
// go-billy filesystems and storage go-git consumes.
package fsbridge

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	fsb "github.com/input-output-hk/catalyst-forge-libs/reposync/fs/billy"
)

// MinCacheSize is used when a non-positive cache size is requested.
const MinCacheSize = 100

// Checkout is the pair of filesystems go-git needs for a non-bare
// repository: the work tree and the object storage under its .git
// directory.
type Checkout struct {
	Worktree billy.Filesystem
	Storage  *filesystem.Storage
}

// Open scopes fsys to workdir and prepares .git storage with an LRU object
// cache of cacheSize entries. Nothing is created on disk.
func Open(fsys fs.Filesystem, workdir string, cacheSize int) (*Checkout, error) {
	raw, err := unwrap(fsys)
	if err != nil {
		return nil, err
	}

	worktree, err := raw.Chroot(workdir)
	if err != nil {
		return nil, fmt.Errorf("scoping filesystem to %q: %w", workdir, err)
	}

	dotGit, err := worktree.Chroot(git.GitDirName)
	if err != nil {
		return nil, fmt.Errorf("scoping filesystem to %s: %w", git.GitDirName, err)
	}

	if cacheSize <= 0 {
		cacheSize = MinCacheSize
	}
	return &Checkout{
		Worktree: worktree,
		Storage:  filesystem.NewStorage(dotGit, cache.NewObjectLRU(cache.FileSize(cacheSize))),
	}, nil
}

// unwrap returns the go-billy filesystem behind fsys. Only filesystems built
// by fs/billy can be unwrapped.
//
//nolint:ireturn // go-git consumes billy.Filesystem
func unwrap(fsys fs.Filesystem) (billy.Filesystem, error) {
	b, ok := fsys.(*fsb.FS)
	if !ok {
		return nil, fmt.Errorf("filesystem must be a billy.FS from fs/billy package, got %T", fsys)
	}
	return b.Raw(), nil
}
