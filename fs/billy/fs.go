// Package billy implements the reposync filesystem abstraction on top of
// go-billy. NewBaseOSFS operates on absolute host paths, NewOSFS on a
// directory subtree, and NewInMemoryFS on memory for tests.
//
// Errors carry reposync error codes: a missing path is NOT_FOUND, a denied
// one FORBIDDEN, anything else FILESYSTEM_ERROR. The underlying cause stays
// reachable, so errors.Is(err, fs.ErrNotExist) keeps working.
package billy

import (
	stderrors "errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	parentfs "github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
)

var _ parentfs.Filesystem = (*FS)(nil)

// FS adapts a go-billy filesystem to fs.Filesystem.
type FS struct {
	fs billy.Filesystem
}

// pathError attaches a code derived from err and the failing operation.
func pathError(op, path string, err error) error {
	code := errors.CodeFilesystem
	switch {
	case stderrors.Is(err, iofs.ErrNotExist):
		code = errors.CodeNotFound
	case stderrors.Is(err, iofs.ErrPermission):
		code = errors.CodeForbidden
	}
	return errors.WrapWithContext(err, code, op+" "+path,
		map[string]interface{}{"op": op, "path": path})
}

func (b *FS) wrapFile(f billy.File, op, name string, err error) (parentfs.File, error) {
	if err != nil {
		return nil, pathError(op, name, err)
	}
	return &File{file: f, fs: b}, nil
}

// Create implements Filesystem.Create.
//
//nolint:ireturn // fs.File is the abstraction callers depend on.
func (b *FS) Create(name string) (parentfs.File, error) {
	f, err := b.fs.Create(name)
	return b.wrapFile(f, "create", name, err)
}

// Open implements Filesystem.Open.
//
//nolint:ireturn // fs.File is the abstraction callers depend on.
func (b *FS) Open(name string) (parentfs.File, error) {
	f, err := b.fs.Open(name)
	return b.wrapFile(f, "open", name, err)
}

// OpenFile implements Filesystem.OpenFile.
//
//nolint:ireturn // fs.File is the abstraction callers depend on.
func (b *FS) OpenFile(name string, flag int, perm os.FileMode) (parentfs.File, error) {
	f, err := b.fs.OpenFile(name, flag, perm)
	return b.wrapFile(f, "openfile", name, err)
}

// Exists reports whether path exists. Only a missing path yields false
// without an error.
func (b *FS) Exists(path string) (bool, error) {
	if _, err := b.fs.Lstat(path); err != nil {
		if stderrors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, pathError("stat", path, err)
	}
	return true, nil
}

// Stat implements Filesystem.Stat.
func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return info, nil
}

// MkdirAll implements Filesystem.MkdirAll.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := b.fs.MkdirAll(path, perm); err != nil {
		return pathError("mkdir", path, err)
	}
	return nil
}

// ReadDir implements Filesystem.ReadDir.
func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, err := b.fs.ReadDir(dirname)
	if err != nil {
		return nil, pathError("readdir", dirname, err)
	}
	return entries, nil
}

// ReadFile implements Filesystem.ReadFile.
func (b *FS) ReadFile(path string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, path)
	if err != nil {
		return nil, pathError("read", path, err)
	}
	return data, nil
}

// WriteFile implements Filesystem.WriteFile.
func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if err := util.WriteFile(b.fs, filename, data, perm); err != nil {
		return pathError("write", filename, err)
	}
	return nil
}

// Remove implements Filesystem.Remove.
func (b *FS) Remove(name string) error {
	if err := b.fs.Remove(name); err != nil {
		return pathError("remove", name, err)
	}
	return nil
}

// RemoveAll removes path and its contents. Symlinks are removed, not
// followed, and a missing path is not an error.
func (b *FS) RemoveAll(path string) error {
	if err := util.RemoveAll(b.fs, path); err != nil {
		return pathError("removeall", path, err)
	}
	return nil
}

// TempDir implements Filesystem.TempDir.
func (b *FS) TempDir(dir, prefix string) (string, error) {
	name, err := util.TempDir(b.fs, dir, prefix)
	if err != nil {
		return "", pathError("tempdir", filepath.Join(dir, prefix), err)
	}
	return name, nil
}

// Walk implements Filesystem.Walk. Errors returned by walkFn pass through
// unchanged.
func (b *FS) Walk(root string, walkFn filepath.WalkFunc) error {
	return util.Walk(b.fs, root, walkFn)
}

// Raw returns the go-billy filesystem, for callers such as the go-git
// storage that need it directly.
//
//nolint:ireturn // the go-billy interface is what go-git consumes.
func (b *FS) Raw() billy.Filesystem {
	return b.fs
}

// NewFS wraps an existing go-billy filesystem.
func NewFS(fsys billy.Filesystem) *FS {
	return &FS{fs: fsys}
}

// NewInMemoryFS returns an empty in-memory filesystem.
func NewInMemoryFS() *FS {
	return NewFS(memfs.New())
}

// NewOSFS returns an OS filesystem rooted at path.
func NewOSFS(path string) *FS {
	return NewFS(osfs.New(path))
}
