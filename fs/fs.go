// Package fs defines the filesystem abstraction used by reposync.
//
// The reconciler only needs existence checks and recursive removal, but the
// git facade also stores repositories through this abstraction, so the
// interface covers the usual file operations. Implementations live in
// subpackages; fs/billy provides OS-backed and in-memory variants.
package fs

import (
	"os"
	"path/filepath"
)

// Filesystem is the native filesystem abstraction.
type Filesystem interface {
	// Create creates or truncates the named file.
	Create(name string) (File, error)

	// Exists reports whether path exists. A missing path is not an error;
	// any other stat failure is.
	Exists(path string) (bool, error)

	// MkdirAll creates a directory and all missing parents.
	MkdirAll(path string, perm os.FileMode) error

	// Open opens the named file for reading.
	Open(name string) (File, error)

	// OpenFile is the generalized open call.
	OpenFile(name string, flag int, perm os.FileMode) (File, error)

	// ReadDir lists the entries of a directory.
	ReadDir(dirname string) ([]os.FileInfo, error)

	// ReadFile reads the whole named file.
	ReadFile(path string) ([]byte, error)

	// Remove removes a file or an empty directory.
	Remove(name string) error

	// RemoveAll removes path and everything below it. A missing path is not
	// an error.
	RemoveAll(path string) error

	// Stat returns file information for name.
	Stat(name string) (os.FileInfo, error)

	// TempDir creates a new temporary directory under dir.
	TempDir(dir, prefix string) (string, error)

	// Walk walks the tree rooted at root.
	Walk(root string, walkFn filepath.WalkFunc) error

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(filename string, data []byte, perm os.FileMode) error
}
