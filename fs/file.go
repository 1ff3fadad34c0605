package fs

import "io/fs"

// File is an open file handle. Implementations behave like *os.File for the
// subset of methods listed here.
type File interface {
	Close() error
	Name() string
	Read(p []byte) (n int, err error)
	Stat() (fs.FileInfo, error)
	Write(p []byte) (n int, err error)
}
