package billy

import (
	stderrors "errors"
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"
)

// File adapts a go-billy file to fs.File.
type File struct {
	file billy.File
	fs   *FS
}

// Name returns the path the file was opened with.
func (f *File) Name() string { return f.file.Name() }

// Read implements io.Reader. io.EOF is returned as is.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.file.Read(p)
	if err != nil && !stderrors.Is(err, io.EOF) {
		return n, pathError("read", f.Name(), err)
	}
	return n, err
}

// Write implements io.Writer.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.file.Write(p)
	if err != nil {
		return n, pathError("write", f.Name(), err)
	}
	return n, nil
}

// Stat describes the file by its path.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.fs.Stat(f.Name())
}

// Close releases the file.
func (f *File) Close() error {
	if err := f.file.Close(); err != nil {
		return pathError("close", f.Name(), err)
	}
	return nil
}
