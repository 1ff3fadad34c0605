// Package fstest provides a conformance test suite for fs.Filesystem
// implementations.
//
// The suite checks the contracts reposync relies on: Exists reports a missing
// path as false without error, RemoveAll removes whole trees and tolerates a
// missing path, and Stat reports missing paths as fs.ErrNotExist.
//
// Example usage:
//
//	func TestMyProvider(t *testing.T) {
//	    root := t.TempDir()
//	    fstest.TestSuite(t, func() fs.Filesystem { return myprovider.New() }, root)
//	}
package fstest

import (
	"bytes"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
)

// TestSuite runs every conformance test. newFS must return a filesystem in
// which root is writable; each test works in its own subdirectory of root.
func TestSuite(t *testing.T, newFS func() fs.Filesystem, root string) {
	tests := []struct {
		name string
		fn   func(*testing.T, fs.Filesystem, string)
	}{
		{"MkdirAllStat", testMkdirAllStat},
		{"CreateWriteReadRemove", testCreateWriteReadRemove},
		{"OpenAndOpenFile", testOpenAndOpenFile},
		{"ReadDir", testReadDir},
		{"TempDirAndWalk", testTempDirAndWalk},
		{"ExistsAndRemoveAll", testExistsAndRemoveAll},
		{"StatMissing", testStatMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(root, tt.name)
			filesystem := newFS()
			if err := filesystem.MkdirAll(dir, 0o755); err != nil {
				t.Fatalf("MkdirAll(%q): got error %v, want nil", dir, err)
			}
			tt.fn(t, filesystem, dir)
		})
	}
}

func testMkdirAllStat(t *testing.T, filesystem fs.Filesystem, root string) {
	path := filepath.Join(root, "a", "b", "c")
	if err := filesystem.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): got error %v, want nil", path, err)
	}

	info, err := filesystem.Stat(filepath.Join(root, "a", "b"))
	if err != nil {
		t.Fatalf("Stat(): got error %v, want nil", err)
	}
	if !info.IsDir() {
		t.Errorf("Stat(%q).IsDir(): got false, want true", info.Name())
	}

	if err := filesystem.MkdirAll(path, 0o755); err != nil {
		t.Errorf("MkdirAll on existing directory: got error %v, want nil", err)
	}
}

func testCreateWriteReadRemove(t *testing.T, filesystem fs.Filesystem, root string) {
	path := filepath.Join(root, "file.txt")

	f, err := filesystem.Create(path)
	if err != nil {
		t.Fatalf("Create(%q): got error %v, want nil", path, err)
	}
	if _, err := f.Write([]byte("draft")); err != nil {
		_ = f.Close()
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}

	if err := filesystem.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): got error %v, want nil", path, err)
	}

	data, err := filesystem.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): got error %v, want nil", path, err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("ReadFile(%q): got %q, want %q", path, data, "hello")
	}

	if err := filesystem.Remove(path); err != nil {
		t.Fatalf("Remove(%q): got error %v, want nil", path, err)
	}
	exists, err := filesystem.Exists(path)
	if err != nil || exists {
		t.Errorf("Exists(%q) after Remove: got (%v, %v), want (false, nil)", path, exists, err)
	}
}

func testOpenAndOpenFile(t *testing.T, filesystem fs.Filesystem, root string) {
	path := filepath.Join(root, "open.txt")
	if err := filesystem.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): got error %v, want nil", path, err)
	}

	f, err := filesystem.Open(path)
	if err != nil {
		t.Fatalf("Open(%q): got error %v, want nil", path, err)
	}
	info, err := f.Stat()
	_ = f.Close()
	if err != nil {
		t.Fatalf("File.Stat(): got error %v, want nil", err)
	}
	if info.Size() != 3 {
		t.Errorf("File.Stat().Size(): got %d, want 3", info.Size())
	}

	f, err = filesystem.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatalf("OpenFile(%q, O_APPEND): got error %v, want nil", path, err)
	}
	if _, err := f.Write([]byte("def")); err != nil {
		_ = f.Close()
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	_ = f.Close()

	data, err := filesystem.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): got error %v, want nil", path, err)
	}
	if string(data) != "abcdef" {
		t.Errorf("ReadFile after append: got %q, want %q", data, "abcdef")
	}
}

func testReadDir(t *testing.T, filesystem fs.Filesystem, root string) {
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := filesystem.WriteFile(filepath.Join(root, name), []byte(name), 0o644); err != nil {
			t.Fatalf("WriteFile(%q): got error %v, want nil", name, err)
		}
	}
	if err := filesystem.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("MkdirAll(): got error %v, want nil", err)
	}

	entries, err := filesystem.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir(%q): got error %v, want nil", root, err)
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = e.IsDir()
	}
	if len(names) != 3 || names["a.txt"] || names["b.txt"] || !names["sub"] {
		t.Errorf("ReadDir(%q): got %v, want a.txt, b.txt and directory sub", root, names)
	}
}

func testTempDirAndWalk(t *testing.T, filesystem fs.Filesystem, root string) {
	dir, err := filesystem.TempDir(root, "pref-")
	if err != nil {
		t.Fatalf("TempDir(): got error %v, want nil", err)
	}
	if dir == "" {
		t.Fatal("TempDir(): got empty path")
	}

	if err := filesystem.MkdirAll(filepath.Join(dir, "x", "y"), 0o755); err != nil {
		t.Fatalf("MkdirAll(): got error %v, want nil", err)
	}
	if err := filesystem.WriteFile(filepath.Join(dir, "x", "y", "z.txt"), []byte("z"), 0o644); err != nil {
		t.Fatalf("WriteFile(): got error %v, want nil", err)
	}

	var files int
	err = filesystem.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(): got error %v, want nil", err)
	}
	if files != 1 {
		t.Errorf("Walk(): visited %d files, want 1", files)
	}
}

func testExistsAndRemoveAll(t *testing.T, filesystem fs.Filesystem, root string) {
	dest := filepath.Join(root, "checkout")

	exists, err := filesystem.Exists(dest)
	if err != nil || exists {
		t.Fatalf("Exists(%q) before creation: got (%v, %v), want (false, nil)", dest, exists, err)
	}

	if err := filesystem.MkdirAll(filepath.Join(dest, ".git", "refs"), 0o755); err != nil {
		t.Fatalf("MkdirAll(): got error %v, want nil", err)
	}
	if err := filesystem.WriteFile(filepath.Join(dest, "README.md"), []byte("# app"), 0o644); err != nil {
		t.Fatalf("WriteFile(): got error %v, want nil", err)
	}

	exists, err = filesystem.Exists(dest)
	if err != nil || !exists {
		t.Fatalf("Exists(%q): got (%v, %v), want (true, nil)", dest, exists, err)
	}

	if err := filesystem.RemoveAll(dest); err != nil {
		t.Fatalf("RemoveAll(%q): got error %v, want nil", dest, err)
	}
	exists, err = filesystem.Exists(dest)
	if err != nil || exists {
		t.Errorf("Exists(%q) after RemoveAll: got (%v, %v), want (false, nil)", dest, exists, err)
	}

	if err := filesystem.RemoveAll(dest); err != nil {
		t.Errorf("RemoveAll on missing path: got error %v, want nil", err)
	}
}

func testStatMissing(t *testing.T, filesystem fs.Filesystem, root string) {
	_, err := filesystem.Stat(filepath.Join(root, "missing"))
	if !errors.Is(err, iofs.ErrNotExist) {
		t.Errorf("Stat(missing): got error %v, want fs.ErrNotExist", err)
	}
}
