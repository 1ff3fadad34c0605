package billy

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	parentfs "github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs/fstest"
)

func TestInMemoryFS_Suite(t *testing.T) {
	fstest.TestSuite(t, func() parentfs.Filesystem { return NewInMemoryFS() }, "/")
}

func TestOSFS_Suite(t *testing.T) {
	root := t.TempDir()
	fstest.TestSuite(t, func() parentfs.Filesystem { return NewOSFS(root) }, "/")
}

func TestBaseOSFS_Suite(t *testing.T) {
	root := t.TempDir()
	fstest.TestSuite(t, func() parentfs.Filesystem { return NewBaseOSFS() }, root)
}

func TestBaseOSFS_AbsolutePaths(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "hostfile.txt")
	require.NoError(t, os.WriteFile(p, []byte("on disk"), 0o600))

	fs := NewBaseOSFS()
	b, err := fs.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(b))

	chrooted, err := fs.Raw().Chroot(root)
	require.NoError(t, err)
	info, err := chrooted.Stat("hostfile.txt")
	require.NoError(t, err)
	assert.Equal(t, "hostfile.txt", info.Name())
}

func TestErrorCodes(t *testing.T) {
	fsys := NewInMemoryFS()

	_, err := fsys.ReadFile("/missing.txt")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	assert.ErrorIs(t, err, iofs.ErrNotExist)

	_, err = fsys.Open("/missing.txt")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	var pe errors.PlatformError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "/missing.txt", pe.Context()["path"])
	assert.Equal(t, "open", pe.Context()["op"])
}

func TestExistsDanglingSymlink(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), link))

	ok, err := NewBaseOSFS().Exists(link)
	require.NoError(t, err)
	assert.True(t, ok)
}
