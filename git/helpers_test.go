package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var testSignature = &object.Signature{
	Name:  "Test User",
	Email: "test@example.com",
	When:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

// requireLocalTransport skips tests that clone from local paths when the git
// upload-pack helper used by go-git's file transport is unavailable.
func requireLocalTransport(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available")
	}
}

// origin is an on-disk repository acting as the remote in tests.
type origin struct {
	path string
	repo *git.Repository
}

// newOrigin creates a non-bare repository with one commit on master.
func newOrigin(t *testing.T) *origin {
	t.Helper()

	path := filepath.Join(t.TempDir(), "origin")
	repo, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("master")},
	})
	require.NoError(t, err)

	o := &origin{path: path, repo: repo}
	o.commit(t, "README.md", "# app\n", "initial commit")
	return o
}

// commit writes name on the checked out branch and commits it.
func (o *origin) commit(t *testing.T, name, content, msg string) plumbing.Hash {
	t.Helper()

	wt, err := o.repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, writeFile(wt, name, content))
	_, err = wt.Add(name)
	require.NoError(t, err)

	hash, err := wt.Commit(msg, &git.CommitOptions{Author: testSignature, Committer: testSignature})
	require.NoError(t, err)
	return hash
}

// branch creates and checks out a new branch at the current HEAD.
func (o *origin) branch(t *testing.T, name string) {
	t.Helper()

	wt, err := o.repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	}))
}

// checkout switches the origin worktree to an existing branch.
func (o *origin) checkout(t *testing.T, name string) {
	t.Helper()

	wt, err := o.repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}))
}

// tip returns the commit a branch of the origin points at.
func (o *origin) tip(t *testing.T, name string) string {
	t.Helper()

	ref, err := o.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	require.NoError(t, err)
	return ref.Hash().String()
}

// addSubmodule registers url as a submodule at path and commits it. The git
// binary is used because go-git cannot add submodules.
func (o *origin) addSubmodule(t *testing.T, url, path string) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = o.path
		cmd.Env = append(os.Environ(),
			"GIT_CONFIG_NOSYSTEM=1",
			"GIT_AUTHOR_NAME=Test User", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test User", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("-c", "protocol.file.allow=always", "submodule", "--quiet", "add", url, path)
	run("commit", "--quiet", "-m", "add "+path)
}

func (o *origin) head(t *testing.T) string {
	t.Helper()

	ref, err := o.repo.Head()
	require.NoError(t, err)
	return ref.Hash().String()
}

func writeFile(wt *git.Worktree, name, content string) error {
	f, err := wt.Filesystem.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// commitInMemory commits a file in a Repo created with Init.
func commitInMemory(t *testing.T, r *Repo, name, content string) plumbing.Hash {
	t.Helper()

	require.NoError(t, writeFile(r.worktree, name, content))
	_, err := r.worktree.Add(name)
	require.NoError(t, err)

	hash, err := r.worktree.Commit("commit "+name, &git.CommitOptions{Author: testSignature, Committer: testSignature})
	require.NoError(t, err)
	return hash
}

// addOriginRemote records a remote named origin without contacting it.
func addOriginRemote(t *testing.T, r *Repo, url string) {
	t.Helper()

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: DefaultRemoteName,
		URLs: []string{url},
	})
	require.NoError(t, err)
}
