package trust

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func newTestStore(t *testing.T, scanner Scanner) *KnownHosts {
	t.Helper()
	return NewKnownHosts(
		WithPath(filepath.Join(t.TempDir(), ".ssh", "known_hosts")),
		WithScanner(scanner),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(xdg.Home, ".ssh", "known_hosts"), DefaultPath())
	assert.Equal(t, DefaultPath(), NewKnownHosts().Path())
}

func TestTrusted(t *testing.T) {
	key := newHostKey(t).PublicKey()

	t.Run("missing file", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})

		trusted, err := store.Trusted("github.com")
		require.NoError(t, err)
		assert.False(t, trusted)
	})

	t.Run("other host recorded", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), knownhosts.Line([]string{"gitlab.com"}, key))

		trusted, err := store.Trusted("github.com")
		require.NoError(t, err)
		assert.False(t, trusted)
	})

	t.Run("host recorded", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), knownhosts.Line([]string{"github.com"}, key))

		trusted, err := store.Trusted("github.com")
		require.NoError(t, err)
		assert.True(t, trusted)
	})

	t.Run("port distinguishes hosts", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), knownhosts.Line([]string{"[git.example.com]:2222"}, key))

		trusted, err := store.Trusted("git.example.com")
		require.NoError(t, err)
		assert.False(t, trusted)

		trusted, err = store.Trusted("[git.example.com]:2222")
		require.NoError(t, err)
		assert.True(t, trusted)
	})

	t.Run("hashed entry", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), knownhosts.Line([]string{knownhosts.HashHostname("github.com")}, key))

		trusted, err := store.Trusted("github.com")
		require.NoError(t, err)
		assert.True(t, trusted)
	})

	t.Run("malformed file", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), "github.com ssh-ed25519 not-base64!")

		_, err := store.Trusted("github.com")
		assert.Error(t, err)
	})
}

func TestTrust(t *testing.T) {
	ctx := context.Background()
	key := newHostKey(t).PublicKey()

	t.Run("records scanned keys", func(t *testing.T) {
		other := newHostKey(t).PublicKey()
		scanner := &countingScanner{keys: []ssh.PublicKey{key, other}}
		store := newTestStore(t, scanner)

		require.NoError(t, store.Trust(ctx, "github.com"))

		data, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Equal(t, []string{
			knownhosts.Line([]string{"github.com"}, key),
			knownhosts.Line([]string{"github.com"}, other),
		}, lines)

		info, err := os.Stat(store.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		trusted, err := store.Trusted("github.com")
		require.NoError(t, err)
		assert.True(t, trusted)
	})

	t.Run("is idempotent", func(t *testing.T) {
		scanner := &countingScanner{keys: []ssh.PublicKey{key}}
		store := newTestStore(t, scanner)

		require.NoError(t, store.Trust(ctx, "github.com"))
		require.NoError(t, store.Trust(ctx, "github.com"))

		assert.Equal(t, int32(1), scanner.calls.Load())
		data, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "\n"))
	})

	t.Run("keeps existing entries", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{keys: []ssh.PublicKey{key}})
		existing := knownhosts.Line([]string{"gitlab.com"}, key)
		writeKnownHosts(t, store.Path(), existing)

		require.NoError(t, store.Trust(ctx, "github.com"))

		data, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), existing+"\n"))
	})

	t.Run("concurrent callers scan once", func(t *testing.T) {
		scanner := &countingScanner{keys: []ssh.PublicKey{key}}
		store := newTestStore(t, scanner)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Trust(ctx, "github.com")
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), scanner.calls.Load())
	})

	t.Run("scan failure writes nothing", func(t *testing.T) {
		cause := errors.New("connection refused")
		store := newTestStore(t, &countingScanner{err: cause})

		err := store.Trust(ctx, "github.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.NoFileExists(t, store.Path())
	})
}

func TestTrustAgainstServer(t *testing.T) {
	hostKey := newHostKey(t)
	host := startSSHServer(t, hostKey)

	store := NewKnownHosts(
		WithPath(filepath.Join(t.TempDir(), "known_hosts")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	addr, err := hostPort(host)
	require.NoError(t, err)
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	require.NoError(t, err)

	require.Error(t, store.VerifyHostKey(addr, tcpAddr, hostKey.PublicKey()))
	require.NoError(t, store.Trust(context.Background(), host))
	assert.NoError(t, store.VerifyHostKey(addr, tcpAddr, hostKey.PublicKey()))

	callback, err := store.HostKeyCallback()
	require.NoError(t, err)

	assert.NoError(t, callback(addr, tcpAddr, hostKey.PublicKey()))
	assert.Error(t, callback(addr, tcpAddr, newHostKey(t).PublicKey()))
}

func TestHostKeyAlgorithms(t *testing.T) {
	key := newHostKey(t).PublicKey()

	t.Run("missing file", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		assert.Nil(t, store.HostKeyAlgorithms("github.com:22"))
	})

	t.Run("recorded host", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), knownhosts.Line([]string{"github.com"}, key))

		assert.Equal(t, []string{ssh.KeyAlgoED25519}, store.HostKeyAlgorithms("github.com:22"))
	})

	t.Run("non-standard port", func(t *testing.T) {
		store := newTestStore(t, &countingScanner{})
		writeKnownHosts(t, store.Path(), knownhosts.Line([]string{"[git.example.com]:2222"}, key))

		assert.Equal(t, []string{ssh.KeyAlgoED25519}, store.HostKeyAlgorithms("git.example.com:2222"))
		assert.Empty(t, store.HostKeyAlgorithms("git.example.com:22"))
	})
}

func writeKnownHosts(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}
