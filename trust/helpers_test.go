package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// newHostKey returns a fresh ed25519 host key signer.
func newHostKey(t *testing.T) ssh.Signer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

// startSSHServer runs an SSH server presenting hostKey on a loopback port
// until the test ends. It returns the known_hosts form of its address.
func startSSHServer(t *testing.T, hostKey ssh.Signer) string {
	t.Helper()

	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	t.Cleanup(func() {
		_ = ln.Close()
		wg.Wait()
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { _ = conn.Close() }()
				sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
				if err != nil {
					return
				}
				go ssh.DiscardRequests(reqs)
				go func() {
					for ch := range chans {
						_ = ch.Reject(ssh.Prohibited, "")
					}
				}()
				_ = sconn.Close()
			}()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	return knownhosts.Normalize(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
}

// countingScanner returns fixed keys and counts calls.
type countingScanner struct {
	keys  []ssh.PublicKey
	err   error
	calls atomic.Int32
}

func (s *countingScanner) Scan(_ context.Context, _ string) ([]ssh.PublicKey, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.keys, nil
}
