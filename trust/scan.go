package trust

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/executor"
)

// DefaultScanTimeout bounds a single host key scan.
const DefaultScanTimeout = 10 * time.Second

// ErrNoKeys is returned when a scan yields no host keys.
var ErrNoKeys = errors.New("no host keys found")

// Scanner fetches the public host keys a server presents.
type Scanner interface {
	Scan(ctx context.Context, hostport string) ([]ssh.PublicKey, error)
}

// scanAlgorithms are offered one at a time so every key type the server holds
// is collected.
var scanAlgorithms = []string{
	ssh.KeyAlgoED25519,
	ssh.KeyAlgoECDSA256,
	ssh.KeyAlgoECDSA384,
	ssh.KeyAlgoECDSA521,
	ssh.KeyAlgoRSASHA512,
}

// NativeScanner performs SSH key exchanges in-process and records the host
// key of each one. No authentication is attempted.
type NativeScanner struct {
	Timeout time.Duration
	Dialer  *net.Dialer
}

// Scan implements Scanner.
func (s *NativeScanner) Scan(ctx context.Context, hostport string) ([]ssh.PublicKey, error) {
	var (
		keys    []ssh.PublicKey
		lastErr error
	)

	for _, algo := range scanAlgorithms {
		key, err := s.scanOne(ctx, hostport, algo)
		if err != nil {
			if ctx.Err() != nil {
				return nil, reposyncerrors.Wrap(ctx.Err(), reposyncerrors.CodeTimeout, "scanning "+hostport)
			}
			lastErr = err
			continue
		}
		if !containsKey(keys, key) {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		if lastErr != nil {
			return nil, reposyncerrors.Wrap(lastErr, reposyncerrors.CodeNetwork, "scanning "+hostport)
		}
		return nil, ErrNoKeys
	}
	return keys, nil
}

func (s *NativeScanner) scanOne(ctx context.Context, hostport, algo string) (ssh.PublicKey, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	dialer := s.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: timeout}
	}

	conn, err := dialer.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	var captured ssh.PublicKey
	config := &ssh.ClientConfig{
		User:              "reposync",
		HostKeyAlgorithms: []string{algo},
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			captured = key
			return errKeyCaptured
		},
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, hostport, config)
	if err == nil {
		go ssh.DiscardRequests(reqs)
		go func() {
			for ch := range chans {
				_ = ch.Reject(ssh.Prohibited, "")
			}
		}()
		_ = sshConn.Close()
	}
	if captured == nil {
		if err == nil {
			err = ErrNoKeys
		}
		return nil, err
	}
	return captured, nil
}

var errKeyCaptured = errors.New("host key captured")

// KeyscanScanner runs ssh-keyscan through an executor.
type KeyscanScanner struct {
	Executor executor.Executor
	Timeout  time.Duration
}

// NewKeyscanScanner returns a scanner backed by the ssh-keyscan binary.
func NewKeyscanScanner() *KeyscanScanner {
	return &KeyscanScanner{
		Executor: executor.NewWrappedExecutor("ssh-keyscan"),
		Timeout:  DefaultScanTimeout,
	}
}

// Scan implements Scanner.
func (s *KeyscanScanner) Scan(ctx context.Context, hostport string) ([]ssh.PublicKey, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", hostport, err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	args := []string{"-T", strconv.Itoa(int(timeout.Seconds())), "-p", portStr, host}
	result, err := s.Executor.Execute(ctx, args, executor.WithTimeout(timeout+time.Second))
	if err != nil {
		return nil, fmt.Errorf("ssh-keyscan %s: %w", hostport, err)
	}

	keys, err := parseKnownHostsLines([]byte(result.Stdout))
	if err != nil {
		return nil, fmt.Errorf("parsing ssh-keyscan output: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("ssh-keyscan %s: %w", hostport, ErrNoKeys)
	}
	return keys, nil
}

// parseKnownHostsLines extracts the keys of known_hosts formatted data.
// Comment lines and blank lines are skipped.
func parseKnownHostsLines(data []byte) ([]ssh.PublicKey, error) {
	var keys []ssh.PublicKey
	rest := data
	for len(bytes.TrimSpace(rest)) > 0 {
		_, _, key, _, next, err := ssh.ParseKnownHosts(rest)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !containsKey(keys, key) {
			keys = append(keys, key)
		}
		rest = next
	}
	return keys, nil
}

func containsKey(keys []ssh.PublicKey, key ssh.PublicKey) bool {
	marshaled := key.Marshal()
	for _, k := range keys {
		if bytes.Equal(k.Marshal(), marshaled) {
			return true
		}
	}
	return false
}
