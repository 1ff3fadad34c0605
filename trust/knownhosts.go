package trust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	skeema "github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultPath returns $HOME/.ssh/known_hosts.
func DefaultPath() string {
	return filepath.Join(xdg.Home, ".ssh", "known_hosts")
}

// KnownHosts is a trust store over an OpenSSH known_hosts file. Entries are
// only ever appended, one write per recorded host, so concurrent writers in
// other processes cannot interleave partial lines.
type KnownHosts struct {
	path    string
	scanner Scanner
	logger  *slog.Logger

	mu sync.Mutex
}

// Option is a functional option for configuring KnownHosts.
type Option func(*KnownHosts)

// WithPath uses the known_hosts file at path instead of DefaultPath.
func WithPath(path string) Option {
	return func(k *KnownHosts) {
		if path != "" {
			k.path = path
		}
	}
}

// WithScanner replaces the host key scanner.
func WithScanner(scanner Scanner) Option {
	return func(k *KnownHosts) {
		if scanner != nil {
			k.scanner = scanner
		}
	}
}

// WithKeyscan scans hosts with the ssh-keyscan binary instead of in-process.
func WithKeyscan() Option {
	return func(k *KnownHosts) {
		k.scanner = NewKeyscanScanner()
	}
}

// WithLogger configures the store with a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *KnownHosts) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// NewKnownHosts returns a store over DefaultPath using the in-process scanner.
func NewKnownHosts(opts ...Option) *KnownHosts {
	k := &KnownHosts{
		path:    DefaultPath(),
		scanner: &NativeScanner{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Path returns the known_hosts file path.
func (k *KnownHosts) Path() string {
	return k.path
}

// Trusted reports whether any key is recorded for host. A missing file means
// nothing is trusted.
func (k *KnownHosts) Trusted(host string) (bool, error) {
	addr, err := hostPort(host)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(k.path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	callback, err := knownhosts.New(k.path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", k.path, err)
	}

	// Any key the file does not hold for addr makes the callback report
	// which keys it does hold for it.
	err = callback(addr, &net.TCPAddr{IP: net.IPv4zero}, absentKey{})
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return len(keyErr.Want) > 0, nil
	}
	var revoked *knownhosts.RevokedError
	if errors.As(err, &revoked) {
		return false, fmt.Errorf("host %s: %w", host, err)
	}
	return err == nil, nil
}

// Trust records host as trusted. A host with any recorded key is left alone;
// otherwise its keys are scanned and appended in a single write.
func (k *KnownHosts) Trust(ctx context.Context, host string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	trusted, err := k.Trusted(host)
	if err != nil {
		return err
	}
	if trusted {
		k.logger.Debug("host already trusted", "host", host, "path", k.path)
		return nil
	}

	addr, err := hostPort(host)
	if err != nil {
		return err
	}

	keys, err := k.scanner.Scan(ctx, addr)
	if err != nil {
		return fmt.Errorf("scanning host keys of %s: %w", host, err)
	}

	if err := k.appendKeys(host, keys); err != nil {
		return err
	}

	k.logger.Info("recorded host keys", "host", host, "keys", len(keys), "path", k.path)
	return nil
}

func (k *KnownHosts) appendKeys(host string, keys []ssh.PublicKey) error {
	var b strings.Builder
	for _, key := range keys {
		b.WriteString(knownhosts.Line([]string{host}, key))
		b.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(k.path), err)
	}

	f, err := os.OpenFile(k.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", k.path, err)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending to %s: %w", k.path, err)
	}
	return f.Close()
}

// HostKeyCallback verifies SSH servers against the file, including
// @cert-authority and @revoked markers.
func (k *KnownHosts) HostKeyCallback() (ssh.HostKeyCallback, error) {
	db, err := skeema.NewDB(k.path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", k.path, err)
	}
	return db.HostKeyCallback(), nil
}

// VerifyHostKey is an ssh.HostKeyCallback that reads the file on every call,
// so hosts recorded by Trust after construction are honored.
func (k *KnownHosts) VerifyHostKey(hostname string, remote net.Addr, key ssh.PublicKey) error {
	callback, err := k.HostKeyCallback()
	if err != nil {
		return err
	}
	return callback(hostname, remote, key)
}

// HostKeyAlgorithms returns the key algorithms recorded for hostport
// ("host:port"), in the order an SSH client should offer them. It returns nil
// when the file is unreadable or holds no key for the host, leaving the
// client's defaults in place.
func (k *KnownHosts) HostKeyAlgorithms(hostport string) []string {
	db, err := skeema.NewDB(k.path)
	if err != nil {
		k.logger.Debug("known_hosts unavailable for algorithm negotiation", "path", k.path, "error", err)
		return nil
	}
	return db.HostKeyAlgorithms(hostport)
}

// absentKey is never present in a known_hosts file.
type absentKey struct{}

func (absentKey) Type() string { return "reposync-absent" }

func (absentKey) Marshal() []byte { return []byte("reposync-absent") }

func (absentKey) Verify([]byte, *ssh.Signature) error { return errors.New("absent key cannot verify") }
