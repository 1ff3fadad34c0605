package git

import (
	"net"

	gossh "golang.org/x/crypto/ssh"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/git/internal/auth"
)

// HostKeys verifies SSH servers and names the key algorithms to negotiate
// with them. trust.KnownHosts implements it.
type HostKeys interface {
	VerifyHostKey(hostname string, remote net.Addr, key gossh.PublicKey) error
	HostKeyAlgorithms(hostport string) []string
}

// SSHAgentAuth authenticates SSH remotes through the running ssh-agent.
// Non-SSH remotes get no credentials. A nil hostKeys falls back to go-git's
// default known_hosts handling.
//
//nolint:ireturn // AuthProvider is the consumer-facing abstraction.
func SSHAgentAuth(hostKeys HostKeys) AuthProvider {
	return withHostKeys(auth.Agent(nil), hostKeys)
}

// SSHKeyAuth authenticates SSH remotes with a private key file.
//
//nolint:ireturn // AuthProvider is the consumer-facing abstraction.
func SSHKeyAuth(keyPath, passphrase string, hostKeys HostKeys) AuthProvider {
	return withHostKeys(auth.Key(keyPath, passphrase, nil), hostKeys)
}

func withHostKeys(s *auth.SSH, hostKeys HostKeys) *auth.SSH {
	if hostKeys == nil {
		return s
	}
	s.HostKeys = hostKeys.VerifyHostKey
	return s.WithAlgorithms(hostKeys.HostKeyAlgorithms)
}
