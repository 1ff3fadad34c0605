// Package auth builds go-git SSH credentials for reposync remotes.
package auth

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// DefaultUser is used when the remote address names no user.
const DefaultUser = "git"

// ErrNoCredentials is returned when neither a key file nor the agent is
// configured.
var ErrNoCredentials = errors.New("no SSH credentials configured")

// SSH authenticates SSH remotes with a private key file or, when KeyPath is
// empty and Agent is set, with the running ssh-agent. Remotes reached over
// other transports get no credentials.
type SSH struct {
	KeyPath    string
	Passphrase string
	Agent      bool

	// HostKeys verifies the server. Nil falls back to go-git's default
	// known_hosts handling.
	HostKeys gossh.HostKeyCallback

	// Algorithms names the host key algorithms to offer for a "host:port",
	// so the server presents a key type HostKeys can verify. Nil or an
	// empty answer keeps go-git's choice.
	Algorithms func(hostport string) []string
}

// Key returns SSH credentials backed by a private key file.
func Key(path, passphrase string, hostKeys gossh.HostKeyCallback) *SSH {
	return &SSH{KeyPath: path, Passphrase: passphrase, HostKeys: hostKeys}
}

// Agent returns SSH credentials backed by ssh-agent.
func Agent(hostKeys gossh.HostKeyCallback) *SSH {
	return &SSH{Agent: true, HostKeys: hostKeys}
}

// WithAlgorithms sets Algorithms.
func (s *SSH) WithAlgorithms(fn func(hostport string) []string) *SSH {
	s.Algorithms = fn
	return s
}

// Method returns the credentials for remoteURL, or nil when it is not an
// SSH remote. The user in the address wins over DefaultUser.
//
//nolint:ireturn // go-git consumes transport.AuthMethod
func (s *SSH) Method(remoteURL string) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}
	if ep.Protocol != "ssh" {
		return nil, nil
	}

	user := ep.User
	if user == "" {
		user = DefaultUser
	}

	var method ssh.AuthMethod
	switch {
	case s.KeyPath != "":
		method, err = s.keyAuth(user)
	case s.Agent:
		method, err = s.agentAuth(user)
	default:
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}

	if s.Algorithms == nil {
		return method, nil
	}
	port := ep.Port
	if port == 0 {
		port = 22
	}
	algorithms := s.Algorithms(net.JoinHostPort(ep.Host, strconv.Itoa(port)))
	if len(algorithms) == 0 {
		return method, nil
	}
	return &negotiated{AuthMethod: method, algorithms: algorithms}, nil
}

// negotiated restricts the host key algorithms an SSH auth method offers.
type negotiated struct {
	ssh.AuthMethod
	algorithms []string
}

// ClientConfig implements ssh.AuthMethod.
func (n *negotiated) ClientConfig() (*gossh.ClientConfig, error) {
	config, err := n.AuthMethod.ClientConfig()
	if err != nil {
		return nil, err
	}
	config.HostKeyAlgorithms = n.algorithms
	return config, nil
}

func (s *SSH) keyAuth(user string) (*ssh.PublicKeys, error) {
	if _, err := os.Stat(s.KeyPath); err != nil {
		return nil, fmt.Errorf("SSH private key file not readable: %w", err)
	}
	keys, err := ssh.NewPublicKeysFromFile(user, s.KeyPath, s.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("loading SSH key %s: %w", s.KeyPath, err)
	}
	if s.HostKeys != nil {
		keys.HostKeyCallback = s.HostKeys
	}
	return keys, nil
}

func (s *SSH) agentAuth(user string) (*ssh.PublicKeysCallback, error) {
	agent, err := ssh.NewSSHAgentAuth(user)
	if err != nil {
		return nil, fmt.Errorf("connecting to ssh-agent: %w", err)
	}
	if s.HostKeys != nil {
		agent.HostKeyCallback = s.HostKeys
	}
	return agent, nil
}
