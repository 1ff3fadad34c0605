// Package trust maintains an OpenSSH known_hosts file as the record of remote
// hosts reposync is allowed to talk to over SSH.
package trust

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultSSHPort is used when an address names no port.
const DefaultSSHPort = 22

// ErrNoHost is returned by ParseHost for addresses that do not use SSH, such
// as local paths, file:// and https:// URLs.
var ErrNoHost = errors.New("address has no SSH host")

// ParseHost derives the known_hosts host entry for a repository address. The
// result is in known_hosts form: "host" for port 22, "[host]:port" otherwise.
func ParseHost(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty repository address")
	}

	ep, err := transport.NewEndpoint(address)
	if err != nil {
		return "", fmt.Errorf("parsing repository address %q: %w", address, err)
	}

	if ep.Protocol != "ssh" || ep.Host == "" {
		return "", fmt.Errorf("%s: %w", ep.Protocol, ErrNoHost)
	}

	port := ep.Port
	if port == 0 {
		port = DefaultSSHPort
	}

	return knownhosts.Normalize(net.JoinHostPort(ep.Host, strconv.Itoa(port))), nil
}

// splitHost reverses ParseHost, returning hostname and port.
func splitHost(host string) (string, int, error) {
	if host == "" {
		return "", 0, fmt.Errorf("empty host")
	}

	if !strings.HasPrefix(host, "[") {
		if strings.Count(host, ":") == 1 {
			return splitHostPort(host)
		}
		return host, DefaultSSHPort, nil
	}

	return splitHostPort(host)
}

func splitHostPort(hostport string) (string, int, error) {
	name, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, fmt.Errorf("invalid host %q: %w", hostport, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in host %q", hostport)
	}
	return name, port, nil
}

// hostPort returns the dialable address for host.
func hostPort(host string) (string, error) {
	name, port, err := splitHost(host)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(name, strconv.Itoa(port)), nil
}
