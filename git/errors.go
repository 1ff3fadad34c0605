package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Sentinel errors that can be checked with errors.Is().
// These wrap underlying go-git errors while providing a stable API for consumers.

// ErrAlreadyUpToDate is returned by Fetch when the local and remote states are
// already synchronized.
var ErrAlreadyUpToDate = errors.New("already up to date")

// ErrAuthRequired is returned when an operation requires authentication
// but no credentials were provided or available.
var ErrAuthRequired = errors.New("authentication required")

// ErrAuthFailed is returned when authentication was attempted but failed.
var ErrAuthFailed = errors.New("authentication failed")

// ErrBranchMissing is returned when a branch exists neither locally nor on the remote.
var ErrBranchMissing = errors.New("branch does not exist")

// ErrNotFastForward is returned when a pull cannot be performed as a
// fast-forward.
var ErrNotFastForward = errors.New("not a fast-forward")

// ErrInvalidOptions is returned when Options or arguments are malformed.
var ErrInvalidOptions = errors.New("invalid options")

// ErrNotRepository is returned when a directory holds no git repository.
var ErrNotRepository = errors.New("not a git repository")

// ErrNoCommits is returned when HEAD does not point at a commit yet.
var ErrNoCommits = errors.New("repository has no commits")

// ErrDetachedHead is returned when an operation needs a checked out branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// classifyTransportError maps go-git transport failures onto the package
// sentinels. The original error stays in the chain.
func classifyTransportError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrAuthenticationRequired):
		return fmt.Errorf("%s: %w: %w", msg, ErrAuthRequired, err)
	case errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%s: %w: %w", msg, ErrAuthFailed, err)
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return fmt.Errorf("%s: %w: %w", msg, ErrNotFastForward, err)
	case errors.Is(err, git.NoMatchingRefSpecError{}), errors.Is(err, transport.ErrEmptyRemoteRepository):
		return fmt.Errorf("%s: %w: %w", msg, ErrBranchMissing, err)
	default:
		return WrapError(err, msg)
	}
}
