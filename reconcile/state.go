package reconcile

import (
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

// DefaultBranch is the branch checked out when none is requested.
const DefaultBranch = "master"

// Revision identifies a commit. For git it is the full 40-hex SHA.
// The empty Revision means absent or unknown.
type Revision string

// String implements fmt.Stringer.
func (r Revision) String() string {
	return string(r)
}

// IsZero reports whether the revision is absent.
func (r Revision) IsZero() bool {
	return r == ""
}

// DesiredState is what the caller wants the destination to look like.
// It is fixed for the duration of one invocation.
type DesiredState struct {
	// Repository is the remote address: scp-like SSH, ssh://, https://,
	// file:// or a local path.
	Repository string `json:"repo" yaml:"repo"`

	// Destination is the absolute path of the working directory.
	Destination string `json:"dest" yaml:"dest"`

	// Branch is the branch to check out.
	Branch string `json:"branch" yaml:"branch"`

	// ReplaceDestination permits removing a destination that is not a
	// valid checkout.
	ReplaceDestination bool `json:"replace_dest" yaml:"replace_dest"`

	// AcceptHostKey records the remote host as trusted before any network
	// operation.
	AcceptHostKey bool `json:"accept_hostkey" yaml:"accept_hostkey"`

	// AllowUpdate permits pulling into an existing checkout.
	AllowUpdate bool `json:"update" yaml:"update"`

	// AllowClone permits cloning into an absent or replaced destination.
	AllowClone bool `json:"clone" yaml:"clone"`

	// RecursiveSubmodules clones and updates submodules recursively.
	RecursiveSubmodules bool `json:"recursive" yaml:"recursive"`
}

// StateOption adjusts a DesiredState built by NewDesiredState.
type StateOption func(*DesiredState)

// WithBranch sets the branch to check out.
func WithBranch(branch string) StateOption {
	return func(s *DesiredState) {
		s.Branch = branch
	}
}

// WithReplaceDestination permits replacing a destination that is not a checkout.
func WithReplaceDestination(replace bool) StateOption {
	return func(s *DesiredState) {
		s.ReplaceDestination = replace
	}
}

// WithAcceptHostKey makes the reconciler trust the remote host first.
func WithAcceptHostKey(accept bool) StateOption {
	return func(s *DesiredState) {
		s.AcceptHostKey = accept
	}
}

// WithUpdate permits pulling into an existing checkout.
func WithUpdate(update bool) StateOption {
	return func(s *DesiredState) {
		s.AllowUpdate = update
	}
}

// WithClone permits cloning.
func WithClone(clone bool) StateOption {
	return func(s *DesiredState) {
		s.AllowClone = clone
	}
}

// WithRecursive toggles recursive submodule handling.
func WithRecursive(recursive bool) StateOption {
	return func(s *DesiredState) {
		s.RecursiveSubmodules = recursive
	}
}

// NewDesiredState returns a DesiredState with the defaults applied: branch
// master, recursive submodules on, every permission off.
func NewDesiredState(repository, destination string, opts ...StateOption) DesiredState {
	s := DesiredState{
		Repository:          repository,
		Destination:         destination,
		Branch:              DefaultBranch,
		RecursiveSubmodules: true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Validate rejects states the reconciler cannot act on.
func (s DesiredState) Validate() error {
	switch {
	case s.Repository == "":
		return errors.New(errors.CodeInvalidInput, "repository is required")
	case s.Destination == "":
		return errors.New(errors.CodeInvalidInput, "destination is required")
	case !filepath.IsAbs(s.Destination):
		return errors.Newf(errors.CodeInvalidInput, "destination %q must be an absolute path", s.Destination)
	case s.Branch == "":
		return errors.New(errors.CodeInvalidInput, "branch is required")
	}
	return nil
}

// Inspection is what a VCS reports about a destination directory.
type Inspection struct {
	// Valid is true when the directory is a working checkout with a commit.
	Valid bool

	// Revision is the commit HEAD points at when Valid.
	Revision Revision
}

// CurrentState is observed at the start of every invocation.
type CurrentState struct {
	DestinationExists bool     `json:"exists"`
	IsValidCheckout   bool     `json:"valid"`
	CurrentRevision   Revision `json:"revision,omitempty"`
}
