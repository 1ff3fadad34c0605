package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/trust"
)

// VCS performs version-control operations on a destination directory.
type VCS interface {
	// Clone clones branch of repository into destination, which must not exist.
	Clone(ctx context.Context, repository, destination, branch string, recursive bool) error

	// CheckoutBranch switches an existing checkout to branch.
	CheckoutBranch(ctx context.Context, destination, branch string) error

	// Pull fast-forwards the checked out branch from its remote. Submodules
	// are updated only when recursive is set.
	Pull(ctx context.Context, destination string, recursive bool) error

	// Inspect reports whether destination is a valid checkout and its HEAD.
	// A directory that is not a checkout is reported as not valid, not as
	// an error.
	Inspect(ctx context.Context, destination string) (Inspection, error)
}

// TrustStore records remote hosts as trusted for SSH transports.
type TrustStore interface {
	// Trust records host as trusted. It is idempotent.
	Trust(ctx context.Context, host string) error
}

// Filesystem is the subset of filesystem primitives the reconciler needs.
type Filesystem interface {
	Exists(path string) (bool, error)
	RemoveAll(path string) error
}

// Reconciler converges a destination directory onto a desired state.
//
// A Reconciler holds only immutable configuration and may be shared across
// goroutines. Invocations for the same destination must be serialized by the
// caller.
type Reconciler struct {
	vcs       VCS
	trust     TrustStore
	fs        Filesystem
	logger    *slog.Logger
	observer  Observer
	checkMode bool
	timeout   time.Duration
}

// New creates a Reconciler over the given collaborators.
func New(vcs VCS, trustStore TrustStore, fs Filesystem, opts ...Option) *Reconciler {
	options := defaultOptions()
	applyOptions(options, opts)

	return &Reconciler{
		vcs:       vcs,
		trust:     trustStore,
		fs:        fs,
		logger:    options.logger,
		observer:  options.observer,
		checkMode: options.checkMode,
		timeout:   options.timeout,
	}
}

// Reconcile observes the destination, decides on exactly one operation and
// performs it. Failures are returned as *Error; nothing is retried.
func (r *Reconciler) Reconcile(ctx context.Context, desired DesiredState) (result *Result, err error) {
	start := time.Now()
	defer func() {
		r.observe(start, result, err)
	}()

	if err := desired.Validate(); err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := r.logger.With(
		"repository", desired.Repository,
		"destination", desired.Destination,
		"branch", desired.Branch,
	)

	if desired.AcceptHostKey && !r.checkMode {
		if err := r.trustHost(ctx, desired, logger); err != nil {
			return nil, err
		}
	}

	current, err := r.Inspect(ctx, desired.Destination)
	if err != nil {
		return nil, err
	}
	logger.Debug("observed destination",
		"exists", current.DestinationExists,
		"valid", current.IsValidCheckout,
		"revision", current.CurrentRevision,
	)

	op, err := Decide(desired, current)
	if err != nil {
		logger.Error("destination is not a checkout and may not be replaced")
		return nil, err
	}
	logger = logger.With("operation", op)

	if r.checkMode {
		result := planResult(op, current)
		logger.Info("check mode, no changes made", "changed", result.Changed)
		return result, nil
	}

	switch op {
	case OperationCloned:
		result, err = r.clone(ctx, desired, logger)
	case OperationReplacedAndCloned:
		result, err = r.replace(ctx, desired, logger)
	case OperationUpdated:
		result, err = r.update(ctx, desired, current, logger)
	default:
		result = &Result{
			Operation:      OperationNone,
			BeforeRevision: current.CurrentRevision,
			AfterRevision:  current.CurrentRevision,
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Info("reconciled",
		"changed", result.Changed,
		"before", result.BeforeRevision,
		"after", result.AfterRevision,
	)
	return result, nil
}

// Inspect computes the CurrentState of destination without changing it.
func (r *Reconciler) Inspect(ctx context.Context, destination string) (CurrentState, error) {
	exists, err := r.fs.Exists(destination)
	if err != nil {
		return CurrentState{}, newFilesystemError("exists", destination, err)
	}
	if !exists {
		return CurrentState{}, nil
	}

	inspection, err := r.vcs.Inspect(ctx, destination)
	if err != nil {
		return CurrentState{}, newVcsError("inspect", destination, err)
	}

	state := CurrentState{
		DestinationExists: true,
		IsValidCheckout:   inspection.Valid,
	}
	if inspection.Valid {
		state.CurrentRevision = inspection.Revision
	}
	return state, nil
}

func (r *Reconciler) trustHost(ctx context.Context, desired DesiredState, logger *slog.Logger) error {
	host, err := trust.ParseHost(desired.Repository)
	if errors.Is(err, trust.ErrNoHost) {
		logger.Debug("repository has no SSH host, skipping host key acceptance")
		return nil
	}
	if err != nil {
		return newTrustError(desired.Repository, err)
	}

	logger.Debug("accepting host key", "host", host)
	if err := r.trust.Trust(ctx, host); err != nil {
		logger.Error("failed to trust host", "host", host, "error", err)
		return newTrustError(host, err)
	}
	return nil
}

func (r *Reconciler) clone(ctx context.Context, desired DesiredState, logger *slog.Logger) (*Result, error) {
	logger.Info("cloning repository", "recursive", desired.RecursiveSubmodules)
	err := r.vcs.Clone(ctx, desired.Repository, desired.Destination, desired.Branch, desired.RecursiveSubmodules)
	if err != nil {
		return nil, newVcsError("clone", desired.Destination, err)
	}

	after, err := r.revision(ctx, desired.Destination)
	if err != nil {
		return nil, err
	}

	return &Result{
		Changed:       true,
		AfterRevision: after,
		Operation:     OperationCloned,
	}, nil
}

func (r *Reconciler) replace(ctx context.Context, desired DesiredState, logger *slog.Logger) (*Result, error) {
	logger.Warn("removing destination that is not a checkout")
	if err := r.fs.RemoveAll(desired.Destination); err != nil {
		return nil, newFilesystemError("remove", desired.Destination, err)
	}

	result, err := r.clone(ctx, desired, logger)
	if err != nil {
		return nil, err
	}
	result.Operation = OperationReplacedAndCloned
	return result, nil
}

func (r *Reconciler) update(
	ctx context.Context,
	desired DesiredState,
	current CurrentState,
	logger *slog.Logger,
) (*Result, error) {
	logger.Info("updating checkout")
	if err := r.vcs.CheckoutBranch(ctx, desired.Destination, desired.Branch); err != nil {
		return nil, newVcsError("checkout", desired.Destination, err)
	}
	if err := r.vcs.Pull(ctx, desired.Destination, desired.RecursiveSubmodules); err != nil {
		return nil, newVcsError("pull", desired.Destination, err)
	}

	after, err := r.revision(ctx, desired.Destination)
	if err != nil {
		return nil, err
	}

	return &Result{
		Changed:        after != current.CurrentRevision,
		BeforeRevision: current.CurrentRevision,
		AfterRevision:  after,
		Operation:      OperationUpdated,
	}, nil
}

// revision re-inspects destination after a mutation.
func (r *Reconciler) revision(ctx context.Context, destination string) (Revision, error) {
	inspection, err := r.vcs.Inspect(ctx, destination)
	if err != nil {
		return "", newVcsError("inspect", destination, err)
	}
	if !inspection.Valid {
		return "", nil
	}
	return inspection.Revision, nil
}

func (r *Reconciler) observe(start time.Time, result *Result, err error) {
	if r.observer == nil {
		return
	}

	obs := Observation{
		Duration:  time.Since(start),
		CheckMode: r.checkMode,
	}
	if result != nil {
		obs.Operation = result.Operation
		obs.Changed = result.Changed
	}
	if err != nil {
		obs.Kind = KindOf(err)
		if obs.Kind == "" {
			obs.Kind = KindInvalidInput
		}
	}
	r.observer.Observe(obs)
}

// planResult describes what op would report without running it. An update
// cannot know its after revision without the network, so it is reported as
// a change.
func planResult(op Operation, current CurrentState) *Result {
	result := &Result{
		Operation: op,
		CheckMode: true,
	}
	switch op {
	case OperationCloned, OperationReplacedAndCloned:
		result.Changed = true
	case OperationUpdated:
		result.Changed = true
		result.BeforeRevision = current.CurrentRevision
		result.AfterRevision = current.CurrentRevision
	default:
		result.BeforeRevision = current.CurrentRevision
		result.AfterRevision = current.CurrentRevision
	}
	return result
}
