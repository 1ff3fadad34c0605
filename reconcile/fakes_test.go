package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// world is an in-memory destination plus remote shared by the recording
// fakes. Every collaborator call is appended to calls in order.
type world struct {
	mu sync.Mutex

	exists   bool
	valid    bool
	revision Revision
	remote   Revision

	calls []string

	trustErr   error
	existsErr  error
	removeErr  error
	cloneErr   error
	pullErr    error
	inspectErr error

	// blockClone makes Clone wait for context cancellation.
	blockClone bool
}

func (w *world) record(format string, args ...any) {
	w.calls = append(w.calls, fmt.Sprintf(format, args...))
}

// Trust implements TrustStore.
func (w *world) Trust(_ context.Context, host string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("trust %s", host)
	return w.trustErr
}

// Exists implements Filesystem.
func (w *world) Exists(path string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("exists %s", path)
	if w.existsErr != nil {
		return false, w.existsErr
	}
	return w.exists, nil
}

// RemoveAll implements Filesystem.
func (w *world) RemoveAll(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("remove %s", path)
	if w.removeErr != nil {
		return w.removeErr
	}
	w.exists, w.valid, w.revision = false, false, ""
	return nil
}

// Clone implements VCS.
func (w *world) Clone(ctx context.Context, repository, destination, branch string, recursive bool) error {
	w.mu.Lock()
	w.record("clone %s %s %s %t", repository, destination, branch, recursive)
	block := w.blockClone
	w.mu.Unlock()

	if block {
		<-ctx.Done()
		return fmt.Errorf("clone interrupted: %w", ctx.Err())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cloneErr != nil {
		return w.cloneErr
	}
	w.exists, w.valid, w.revision = true, true, w.remote
	return nil
}

// CheckoutBranch implements VCS.
func (w *world) CheckoutBranch(_ context.Context, destination, branch string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("checkout %s %s", destination, branch)
	return nil
}

// Pull implements VCS.
func (w *world) Pull(_ context.Context, destination string, recursive bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("pull %s %t", destination, recursive)
	if w.pullErr != nil {
		return w.pullErr
	}
	w.revision = w.remote
	return nil
}

// Inspect implements VCS.
func (w *world) Inspect(_ context.Context, destination string) (Inspection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("inspect %s", destination)
	if w.inspectErr != nil {
		return Inspection{}, w.inspectErr
	}
	if !w.valid {
		return Inspection{}, nil
	}
	return Inspection{Valid: true, Revision: w.revision}, nil
}

// mutations returns the recorded calls that change state.
func (w *world) mutations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for _, c := range w.calls {
		switch {
		case strings.HasPrefix(c, "clone "), strings.HasPrefix(c, "checkout "),
			strings.HasPrefix(c, "pull "), strings.HasPrefix(c, "remove "), strings.HasPrefix(c, "trust "):
			out = append(out, c)
		}
	}
	return out
}

// recordingObserver collects observations.
type recordingObserver struct {
	mu  sync.Mutex
	obs []Observation
}

func (r *recordingObserver) Observe(o Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, o)
}
