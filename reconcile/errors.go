package reconcile

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

// Kind classifies why an invocation failed.
type Kind string

const (
	// KindTrust means the remote host could not be recorded as trusted.
	KindTrust Kind = "TrustError"

	// KindDestinationConflict means the destination exists, is not a
	// checkout, and may not be replaced.
	KindDestinationConflict Kind = "DestinationConflictError"

	// KindVcsOperation means clone, checkout, pull or inspect failed.
	KindVcsOperation Kind = "VcsOperationError"

	// KindFilesystem means an existence check or removal failed.
	KindFilesystem Kind = "FilesystemError"

	// KindInvalidInput labels observations of invocations whose desired
	// state failed Validate. Reconcile returns the validation error itself,
	// so KindOf never reports this kind.
	KindInvalidInput Kind = "InvalidInput"
)

// Error is returned by Reconcile. Err holds the collaborator's error
// unmodified; it is nil for destination conflicts.
type Error struct {
	Kind        Kind
	Op          string
	Destination string
	Err         error

	code errors.ErrorCode
}

var _ errors.PlatformError = (*Error)(nil)

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Op, e.Destination)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Destination, e.Err)
}

// Unwrap returns the collaborator error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the structured error code.
func (e *Error) Code() errors.ErrorCode {
	return e.code
}

// Context returns diagnostics for structured output.
func (e *Error) Context() map[string]interface{} {
	return map[string]interface{}{
		"kind":        string(e.Kind),
		"op":          e.Op,
		"destination": e.Destination,
	}
}

// Retryable reports whether a later invocation may succeed unchanged.
func (e *Error) Retryable() bool {
	return e.code.Retryable()
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var re *Error
	if stderrors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func newConflictError(desired DesiredState) *Error {
	return &Error{
		Kind:        KindDestinationConflict,
		Op:          "replace disabled for existing non-checkout",
		Destination: desired.Destination,
		code:        errors.CodeConflict,
	}
}

func newTrustError(host string, err error) *Error {
	code := errors.CodeUntrustedHost
	if stderrors.Is(err, context.DeadlineExceeded) {
		code = errors.CodeTimeout
	}
	return &Error{
		Kind:        KindTrust,
		Op:          "trust",
		Destination: host,
		Err:         err,
		code:        code,
	}
}

func newVcsError(op, destination string, err error) *Error {
	return &Error{
		Kind:        KindVcsOperation,
		Op:          op,
		Destination: destination,
		Err:         err,
		code:        classifyVcs(err),
	}
}

func newFilesystemError(op, destination string, err error) *Error {
	code := errors.CodeFilesystem
	if stderrors.Is(err, fs.ErrPermission) {
		code = errors.CodeForbidden
	}
	return &Error{
		Kind:        KindFilesystem,
		Op:          op,
		Destination: destination,
		Err:         err,
		code:        code,
	}
}

// classifyVcs derives a code from the collaborator error. Codes attached by
// the collaborator win over generic network detection.
func classifyVcs(err error) errors.ErrorCode {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.CodeTimeout
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		return code
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.CodeTimeout
		}
		return errors.CodeNetwork
	}
	return errors.CodeExecutionFailed
}
