package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// PlatformError is implemented by every structured error in this module.
// Use errors.As with a PlatformError variable to recover the code.
type PlatformError interface {
	error

	// Code returns the classification of the error.
	Code() ErrorCode

	// Context returns additional key/value diagnostics. It may be nil.
	Context() map[string]interface{}

	// Retryable reports whether the caller may retry the operation.
	Retryable() bool
}

type platformError struct {
	code    ErrorCode
	message string
	context map[string]interface{}
	cause   error
}

func (e *platformError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *platformError) Unwrap() error { return e.cause }

func (e *platformError) Code() ErrorCode { return e.code }

func (e *platformError) Context() map[string]interface{} { return e.context }

func (e *platformError) Retryable() bool { return e.code.Retryable() }

// New creates a PlatformError with the given code and message.
func New(code ErrorCode, message string) error {
	return &platformError{code: code, message: message}
}

// Newf creates a PlatformError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &platformError{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. The cause stays reachable through
// errors.Is and errors.As. Wrap returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &platformError{code: code, message: message, cause: err}
}

// WrapWithContext is Wrap with additional diagnostics attached.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &platformError{code: code, message: message, cause: err, context: maps.Clone(ctx)}
}

// GetCode returns the code of the outermost PlatformError in err's chain,
// or CodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var pe PlatformError
	if stderrors.As(err, &pe) {
		return pe.Code()
	}
	return CodeUnknown
}

// IsRetryable reports whether err carries a retryable code.
func IsRetryable(err error) bool {
	var pe PlatformError
	return stderrors.As(err, &pe) && pe.Retryable()
}

// Is, As and Unwrap re-export the standard library helpers so callers only
// need to import this package.
var (
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
)
