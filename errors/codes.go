// Package errors provides the structured error system shared by reposync packages.
// It extends Go's standard error handling with string error codes, retry
// classification and context preservation so callers can tell an
// authentication failure from a network failure from a full disk.
package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates existing state prevents the operation, such as a
	// destination directory that is not a checkout.
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeUnauthorized indicates the remote rejected or required credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the local user lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeUntrustedHost indicates the remote host key could not be trusted or recorded.
	CodeUntrustedHost ErrorCode = "UNTRUSTED_HOST"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeFilesystem indicates a local filesystem operation failed.
	CodeFilesystem ErrorCode = "FILESYSTEM_ERROR"

	// Execution errors.

	// CodeExecutionFailed indicates a version-control operation failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// retryable lists the codes a caller may reasonably retry. Nothing in this
// module retries on its own.
var retryable = map[ErrorCode]bool{
	CodeNetwork: true,
	CodeTimeout: true,
}

// Retryable reports whether errors carrying this code are transient.
func (c ErrorCode) Retryable() bool {
	return retryable[c]
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	return string(c)
}
