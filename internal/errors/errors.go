// Package errors defines the loader's fatal error taxonomy.
//
// The loader has no caller to hand an error back to: every fatal condition
// ends the session through a single termination channel. An ExitError carries
// the short human-readable message for that channel plus a Kind that maps to
// a stable process exit code.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal loader condition.
type Kind int

const (
	// KindEnvironmentUnsupported means the host environment cannot supply
	// configuration (config load/parse failure). Hard precondition.
	KindEnvironmentUnsupported Kind = iota + 1
	// KindMissingCredential means no script key was supplied.
	KindMissingCredential
	// KindNetwork covers transport failures and undecodable or empty
	// responses from the verification service.
	KindNetwork
	// KindBlacklisted is the permanent-deny outcome for this hardware id.
	KindBlacklisted
	// KindInvalidKey means the service rejected the supplied key.
	KindInvalidKey
	// KindPayload covers payload fetch and execution failures.
	KindPayload
)

// String returns a stable code for logs.
func (k Kind) String() string {
	switch k {
	case KindEnvironmentUnsupported:
		return "ENVIRONMENT_UNSUPPORTED"
	case KindMissingCredential:
		return "MISSING_CREDENTIAL"
	case KindNetwork:
		return "NETWORK_ERROR"
	case KindBlacklisted:
		return "BLACKLISTED"
	case KindInvalidKey:
		return "INVALID_KEY"
	case KindPayload:
		return "PAYLOAD_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// ExitCode maps a kind to the process exit code reported to the host.
func (k Kind) ExitCode() int {
	switch k {
	case KindEnvironmentUnsupported:
		return 2
	case KindMissingCredential:
		return 3
	case KindNetwork:
		return 4
	case KindBlacklisted:
		return 5
	case KindInvalidKey:
		return 6
	case KindPayload:
		return 7
	default:
		return 1
	}
}

// ExitError is a fatal loader error. Message is the text delivered through
// the termination channel; Err is the underlying cause, kept for logs.
type ExitError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface. Message already carries the cause
// when one was wrapped in.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for this error.
func (e *ExitError) ExitCode() int {
	return e.Kind.ExitCode()
}

// New creates an ExitError without an underlying cause.
func New(kind Kind, message string) *ExitError {
	return &ExitError{Kind: kind, Message: message}
}

// Newf creates an ExitError with a formatted message.
func Newf(kind Kind, format string, args ...any) *ExitError {
	return &ExitError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an ExitError carrying an underlying cause. The cause is
// included in the user-visible message so operators see the captured error.
func Wrap(kind Kind, message string, err error) *ExitError {
	return &ExitError{Kind: kind, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}

// IsKind reports whether err is (or wraps) an ExitError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// AsExit extracts the ExitError from err, or wraps err in a generic one.
// Used by main to guarantee a single consistent termination path.
func AsExit(err error) *ExitError {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}
	return &ExitError{Kind: KindEnvironmentUnsupported, Message: err.Error(), Err: err}
}
