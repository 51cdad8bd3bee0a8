// Package coreerr defines the closed set of error kinds shared across the
// query routing and retrieval fusion engine.
package coreerr

import "errors"

// Kind identifies a class of failure. The set is closed: callers should
// switch exhaustively over it rather than comparing arbitrary error values.
type Kind string

// The error kinds named by the spec. Adapters classify raw backend/library
// errors into one of these before returning them; nothing upstream of the
// adapter layer should see a vendor error type.
const (
	KindValidation  Kind = "ValidationError"
	KindUnavailable Kind = "BackendUnavailable"
	KindTimeout     Kind = "Timeout"
	KindQuery       Kind = "QueryError"
	KindCircuitOpen Kind = "CircuitOpen"
	KindParse       Kind = "ParseError"
	KindUpstream    Kind = "UpstreamError"
	KindOverload    Kind = "Overload"
	KindCancelled   Kind = "Cancelled"
)

// Error is a classified, wrapped failure. NodeID/Stage is optional context
// identifying which component produced it.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return e.Stage + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a classified error.
func New(kind Kind, stage, message string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Cause: cause}
}

// Is allows errors.Is(err, coreerr.KindTimeout) style checks via a sentinel
// wrapper, since Kind itself is a plain string type.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindOf extracts the Kind of err, or "" if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether err belongs to a class the retry policy (§4.2)
// treats as transient: Timeout, or BackendUnavailable. QueryError,
// CircuitOpen, and ValidationError are never retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}
