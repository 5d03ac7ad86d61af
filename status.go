package armhook

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies every error this package can return, per the taxonomy
// in §7: a fixed, closed set of reasons rather than ad-hoc error strings.
type Kind int

const (
	_ Kind = iota
	InvalidArgument
	OutOfMemory
	PermissionDenied
	AlreadyHooked
	NotFound
	UnsupportedInstruction
	InvalidState
	ResolveFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case OutOfMemory:
		return "out of memory"
	case PermissionDenied:
		return "permission denied"
	case AlreadyHooked:
		return "already hooked"
	case NotFound:
		return "not found"
	case UnsupportedInstruction:
		return "unsupported instruction"
	case InvalidState:
		return "invalid state"
	case ResolveFailure:
		return "symbol resolution failed"
	default:
		return "unknown error"
	}
}

// Status is the error type every fallible API in this package returns. It
// carries a classified Kind plus an optional underlying cause, so callers
// can either switch on Kind or unwrap to the originating error.
type Status struct {
	Kind    Kind
	Message string
	cause   error
}

func (s *Status) Error() string {
	if s.Message != "" {
		return s.Kind.String() + ": " + s.Message
	}
	return s.Kind.String()
}

// Cause returns the underlying error, if any, satisfying github.com/pkg/errors's
// Causer interface.
func (s *Status) Cause() error { return s.cause }

func (s *Status) Unwrap() error { return s.cause }

// newStatus builds a Status, wrapping cause with github.com/pkg/errors so a
// stack trace is attached the first time a Status is constructed from a
// lower-level failure.
func newStatus(kind Kind, cause error) *Status {
	s := &Status{Kind: kind}
	if cause != nil {
		s.cause = pkgerrors.WithStack(cause)
		s.Message = cause.Error()
	}
	return s
}

func newStatusf(kind Kind, format string, args ...interface{}) *Status {
	return &Status{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidArgument builds a *Status of kind InvalidArgument, for callers
// outside this package (e.g. internal/declare) that need to report the
// same taxonomy without access to newStatusf.
func NewInvalidArgument(format string, args ...interface{}) *Status {
	return newStatusf(InvalidArgument, format, args...)
}

// NewAlreadyHooked builds a *Status of kind AlreadyHooked.
func NewAlreadyHooked(format string, args ...interface{}) *Status {
	return newStatusf(AlreadyHooked, format, args...)
}

// NewNotFound builds a *Status of kind NotFound.
func NewNotFound(format string, args ...interface{}) *Status {
	return newStatusf(NotFound, format, args...)
}

// NewInvalidState builds a *Status of kind InvalidState.
func NewInvalidState(format string, args ...interface{}) *Status {
	return newStatusf(InvalidState, format, args...)
}

// IsKind reports whether err is a *Status of the given kind.
func IsKind(err error, kind Kind) bool {
	var st *Status
	if errors.As(err, &st) {
		return st.Kind == kind
	}
	return false
}
