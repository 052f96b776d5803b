// Package tannerr defines the error taxonomy shared by every layer of the
// index: store, engines, and the IndexCore façade all return errors tagged
// with one of these kinds so callers can dispatch on them with Is.
package tannerr

import "fmt"

// Kind classifies an error without pinning it to a single call site.
type Kind int

const (
	// Unknown is the zero value; never returned by this package's
	// constructors, only possible if a caller builds an Error by hand.
	Unknown Kind = iota
	InvalidArgument
	AlreadyExists
	NotFound
	ResourceExhausted
	Unavailable
	IO
	FormatMismatch
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case AlreadyExists:
		return "already_exists"
	case NotFound:
		return "not_found"
	case ResourceExhausted:
		return "resource_exhausted"
	case Unavailable:
		return "unavailable"
	case IO:
		return "io"
	case FormatMismatch:
		return "format_mismatch"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error. It wraps an optional underlying cause so
// %w-style chains keep working with errors.As and this package's Is.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Constructors, one per kind, mirroring the spec's taxonomy.

func NewInvalidArgument(format string, args ...interface{}) *Error {
	return newf(InvalidArgument, format, args...)
}

func NewAlreadyExists(format string, args ...interface{}) *Error {
	return newf(AlreadyExists, format, args...)
}

func NewNotFound(format string, args ...interface{}) *Error {
	return newf(NotFound, format, args...)
}

func NewResourceExhausted(format string, args ...interface{}) *Error {
	return newf(ResourceExhausted, format, args...)
}

func NewUnavailable(format string, args ...interface{}) *Error {
	return newf(Unavailable, format, args...)
}

func NewIO(err error, format string, args ...interface{}) *Error {
	e := newf(IO, format, args...)
	e.Err = err
	return e
}

func NewFormatMismatch(format string, args ...interface{}) *Error {
	return newf(FormatMismatch, format, args...)
}

func NewInternal(format string, args ...interface{}) *Error {
	return newf(Internal, format, args...)
}

// Is reports whether err is a *Error of the given Kind. It does not walk
// the Unwrap chain beyond a single *Error — every constructor in this
// package returns a flat *Error, so that is always sufficient.
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == k
}

// KindOf returns the Kind of err, or Unknown if err is not a *Error.
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return Unknown
	}
	return e.Kind
}
