// Package errors provides structured error reporting for listkit.
//
// Nothing on the list render path returns errors to the native surface. A
// broken invariant (an index that should resolve but does not, a content
// builder that panics) is reported through the global Handler and the caller
// degrades to placeholder content or a placeholder size. With DebugMode on,
// invariant violations panic instead so they surface during development.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindInvariant indicates a broken internal invariant, for example a
	// position that does not resolve to an item path.
	KindInvariant
	// KindMeasure indicates a failed size measurement.
	KindMeasure
	// KindBuild indicates a failing content-producing function.
	KindBuild
	// KindConfig indicates invalid preferences.
	KindConfig
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvariant:
		return "invariant"
	case KindMeasure:
		return "measure"
	case KindBuild:
		return "build"
	case KindConfig:
		return "config"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// ListError represents a structured error raised by the list engine.
type ListError struct {
	// Op is the operation that failed (e.g., "reuse.Dequeue").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Path is the item path involved, if any.
	Path any
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *ListError) Error() string {
	if e.Path != nil {
		return fmt.Sprintf("%s [%s] path=%v: %v", e.Op, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "reuse.build").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Sentinel errors shared across packages.
var (
	// ErrUnresolvedPosition is reported when a position requested by the
	// surface does not map to an item in the current snapshot.
	ErrUnresolvedPosition = errors.New("position does not resolve to an item")
	// ErrIllegalTransition is reported when a cell is moved between states
	// that are not adjacent in its lifecycle.
	ErrIllegalTransition = errors.New("illegal cell state transition")
	// ErrDuplicateID is reported when a snapshot repeats an identifier.
	ErrDuplicateID = errors.New("duplicate identifier in snapshot")
	// ErrInvalidConfig is the root of all preference validation errors.
	ErrInvalidConfig = errors.New("invalid preferences")
)

// Is reports whether any error in err's tree matches target.
// It forwards to the standard library so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Handler receives errors reported by listkit.
type Handler interface {
	// HandleError is called when an error occurs.
	HandleError(err *ListError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
