// Package errors provides structured error handling for the presentation engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the engine. Compare with errors.Is.
var (
	// ErrInvalidOperation is returned when a caller operates on a node or
	// presenter that can no longer accept the request.
	ErrInvalidOperation = stderrors.New("invalid operation")

	// ErrCancelled settles a handle whose node was torn down before it was
	// ever presented.
	ErrCancelled = stderrors.New("presentation cancelled")

	// ErrUnknownDescriptor is returned when no descriptor is registered under
	// the requested name.
	ErrUnknownDescriptor = stderrors.New("unknown descriptor")

	// ErrClosed is returned by a presenter after Close.
	ErrClosed = stderrors.New("presenter closed")
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindConstruction indicates the controller or its scope could not be created.
	KindConstruction
	// KindLoad indicates the view factory failed or the load was cancelled.
	KindLoad
	// KindInvalidOperation indicates caller misuse.
	KindInvalidOperation
	// KindLifecycle indicates a lifecycle callback failed.
	KindLifecycle
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindTimer indicates a scheduled callback failed.
	KindTimer
)

func (k ErrorKind) String() string {
	switch k {
	case KindConstruction:
		return "construction"
	case KindLoad:
		return "load"
	case KindInvalidOperation:
		return "invalid-operation"
	case KindLifecycle:
		return "lifecycle"
	case KindPanic:
		return "panic"
	case KindTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// PresentError represents a structured error raised while presenting,
// running or tearing down a node.
type PresentError struct {
	// Op is the operation that failed (e.g., "presentation.OnActivate").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// NodeID is the id of the node involved, 0 if none.
	NodeID uint64
	// Name is the descriptor name of the node involved, if any.
	Name string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *PresentError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s [%s] node=%s#%d: %v", e.Op, e.Kind, e.Name, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *PresentError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "timers.fire").
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

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is reports whether err is a PresentError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var pe *PresentError
	for stderrors.As(err, &pe) {
		if pe.Kind == kind {
			return true
		}
		err = pe.Err
		pe = nil
	}
	return false
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *PresentError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
