package errors

import (
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ReportTo sends err to h. A failure caused by a recovered panic goes to
// HandlePanic instead, which carries the stack captured where the panic was
// recovered. If err.Timestamp is zero, it is set to the current time.
func ReportTo(h ErrorHandler, err *PresentError) {
	if h == nil || err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if pe, ok := err.Err.(*PanicError); ok {
		ReportPanicTo(h, pe)
		return
	}
	h.HandleError(err)
}

// ReportPanicTo sends a panic error to h.
func ReportPanicTo(h ErrorHandler, err *PanicError) {
	if h == nil || err == nil {
		return
	}
	h.HandlePanic(err)
}

// Guard runs fn and converts a panic into a *PanicError. A regular error
// returned by fn is passed through unchanged. The panic is not reported;
// callers decide where it goes.
func Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(op, r)
		}
	}()
	return fn()
}

// NewPanicError builds a PanicError for a recovered value, capturing the
// current stack.
func NewPanicError(op string, value any) *PanicError {
	return &PanicError{
		Op:         op,
		Value:      value,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// CaptureStack returns the current call stack as a string.
// It skips the first few frames to exclude the CaptureStack call itself.
func CaptureStack() string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return sb.String()
}
