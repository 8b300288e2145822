package errors

import (
	"github.com/go-logr/logr"
)

// LogHandler is an ErrorHandler that writes errors to a logr.Logger.
// The zero value discards everything.
type LogHandler struct {
	// Logger receives the errors. A zero Logger discards.
	Logger logr.Logger
	// Verbose adds stack traces to the log entries.
	Verbose bool
}

// HandleError logs a PresentError.
func (h *LogHandler) HandleError(err *PresentError) {
	if err == nil {
		return
	}
	kv := []any{"op", err.Op, "kind", err.Kind.String()}
	if err.NodeID != 0 {
		kv = append(kv, "node", err.NodeID, "name", err.Name)
	}
	if h.Verbose && err.StackTrace != "" {
		kv = append(kv, "stack", err.StackTrace)
	}
	h.Logger.Error(err.Err, "presentation error", kv...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	kv := []any{"op", err.Op, "value", err.Value}
	if h.Verbose && err.StackTrace != "" {
		kv = append(kv, "stack", err.StackTrace)
	}
	h.Logger.Error(err, "recovered panic", kv...)
}
