package presentation

import (
	"context"
	stderrors "errors"
)

// ErrNotSettled is returned by Handle.Result before the handle settles.
var ErrNotSettled = stderrors.New("presentation: result not settled")

// Status is the settlement outcome of a Handle.
type Status int

const (
	// StatusPending means the node has not been torn down yet.
	StatusPending Status = iota
	// StatusSucceeded means the node was presented and dismissed normally.
	StatusSucceeded
	// StatusFaulted means construction, loading or a lifecycle callback failed.
	StatusFaulted
	// StatusCancelled means the node was torn down before it was presented.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFaulted:
		return "faulted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle is the result channel of one Present call.
//
// ID, Name, Presented, Done, Status, Result and Wait may be used from any
// goroutine. Dismiss, State and IsActive belong to the driver goroutine.
type Handle struct {
	n         *node
	id        uint64
	name      string
	presented chan struct{}
	done      chan struct{}

	// written once, before done is closed
	status Status
	value  any
	err    error
}

func newHandle(n *node) *Handle {
	return &Handle{
		n:         n,
		id:        n.id,
		name:      n.name,
		presented: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the node id.
func (h *Handle) ID() uint64 { return h.id }

// Name returns the descriptor name.
func (h *Handle) Name() string { return h.name }

// Presented is closed once the node's view has loaded.
func (h *Handle) Presented() <-chan struct{} { return h.presented }

// Done is closed once the node is torn down and the result settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Status returns the settlement outcome, StatusPending until Done closes.
func (h *Handle) Status() Status {
	select {
	case <-h.done:
		return h.status
	default:
		return StatusPending
	}
}

// Result returns the settled value and error. Cancelled handles return an
// error matching errors.ErrCancelled. Before settlement it returns
// ErrNotSettled.
func (h *Handle) Result() (any, error) {
	select {
	case <-h.done:
		return h.value, h.err
	default:
		return nil, ErrNotSettled
	}
}

// Wait blocks until the handle settles or ctx is done. It does not drive
// the presenter; the driver goroutine must keep pumping.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dismiss dismisses the node with result. Repeated calls do nothing.
func (h *Handle) Dismiss(result any) {
	h.n.presenter.dismissNode(h.n, result)
}

// State returns the node's lifecycle state.
func (h *Handle) State() State { return h.n.state }

// IsActive reports whether the node is active.
func (h *Handle) IsActive() bool { return h.n.state == StateActive }

func (h *Handle) markPresented() {
	select {
	case <-h.presented:
	default:
		close(h.presented)
	}
}

// settle records the outcome once; later calls are ignored.
func (h *Handle) settle(status Status, value any, err error) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	h.status = status
	h.value = value
	h.err = err
	close(h.done)
	return true
}
