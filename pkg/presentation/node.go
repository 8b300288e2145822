package presentation

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/go-drift/present/pkg/errors"
	"github.com/go-drift/present/pkg/timers"
)

// Context is what a controller receives from the presenter. Its methods
// must be called on the driver goroutine.
type Context interface {
	// ID returns the node id, unique within the presenter.
	ID() uint64
	// Name returns the descriptor name.
	Name() string
	// Options returns the node's effective options.
	Options() Options
	// State returns the node's lifecycle state.
	State() State
	// IsActive reports whether the node is active.
	IsActive() bool
	// Handle returns the node's result handle.
	Handle() *Handle
	// Scope returns the node's service scope, nil if none.
	Scope() Scope
	// Logger returns a logger tagged with the node.
	Logger() logr.Logger

	// Dismiss dismisses the node. Repeated calls do nothing.
	Dismiss(result any)
	// Schedule runs fn once timeout has accumulated while the node is
	// eligible for timers.
	Schedule(fn func(), timeout time.Duration) (timers.ID, error)
	// CancelTimer cancels a scheduled callback.
	CancelTimer(id timers.ID) bool
	// Present presents another node. With Child set the new node is a child
	// of this one; otherwise it is top-level.
	Present(name string, opts Options, args any) (*Handle, error)
}

// capabilities caches the optional controller interfaces.
type capabilities struct {
	present    PresentListener
	activate   ActivateListener
	deactivate DeactivateListener
	dismiss    DismissListener
	commands   CommandHandler
}

func capabilitiesOf(c Controller) capabilities {
	var caps capabilities
	caps.present, _ = c.(PresentListener)
	caps.activate, _ = c.(ActivateListener)
	caps.deactivate, _ = c.(DeactivateListener)
	caps.dismiss, _ = c.(DismissListener)
	caps.commands, _ = c.(CommandHandler)
	return caps
}

// loadOp tracks an in-flight view load.
type loadOp struct {
	cancel context.CancelFunc
	// superseded is set when a dismiss wins the race with the load.
	superseded bool
}

// node is one presented unit: controller, view, scope, timers and result.
// Nodes reference their parent only; the stack owns ordering.
type node struct {
	presenter *Presenter
	id        uint64
	name      string
	desc      *Descriptor
	options   Options
	state     State
	parent    *node
	depth     int

	controller Controller
	caps       capabilities
	view       View
	scope      Scope
	visible    bool
	load       *loadOp
	timers     timers.Scheduler
	handle     *Handle

	// faults accumulates lifecycle errors until the result settles.
	faults error
	log    logr.Logger
}

func (n *node) ID() uint64          { return n.id }
func (n *node) Name() string        { return n.name }
func (n *node) Options() Options    { return n.options }
func (n *node) State() State        { return n.state }
func (n *node) IsActive() bool      { return n.state == StateActive }
func (n *node) Handle() *Handle     { return n.handle }
func (n *node) Scope() Scope        { return n.scope }
func (n *node) Logger() logr.Logger { return n.log }

func (n *node) Dismiss(result any) {
	n.presenter.dismissNode(n, result)
}

func (n *node) Schedule(fn func(), timeout time.Duration) (timers.ID, error) {
	if n.state >= StateDismissing {
		return 0, n.invalid("presentation.Schedule")
	}
	return n.timers.Schedule(fn, timeout), nil
}

func (n *node) CancelTimer(id timers.ID) bool {
	return n.timers.Cancel(id)
}

func (n *node) Present(name string, opts Options, args any) (*Handle, error) {
	if n.state >= StateDismissing {
		return nil, n.invalid("presentation.Present")
	}
	var parent *node
	if opts.Has(Child) {
		parent = n
	}
	return n.presenter.present(parent, name, opts, args)
}

func (n *node) invalid(op string) error {
	return &errors.PresentError{
		Op:     op,
		Kind:   errors.KindInvalidOperation,
		NodeID: n.id,
		Name:   n.name,
		Err:    errors.ErrInvalidOperation,
	}
}

// eligible reports whether the node takes part in activation.
func (n *node) eligible() bool {
	return n.state.Presented()
}

// loading reports whether the node is waiting for its view.
func (n *node) loading() bool {
	return n.state == StateInitialized && n.load != nil
}

// isAncestorOf reports whether n is a strict ancestor of other.
func (n *node) isAncestorOf(other *node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}
