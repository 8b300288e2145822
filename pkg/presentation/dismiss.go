package presentation

import (
	"go.uber.org/multierr"

	"github.com/go-drift/present/pkg/errors"
)

// dismissNode is the public dismiss path: idempotent, and activation is
// recomputed once the whole cascade has finished.
func (p *Presenter) dismissNode(n *node, result any) {
	if !n.state.Live() {
		return
	}
	p.begin()
	defer p.end()
	p.teardown(n, result, nil)
}

// teardown dismisses n and every live descendant. Descendants go topmost
// first, so each child is gone before its own parent continues. A non-nil
// cause faults the result.
func (p *Presenter) teardown(n *node, result any, cause error) {
	if !n.state.Live() {
		return
	}
	p.begin()
	defer p.end()

	prev := n.state
	wasPresented := prev.Presented()
	if prev == StateInitialized {
		if op := n.load; op != nil {
			op.superseded = true
			op.cancel()
			n.load = nil
		}
		p.setState(n, StateDismissed)
	} else {
		p.setState(n, StateDismissing)
	}

	desc := p.stack.descendants(n)
	for i := len(desc) - 1; i >= 0; i-- {
		p.teardown(desc[i], nil, nil)
	}

	if wasPresented {
		if c := n.caps.deactivate; c != nil && prev == StateActive {
			_ = p.invoke(n, "presentation.OnDeactivate", c.OnDeactivate)
		}
		if c := n.caps.dismiss; c != nil {
			_ = p.invoke(n, "presentation.OnDismiss", c.OnDismiss)
		}
	}
	p.setState(n, StateDismissed)

	n.timers.Clear()
	if n.view != nil {
		p.destroyView(n, n.view)
		n.view = nil
	}
	n.visible = false
	if n.scope != nil {
		scope := n.scope
		n.scope = nil
		if err := errors.Guard("presentation.CloseScope", scope.Close); err != nil {
			p.report(n, "presentation.CloseScope", errors.KindLifecycle, err)
		}
	}
	if n.controller != nil {
		ctrl := n.controller
		n.controller = nil
		n.caps = capabilities{}
		p.destroyController(n, ctrl)
	}

	switch {
	case cause != nil:
		n.handle.settle(StatusFaulted, nil, multierr.Append(cause, n.faults))
	case n.faults != nil:
		n.handle.settle(StatusFaulted, nil, n.faults)
	case !wasPresented:
		n.handle.settle(StatusCancelled, nil, &errors.PresentError{
			Op:     "presentation.Load",
			Kind:   errors.KindLoad,
			NodeID: n.id,
			Name:   n.name,
			Err:    errors.ErrCancelled,
		})
	default:
		n.handle.settle(StatusSucceeded, result, nil)
	}

	p.stack.remove(n)
	p.setState(n, StateDisposed)
	n.log.V(1).Info("disposed", "status", n.handle.status.String())
}

// invoke runs a controller callback, converting panics, and records any
// failure against the node.
func (p *Presenter) invoke(n *node, op string, fn func() error) error {
	err := errors.Guard(op, fn)
	if err == nil {
		return nil
	}
	return p.fault(n, op, errors.KindLifecycle, err)
}

// fault reports err and accumulates it until the node's result settles.
func (p *Presenter) fault(n *node, op string, kind errors.ErrorKind, err error) error {
	var out error
	for _, e := range multierr.Errors(err) {
		perr := p.report(n, op, kind, e)
		n.faults = multierr.Append(n.faults, perr)
		out = multierr.Append(out, perr)
	}
	return out
}

func (p *Presenter) report(n *node, op string, kind errors.ErrorKind, err error) *errors.PresentError {
	if _, ok := err.(*errors.PanicError); ok {
		kind = errors.KindPanic
	}
	perr := &errors.PresentError{Op: op, Kind: kind, NodeID: n.id, Name: n.name, Err: err}
	errors.ReportTo(p.handler, perr)
	return perr
}

func (p *Presenter) destroyView(n *node, v View) {
	if err := errors.Guard("presentation.DestroyView", func() error { return p.views.Destroy(v) }); err != nil {
		p.report(n, "presentation.DestroyView", errors.KindLifecycle, err)
	}
}

func (p *Presenter) destroyController(n *node, c Controller) {
	if c == nil {
		return
	}
	if err := errors.Guard("presentation.DestroyController", func() error { return p.controllers.Destroy(c) }); err != nil {
		p.report(n, "presentation.DestroyController", errors.KindLifecycle, err)
	}
}
