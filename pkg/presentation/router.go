package presentation

import (
	"github.com/go-drift/present/pkg/errors"
)

// RouteResult is the outcome of routing a command.
type RouteResult int

const (
	// Unhandled means the command reached a root without a handler.
	Unhandled RouteResult = iota
	// Handled means a controller consumed the command.
	Handled
	// Swallowed means a Modal or Exclusive node stopped the command unhandled.
	Swallowed
)

func (r RouteResult) String() string {
	switch r {
	case Handled:
		return "handled"
	case Swallowed:
		return "swallowed"
	default:
		return "unhandled"
	}
}

// Route routes cmd and reports whether a controller handled it.
func (p *Presenter) Route(cmd any) bool {
	return p.RouteCommand(cmd) == Handled
}

// RouteCommand offers cmd to the topmost active node and then to each of its
// ancestors. The first CommandHandler that returns true ends routing. A Modal
// or Exclusive node ends routing even when it does not handle the command,
// so nodes behind it never see input meant for it. A handler that panics
// counts as not handling the command.
func (p *Presenter) RouteCommand(cmd any) RouteResult {
	p.begin()
	defer p.end()

	for n := p.stack.topActive(); n != nil; n = n.parent {
		if h := n.caps.commands; h != nil && n.state.Live() {
			handled := false
			err := errors.Guard("presentation.HandleCommand", func() error {
				handled = h.HandleCommand(cmd)
				return nil
			})
			if err != nil {
				p.fault(n, "presentation.HandleCommand", errors.KindLifecycle, err)
				handled = false
			}
			if handled {
				n.log.V(1).Info("command handled", "command", cmd)
				return Handled
			}
		}
		if n.options.isBarrier() {
			n.log.V(1).Info("command swallowed", "command", cmd)
			return Swallowed
		}
	}
	return Unhandled
}
