package presentation

import (
	"context"

	"github.com/go-drift/present/pkg/errors"
)

// Post schedules fn to run on the driver goroutine during the next Pump,
// Settle, Tick or Run. It is the only method safe to call from other
// goroutines. It returns false once the presenter is closed or fn is nil.
// Post blocks while the queue is full, so the driver goroutine itself must
// not post more than the queue holds between pumps.
func (p *Presenter) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	p.postMu.RLock()
	defer p.postMu.RUnlock()
	select {
	case <-p.closedCh:
		return false
	default:
	}
	select {
	case p.queue <- fn:
		return true
	case <-p.closedCh:
		return false
	}
}

// Pump runs every queued callback without blocking and returns how many ran.
func (p *Presenter) Pump() int {
	ran := 0
	for {
		select {
		case fn := <-p.queue:
			fn()
			ran++
		default:
			return ran
		}
	}
}

// startLoad requests the node's view on a new goroutine. The result comes
// back through the dispatch queue.
func (p *Presenter) startLoad(n *node, req ViewRequest) {
	ctx, cancel := context.WithCancel(p.baseCtx)
	op := &loadOp{cancel: cancel}
	n.load = op
	p.inflight++
	n.log.V(1).Info("load", "resource", req.Resource, "zorder", req.ZOrder)

	go func() {
		var view View
		err := errors.Guard("presentation.Load", func() error {
			var err error
			view, err = p.views.Load(ctx, req)
			return err
		})
		if !p.Post(func() { p.completeLoad(n, op, view, err) }) {
			// Presenter closed without waiting for us.
			cancel()
			if view != nil {
				_ = errors.Guard("presentation.DestroyView", func() error { return p.views.Destroy(view) })
			}
		}
	}()
}

// completeLoad is the single resumption point of a Present.
func (p *Presenter) completeLoad(n *node, op *loadOp, view View, err error) {
	p.inflight--
	op.cancel()

	if op.superseded || n.load != op || n.state != StateInitialized {
		// A dismiss won the race; nothing of this load may survive.
		if view != nil {
			p.destroyView(n, view)
		}
		return
	}
	n.load = nil

	p.begin()
	defer p.end()

	if err != nil {
		kind := errors.KindLoad
		if _, ok := err.(*errors.PanicError); ok {
			kind = errors.KindPanic
		}
		perr := &errors.PresentError{Op: "presentation.Load", Kind: kind, NodeID: n.id, Name: n.name, Err: err}
		errors.ReportTo(p.handler, perr)
		p.teardown(n, nil, perr)
		return
	}

	n.view = view
	p.setState(n, StatePresented)
	n.handle.markPresented()

	if c := n.caps.present; c != nil {
		if err := p.invoke(n, "presentation.OnPresent", c.OnPresent); err != nil {
			p.teardown(n, nil, nil)
		}
	}
}
