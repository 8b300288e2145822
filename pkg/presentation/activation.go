package presentation

import (
	"github.com/go-drift/present/pkg/errors"
)

// maxActivationPasses bounds how often callbacks may invalidate a flush.
const maxActivationPasses = 32

// flushActivation recomputes activation and visibility until no callback
// mutates the stack any more. Calls made while a flush is running only mark
// the state dirty; the running flush picks the change up.
func (p *Presenter) flushActivation() {
	if p.activating {
		p.dirty = true
		return
	}
	p.activating = true
	defer func() { p.activating = false }()

	for pass := 0; pass < maxActivationPasses; pass++ {
		p.dirty = false
		p.applyActivation()
		if !p.dirty {
			return
		}
	}
	p.log.Info("activation did not settle", "passes", maxActivationPasses)
}

// barrier returns the topmost node that blocks activation below it: a live
// Modal or Exclusive node that is presented or still loading.
func (p *Presenter) barrier() (*node, int) {
	nodes := p.stack.nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.options.isBarrier() && (n.eligible() || n.state == StateInitialized) {
			return n, i
		}
	}
	return nil, -1
}

// cover returns the topmost presented Exclusive node, which hides what lies
// beneath it.
func (p *Presenter) cover() (*node, int) {
	nodes := p.stack.nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.options.Has(Exclusive) && n.eligible() {
			return n, i
		}
	}
	return nil, -1
}

// desiredActivation computes which eligible nodes should be active.
//
// Below the barrier only the barrier's ancestors may stay active. Everywhere
// else a top-level node is active, and a child is active when its parent is
// and it is the topmost presented child of that parent.
func (p *Presenter) desiredActivation() map[*node]bool {
	nodes := p.stack.nodes
	barrier, barrierAt := p.barrier()

	topChild := make(map[*node]*node)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.eligible() && n.parent != nil && topChild[n.parent] == nil {
			topChild[n.parent] = n
		}
	}

	want := make(map[*node]bool, len(nodes))
	for i, n := range nodes {
		if !n.eligible() {
			continue
		}
		if barrier != nil && i < barrierAt && !n.isAncestorOf(barrier) {
			want[n] = false
			continue
		}
		if n.parent == nil {
			want[n] = true
		} else {
			want[n] = want[n.parent] && topChild[n.parent] == n
		}
	}
	return want
}

func (p *Presenter) applyActivation() {
	want := p.desiredActivation()
	version := p.stack.version
	if !p.deactivate(want) {
		return
	}
	// Then activate parents before children.
	for _, n := range p.stack.snapshot() {
		if p.stack.version != version {
			// A callback spliced the stack; the next pass starts over.
			return
		}
		if n.state != StatePresented || !want[n] {
			continue
		}
		if n.parent != nil && n.parent.state != StateActive {
			continue
		}
		p.setState(n, StateActive)
		if c := n.caps.activate; c != nil {
			_ = p.invoke(n, "presentation.OnActivate", c.OnActivate)
		}
	}
	p.applyVisibility()
}

// deactivate moves every active node that want does not keep active back to
// Presented, topmost first, so a node losing focus always hears about it
// before another one gains it. It reports false if a callback spliced the
// stack before it finished.
func (p *Presenter) deactivate(want map[*node]bool) bool {
	version := p.stack.version
	nodes := p.stack.snapshot()
	for i := len(nodes) - 1; i >= 0; i-- {
		if p.stack.version != version {
			return false
		}
		n := nodes[i]
		if n.state != StateActive || want[n] {
			continue
		}
		p.setState(n, StatePresented)
		if c := n.caps.deactivate; c != nil {
			_ = p.invoke(n, "presentation.OnDeactivate", c.OnDeactivate)
		}
	}
	return p.stack.version == version
}

// preempt runs once a new node is inserted and before it is constructed.
// Competing nodes lose activation first, also when the present comes from
// inside an activation callback and the running flush has not got there.
func (p *Presenter) preempt() {
	if !p.activating {
		p.flushActivation()
		return
	}
	p.deactivate(p.desiredActivation())
	p.dirty = true
}

func (p *Presenter) applyVisibility() {
	cov, covAt := p.cover()
	for i, n := range p.stack.snapshot() {
		if !n.eligible() {
			continue
		}
		// The index is stale if a callback spliced the stack; the next pass
		// corrects it.
		visible := cov == nil || i >= covAt || n.isAncestorOf(cov)
		if n.visible == visible {
			continue
		}
		n.visible = visible
		if v, ok := n.view.(Visibility); ok {
			err := errors.Guard("presentation.SetVisible", func() error {
				v.SetVisible(visible)
				return nil
			})
			if err != nil {
				p.report(n, "presentation.SetVisible", errors.KindLifecycle, err)
			}
		}
	}
}
