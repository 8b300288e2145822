package presentation

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/go-drift/present/pkg/errors"
)

// DefaultPopupLayer is the z-order offset applied to Popup views.
const DefaultPopupLayer = 1000

// DefaultQueueSize is the capacity of the dispatch queue.
const DefaultQueueSize = 64

// TimerPolicy decides which nodes accumulate timer time on Tick.
type TimerPolicy int

const (
	// TimersPauseWhenInactive advances timers of Active nodes only.
	TimersPauseWhenInactive TimerPolicy = iota
	// TimersRunWhilePresented advances timers of Presented and Active nodes.
	TimersRunWhilePresented
)

func (p TimerPolicy) String() string {
	switch p {
	case TimersRunWhilePresented:
		return "run-while-presented"
	default:
		return "pause-when-inactive"
	}
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the logger. Node transitions log at V(1).
func WithLogger(log logr.Logger) Option {
	return func(p *Presenter) { p.log = log }
}

// WithErrorHandler sets the handler that receives reported errors. The
// default is an errors.LogHandler on the presenter's logger.
func WithErrorHandler(h errors.ErrorHandler) Option {
	return func(p *Presenter) { p.handler = h }
}

// WithControllerFactory replaces the registry as controller factory.
// Descriptors are still resolved through the registry.
func WithControllerFactory(f ControllerFactory) Option {
	return func(p *Presenter) { p.controllers = f }
}

// WithScopeProvider gives every node a service scope created from its
// parent's scope, or from root for top-level nodes.
func WithScopeProvider(sp ScopeProvider, root Scope) Option {
	return func(p *Presenter) {
		p.scopes = sp
		p.rootScope = root
	}
}

// WithTimerPolicy sets the timer accumulation policy.
func WithTimerPolicy(tp TimerPolicy) Option {
	return func(p *Presenter) { p.timerPolicy = tp }
}

// WithPopupLayer sets the z-order offset for Popup views.
func WithPopupLayer(layer int) Option {
	return func(p *Presenter) { p.popupLayer = layer }
}

// WithContext sets the parent context of every view load.
func WithContext(ctx context.Context) Option {
	return func(p *Presenter) { p.baseCtx = ctx }
}

// WithQueueSize sets the dispatch queue capacity.
func WithQueueSize(n int) Option {
	return func(p *Presenter) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// Presenter owns the presentation stack. It accepts Present and Dismiss
// requests, serializes them against in-flight loads, recomputes activation
// and routes commands.
//
// A Presenter is driven from a single goroutine: every method except Post
// must be called from it, and controller callbacks run on it. View loads run
// on their own goroutines and hand their results back through the dispatch
// queue, which Pump, Settle, Tick and Run drain.
type Presenter struct {
	session     uuid.UUID
	log         logr.Logger
	handler     errors.ErrorHandler
	registry    *Registry
	controllers ControllerFactory
	views       ViewFactory
	scopes      ScopeProvider
	rootScope   Scope
	timerPolicy TimerPolicy
	popupLayer  int

	stack  stack
	nextID uint64

	baseCtx   context.Context
	cancel    context.CancelFunc
	queueSize int
	queue     chan func()
	closedCh  chan struct{}
	inflight  int

	// postMu is held shared by Post and exclusively by Close once closedCh
	// is closed, so no send can land in the queue after the final drain.
	postMu sync.RWMutex

	// ops counts nested operations; activation is flushed when it drops to zero.
	ops        int
	dirty      bool
	activating bool
	closed     bool
}

// New creates a presenter that resolves descriptors in reg and loads views
// with views.
func New(reg *Registry, views ViewFactory, opts ...Option) *Presenter {
	p := &Presenter{
		session:     uuid.New(),
		registry:    reg,
		controllers: reg,
		views:       views,
		popupLayer:  DefaultPopupLayer,
		queueSize:   DefaultQueueSize,
		baseCtx:     context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithValues("session", p.session.String())
	if p.handler == nil {
		p.handler = &errors.LogHandler{Logger: p.log}
	}
	p.baseCtx, p.cancel = context.WithCancel(p.baseCtx)
	p.queue = make(chan func(), p.queueSize)
	p.closedCh = make(chan struct{})
	return p
}

// Session returns the presenter's session id, attached to every log line.
func (p *Presenter) Session() uuid.UUID { return p.session }

// Len returns the number of nodes in the stack.
func (p *Presenter) Len() int { return p.stack.len() }

// InFlight returns the number of view loads not yet applied.
func (p *Presenter) InFlight() int { return p.inflight }

// Present presents a top-level node. Child in opts is ignored without a
// parent.
func (p *Presenter) Present(name string, opts Options, args any) (*Handle, error) {
	return p.present(nil, name, opts, args)
}

// PresentChild presents a node whose lifetime is bound to parent.
func (p *Presenter) PresentChild(parent *Handle, name string, opts Options, args any) (*Handle, error) {
	if parent == nil || parent.n.presenter != p {
		return nil, &errors.PresentError{
			Op:   "presentation.PresentChild",
			Kind: errors.KindInvalidOperation,
			Err:  errors.ErrInvalidOperation,
		}
	}
	return p.present(parent.n, name, opts|Child, args)
}

// Dismiss dismisses the node behind h with result. Dismissing a node that
// is already torn down does nothing.
func (p *Presenter) Dismiss(h *Handle, result any) {
	if h == nil || h.n.presenter != p {
		return
	}
	p.dismissNode(h.n, result)
}

// DismissAll tears down every node, topmost first.
func (p *Presenter) DismissAll() {
	p.begin()
	defer p.end()
	roots := p.stack.children(nil)
	for i := len(roots) - 1; i >= 0; i-- {
		p.teardown(roots[i], nil, nil)
	}
}

// Top returns the handle of the topmost active node, nil if none.
func (p *Presenter) Top() *Handle {
	if n := p.stack.topActive(); n != nil {
		return n.handle
	}
	return nil
}

// Tick drains the dispatch queue and advances node timers by dt according
// to the timer policy.
func (p *Presenter) Tick(dt time.Duration) {
	p.Pump()
	p.begin()
	defer p.end()
	for _, n := range p.stack.snapshot() {
		if !p.accumulates(n) {
			continue
		}
		if err := n.timers.Advance(dt); err != nil {
			p.fault(n, "presentation.Timer", errors.KindTimer, err)
		}
	}
}

func (p *Presenter) accumulates(n *node) bool {
	switch p.timerPolicy {
	case TimersRunWhilePresented:
		return n.eligible()
	default:
		return n.state == StateActive
	}
}

// Settle drains the dispatch queue until no view load is in flight or ctx
// is done.
func (p *Presenter) Settle(ctx context.Context) error {
	for p.inflight > 0 {
		select {
		case fn := <-p.queue:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.Pump()
	return nil
}

// Close tears down every node, cancels pending loads and waits for them to
// return. Later Present calls fail with errors.ErrClosed.
func (p *Presenter) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.DismissAll()
	p.cancel()
	err := p.Settle(ctx)
	close(p.closedCh)
	// Wait out posts that raced the close, then run what they queued so
	// late views are still destroyed.
	p.postMu.Lock()
	p.postMu.Unlock()
	p.Pump()
	return err
}

// NodeInfo is a read-only view of one stack entry.
type NodeInfo struct {
	ID      uint64
	Name    string
	Parent  uint64
	Depth   int
	Options Options
	State   State
	Visible bool
	Loading bool
	Timers  int
}

// Snapshot lists the stack bottom first.
func (p *Presenter) Snapshot() []NodeInfo {
	out := make([]NodeInfo, 0, p.stack.len())
	for _, n := range p.stack.nodes {
		info := NodeInfo{
			ID:      n.id,
			Name:    n.name,
			Depth:   n.depth,
			Options: n.options,
			State:   n.state,
			Visible: n.visible,
			Loading: n.loading(),
			Timers:  n.timers.Len(),
		}
		if n.parent != nil {
			info.Parent = n.parent.id
		}
		out = append(out, info)
	}
	return out
}

func (p *Presenter) begin() { p.ops++ }

func (p *Presenter) end() {
	p.ops--
	if p.ops == 0 && p.dirty {
		p.flushActivation()
	}
}

func (p *Presenter) setState(n *node, s State) {
	if n.state == s {
		return
	}
	n.log.V(1).Info("state", "from", n.state.String(), "to", s.String())
	n.state = s
	p.dirty = true
}

func (p *Presenter) invalid(op string, err error) error {
	return &errors.PresentError{Op: op, Kind: errors.KindInvalidOperation, Err: err}
}

func (p *Presenter) present(parent *node, name string, opts Options, args any) (*Handle, error) {
	const op = "presentation.Present"
	if p.closed {
		return nil, p.invalid(op, errors.ErrClosed)
	}
	if parent != nil && !parent.state.Live() {
		return nil, parent.invalid(op)
	}
	desc, ok := p.registry.Lookup(name)
	if !ok {
		err := &errors.PresentError{Op: op, Kind: errors.KindConstruction, Name: name, Err: errors.ErrUnknownDescriptor}
		errors.ReportTo(p.handler, err)
		return nil, err
	}
	opts |= desc.Options
	if parent == nil {
		opts &^= Child
	} else {
		opts |= Child
	}

	p.begin()
	defer p.end()

	p.applyPlacement(parent, desc, opts)
	if parent != nil && !parent.state.Live() {
		// Torn down by the placement policy.
		return nil, parent.invalid(op)
	}

	n := p.newNode(parent, desc, opts)
	zorder := p.stack.insert(n)
	p.dirty = true
	n.log.V(1).Info("push", "options", opts.String(), "parent", parentID(parent))

	p.preempt()
	if n.state != StateInitialized {
		return n.handle, nil
	}

	if err := p.construct(n, args); err != nil {
		return n.handle, err
	}
	if n.state != StateInitialized {
		return n.handle, nil
	}

	if opts.Has(Popup) {
		zorder += p.popupLayer
	}
	req := ViewRequest{
		NodeID:   n.id,
		Name:     n.name,
		Resource: desc.Resource,
		ZOrder:   zorder,
		Options:  opts,
		Args:     args,
	}
	if parent != nil {
		req.Parent = parent.view
	}
	p.startLoad(n, req)
	return n.handle, nil
}

// applyPlacement runs the Singleton, DismissAll and DismissCurrent policies.
func (p *Presenter) applyPlacement(parent *node, desc *Descriptor, opts Options) {
	if opts.Has(Singleton) {
		for _, x := range p.stack.snapshot() {
			if x.desc == desc && x.state.Live() {
				p.teardown(x, nil, nil)
			}
		}
	}
	switch {
	case opts.Has(DismissAll):
		siblings := p.stack.children(parent)
		for i := len(siblings) - 1; i >= 0; i-- {
			p.teardown(siblings[i], nil, nil)
		}
	case opts.Has(DismissCurrent):
		siblings := p.stack.children(parent)
		for i := len(siblings) - 1; i >= 0; i-- {
			if siblings[i].state.Live() {
				p.teardown(siblings[i], nil, nil)
				break
			}
		}
	}
}

func (p *Presenter) newNode(parent *node, desc *Descriptor, opts Options) *node {
	p.nextID++
	n := &node{
		presenter: p,
		id:        p.nextID,
		name:      desc.Name,
		desc:      desc,
		options:   opts,
		state:     StateInitialized,
		parent:    parent,
	}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	n.log = p.log.WithValues("node", n.id, "name", n.name)
	n.handle = newHandle(n)
	return n
}

// construct creates the scope and the controller. On failure the node is
// torn down before the error is returned.
func (p *Presenter) construct(n *node, args any) error {
	const op = "presentation.Construct"
	if p.scopes != nil {
		parentScope := p.rootScope
		if n.parent != nil {
			parentScope = n.parent.scope
		}
		var scope Scope
		err := errors.Guard(op, func() error {
			var err error
			scope, err = p.scopes.CreateScope(parentScope)
			return err
		})
		if err != nil {
			return p.failConstruction(n, op, err)
		}
		n.scope = scope
	}

	var ctrl Controller
	err := errors.Guard(op, func() error {
		var err error
		ctrl, err = p.controllers.Create(n.desc, n, args)
		return err
	})
	if err != nil {
		return p.failConstruction(n, op, err)
	}
	if n.state != StateInitialized {
		// Dismissed from inside its own constructor.
		p.destroyController(n, ctrl)
		return nil
	}
	n.controller = ctrl
	n.caps = capabilitiesOf(ctrl)
	return nil
}

func (p *Presenter) failConstruction(n *node, op string, err error) error {
	kind := errors.KindConstruction
	if _, ok := err.(*errors.PanicError); ok {
		kind = errors.KindPanic
	}
	perr := &errors.PresentError{Op: op, Kind: kind, NodeID: n.id, Name: n.name, Err: err}
	errors.ReportTo(p.handler, perr)
	p.teardown(n, nil, perr)
	return perr
}

func parentID(n *node) uint64 {
	if n == nil {
		return 0
	}
	return n.id
}
