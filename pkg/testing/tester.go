package testing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap/zaptest"

	presenterrors "github.com/go-drift/present/pkg/errors"
	"github.com/go-drift/present/pkg/presentation"
	"github.com/go-drift/present/pkg/timers"
)

// DefaultSettleTimeout bounds Settle and Cleanup.
const DefaultSettleTimeout = 2 * time.Second

// ErrSettleTimeout is returned when loads are still in flight after the
// settle timeout.
var ErrSettleTimeout = errors.New("Settle timed out: view loads did not finish")

// PresenterTester drives a presenter against in-memory factories. It is the
// driver goroutine: call its methods from the test goroutine only.
type PresenterTester struct {
	t         testing.TB
	registry  *presentation.Registry
	views     *FakeViews
	recorder  *Recorder
	handler   *ErrorCollector
	clock     *FakeClock
	watch     *timers.Stopwatch
	presenter *presentation.Presenter
}

// NewPresenterTester creates a tester whose presenter logs to t and closes
// when the test ends. Options are applied after the tester's defaults.
func NewPresenterTester(t testing.TB, opts ...presentation.Option) *PresenterTester {
	t.Helper()
	clk := NewFakeClock()
	pt := &PresenterTester{
		t:        t,
		registry: presentation.NewRegistry(),
		views:    NewFakeViews(),
		recorder: NewRecorder(),
		handler:  &ErrorCollector{},
		clock:    clk,
		watch:    timers.NewStopwatch(clk),
	}
	defaults := []presentation.Option{
		presentation.WithLogger(zapr.NewLogger(zaptest.NewLogger(t))),
		presentation.WithErrorHandler(pt.handler),
	}
	pt.presenter = presentation.New(pt.registry, pt.views, append(defaults, opts...)...)
	t.Cleanup(pt.Cleanup)
	return pt
}

// Cleanup closes the presenter, waiting for held loads to be cancelled.
func (pt *PresenterTester) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultSettleTimeout)
	defer cancel()
	if err := pt.presenter.Close(ctx); err != nil {
		pt.t.Errorf("close presenter: %v", err)
	}
}

// Presenter returns the presenter under test.
func (pt *PresenterTester) Presenter() *presentation.Presenter { return pt.presenter }

// Registry returns the descriptor registry.
func (pt *PresenterTester) Registry() *presentation.Registry { return pt.registry }

// Views returns the fake view factory.
func (pt *PresenterTester) Views() *FakeViews { return pt.views }

// Recorder returns the lifecycle recorder.
func (pt *PresenterTester) Recorder() *Recorder { return pt.recorder }

// Errors returns the errors reported so far.
func (pt *PresenterTester) Errors() *ErrorCollector { return pt.handler }

// Clock returns the fake clock Advance moves.
func (pt *PresenterTester) Clock() *FakeClock { return pt.clock }

// Register adds a recording descriptor.
func (pt *PresenterTester) Register(name string, b Behavior, opts ...presentation.DescriptorOption) *presentation.Descriptor {
	return Register(pt.registry, pt.recorder, name, b, opts...)
}

// Present presents a top-level node and fails the test on error.
func (pt *PresenterTester) Present(name string, opts presentation.Options, args any) *presentation.Handle {
	pt.t.Helper()
	h, err := pt.presenter.Present(name, opts, args)
	if err != nil {
		pt.t.Fatalf("Present(%q): %v", name, err)
	}
	return h
}

// PresentChild presents a child node and fails the test on error.
func (pt *PresenterTester) PresentChild(parent *presentation.Handle, name string, opts presentation.Options, args any) *presentation.Handle {
	pt.t.Helper()
	h, err := pt.presenter.PresentChild(parent, name, opts, args)
	if err != nil {
		pt.t.Fatalf("PresentChild(%q): %v", name, err)
	}
	return h
}

// Settle applies every finished view load and fails the test if loads are
// still in flight after DefaultSettleTimeout.
func (pt *PresenterTester) Settle() {
	pt.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultSettleTimeout)
	defer cancel()
	if err := pt.presenter.Settle(ctx); err != nil {
		pt.t.Fatalf("%v (%d in flight)", ErrSettleTimeout, pt.presenter.InFlight())
	}
}

// Advance moves the fake clock by d and ticks the presenter with the
// elapsed time.
func (pt *PresenterTester) Advance(d time.Duration) {
	pt.clock.Advance(d)
	pt.presenter.Tick(pt.watch.Lap())
}

// Find evaluates finder against the current stack.
func (pt *PresenterTester) Find(finder Finder) FinderResult {
	return Find(pt.presenter.Snapshot(), finder)
}

// Active returns the names of the active nodes, bottom first.
func (pt *PresenterTester) Active() []string {
	return pt.Find(Active()).Names()
}

// Stack returns the names of all nodes, bottom first.
func (pt *PresenterTester) Stack() []string {
	return pt.Find(ByPredicate(func(presentation.NodeInfo) bool { return true })).Names()
}

// Events returns the recorded lifecycle events.
func (pt *PresenterTester) Events() []string { return pt.recorder.Events() }

// ResetEvents forgets recorded lifecycle events.
func (pt *PresenterTester) ResetEvents() { pt.recorder.Reset() }

// Controller returns the recording controller behind h, nil if it was never
// built.
func (pt *PresenterTester) Controller(h *presentation.Handle) *Controller {
	return pt.recorder.Controller(h.ID())
}

// View returns the fake view loaded for h, nil if it never loaded.
func (pt *PresenterTester) View(h *presentation.Handle) *FakeView {
	return pt.views.View(h.ID())
}

// CaptureSnapshot captures the current stack.
func (pt *PresenterTester) CaptureSnapshot() *Snapshot {
	return CaptureSnapshot(pt.presenter)
}

// ErrorCollector is an errors.ErrorHandler that keeps what it receives.
type ErrorCollector struct {
	mu     sync.Mutex
	errs   []*presenterrors.PresentError
	panics []*presenterrors.PanicError
}

// HandleError implements errors.ErrorHandler.
func (c *ErrorCollector) HandleError(err *presenterrors.PresentError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// HandlePanic implements errors.ErrorHandler.
func (c *ErrorCollector) HandlePanic(err *presenterrors.PanicError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panics = append(c.panics, err)
}

// Errors returns the reported errors in order.
func (c *ErrorCollector) Errors() []*presenterrors.PresentError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*presenterrors.PresentError(nil), c.errs...)
}

// Panics returns the reported panics in order.
func (c *ErrorCollector) Panics() []*presenterrors.PanicError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*presenterrors.PanicError(nil), c.panics...)
}

// Kinds returns the kinds of the reported errors in order.
func (c *ErrorCollector) Kinds() []presenterrors.ErrorKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]presenterrors.ErrorKind, len(c.errs))
	for i, e := range c.errs {
		kinds[i] = e.Kind
	}
	return kinds
}
