package presentation_test

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/go-drift/present/pkg/errors"
	"github.com/go-drift/present/pkg/presentation"
	presenttest "github.com/go-drift/present/pkg/testing"
)

func TestExclusiveDeactivatesBeforeActivating(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("B", presenttest.Behavior{})

	a := pt.Present("A", presentation.None, nil)
	pt.Settle()
	require.True(t, a.IsActive())
	pt.ResetEvents()

	b := pt.Present("B", presentation.Exclusive, nil)
	pt.Settle()

	assert.Equal(t, []string{"A.deactivate", "B.create", "B.present", "B.activate"}, pt.Events())
	assert.Equal(t, []string{"B"}, pt.Active())
	assert.False(t, a.IsActive())
	assert.True(t, b.IsActive())
	assert.Equal(t, presentation.StatePresented, a.State())
	assert.False(t, pt.View(a).Visible())
	assert.True(t, pt.View(b).Visible())
}

func TestChildDismissedBeforeParent(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("C", presenttest.Behavior{})

	a := pt.Present("A", presentation.None, nil)
	c := pt.PresentChild(a, "C", presentation.None, nil)
	pt.Settle()
	require.Equal(t, []string{"A", "C"}, pt.Active())
	pt.ResetEvents()

	a.Dismiss("bye")

	assert.Equal(t, []string{
		"C.deactivate", "C.dismiss", "C.dispose",
		"A.deactivate", "A.dismiss", "A.dispose",
	}, pt.Events())
	assert.Equal(t, 1, pt.Recorder().Count("C.dismiss"))
	assert.Equal(t, presentation.StatusSucceeded, c.Status())
	v, err := a.Result()
	require.NoError(t, err)
	assert.Equal(t, "bye", v)
	assert.Zero(t, pt.Presenter().Len())
}

func TestDismissWhileLoading(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("B", presenttest.Behavior{})

	a := pt.Present("A", presentation.None, nil)
	pt.Settle()

	pt.Views().Hold("B")
	b := pt.Present("B", presentation.None, nil)
	require.Equal(t, presentation.StateInitialized, b.State())
	assert.True(t, pt.Find(presenttest.ByName("B")).First().Loading)

	b.Dismiss("ignored")
	pt.Views().Release("B")
	pt.Settle()

	assert.True(t, a.IsActive())
	assert.Equal(t, presentation.StatusCancelled, b.Status())
	_, err := b.Result()
	assert.ErrorIs(t, err, errors.ErrCancelled)
	assert.True(t, errors.Is(err, errors.KindLoad))
	assert.NotContains(t, pt.Events(), "B.present")
	assert.NotContains(t, pt.Events(), "B.activate")
	assert.Equal(t, []string{"A"}, pt.Stack())

	select {
	case <-b.Presented():
		t.Fatal("B must never be presented")
	default:
	}
	if v := pt.View(b); v != nil {
		assert.True(t, v.Destroyed())
	}
}

func TestViewArrivingAfterDismissIsDestroyed(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("B", presenttest.Behavior{})

	a := pt.Present("A", presentation.None, nil)
	pt.Settle()

	pt.Views().Hold("B")
	pt.Views().IgnoreCancel("B")
	b := pt.Present("B", presentation.None, nil)
	b.Dismiss(nil)
	assert.Equal(t, presentation.StatusCancelled, b.Status())

	pt.Views().Release("B")
	pt.Settle()

	v := pt.View(b)
	require.NotNil(t, v)
	assert.True(t, v.Destroyed())
	assert.Equal(t, []*presenttest.FakeView{v}, pt.Views().Destroyed())
	assert.Zero(t, pt.Views().Cancelled())
	assert.Equal(t, presentation.StatusCancelled, b.Status())
	assert.True(t, a.IsActive())
	assert.Equal(t, 1, pt.Presenter().Len())
	assert.NotContains(t, pt.Events(), "B.present")
}

func TestTimerFiresOnSecondTick(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	fired := 0
	pt.Register("A", presenttest.Behavior{
		Present: func(c *presenttest.Controller) error {
			_, err := c.Ctx.Schedule(func() { fired++ }, 2*time.Second)
			return err
		},
	})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()
	require.True(t, h.IsActive())

	p := pt.Presenter()
	p.Tick(time.Second)
	assert.Equal(t, 0, fired)
	p.Tick(time.Second)
	assert.Equal(t, 1, fired)
	p.Tick(5 * time.Second)
	assert.Equal(t, 1, fired)
}

func TestRoutingStopsAtTopmostModal(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("Base", presenttest.Behavior{
		Command: func(*presenttest.Controller, any) bool { return true },
	})
	pt.Register("M1", presenttest.Behavior{
		Command: func(*presenttest.Controller, any) bool { return true },
	}, presentation.WithOptions(presentation.Modal))
	pt.Register("M2", presenttest.Behavior{}, presentation.WithOptions(presentation.Modal))

	pt.Present("Base", presentation.None, nil)
	pt.Present("M1", presentation.None, nil)
	pt.Present("M2", presentation.None, nil)
	pt.Settle()
	require.Equal(t, []string{"M2"}, pt.Active())
	pt.ResetEvents()

	assert.Equal(t, presentation.Swallowed, pt.Presenter().RouteCommand("back"))
	assert.False(t, pt.Presenter().Route("back"))
	assert.Equal(t, []string{"M2.command(back)", "M2.command(back)"}, pt.Events())
}

func TestRouteCommand_WalksParentChain(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("Shell", presenttest.Behavior{
		Command: func(_ *presenttest.Controller, cmd any) bool { return cmd == "back" },
	})
	pt.Register("Tab", presenttest.Behavior{})

	shell := pt.Present("Shell", presentation.None, nil)
	pt.PresentChild(shell, "Tab", presentation.None, nil)
	pt.Settle()
	pt.ResetEvents()

	assert.Equal(t, presentation.Handled, pt.Presenter().RouteCommand("back"))
	assert.Equal(t, []string{"Tab.command(back)", "Shell.command(back)"}, pt.Events())
	assert.Equal(t, presentation.Unhandled, pt.Presenter().RouteCommand("menu"))
}

func TestRouteCommand_HandlerPanicCountsAsUnhandled(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{
		Command: func(*presenttest.Controller, any) bool { panic("boom") },
	})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()

	assert.False(t, pt.Presenter().Route("x"))
	assert.Empty(t, pt.Errors().Kinds())
	require.Len(t, pt.Errors().Panics(), 1)
	assert.Equal(t, "presentation.HandleCommand", pt.Errors().Panics()[0].Op)

	h.Dismiss(nil)
	assert.Equal(t, presentation.StatusFaulted, h.Status())
}

func TestRouteCommand_Empty(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	assert.Equal(t, presentation.Unhandled, pt.Presenter().RouteCommand("x"))
	assert.Nil(t, pt.Presenter().Top())
}

func TestPresentThenDismissImmediately(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})

	h := pt.Present("A", presentation.None, nil)
	h.Dismiss(nil)
	pt.Settle()

	assert.Equal(t, presentation.StatusCancelled, h.Status())
	assert.Equal(t, presentation.StateDisposed, h.State())
	assert.Zero(t, pt.Presenter().Len())
	assert.Zero(t, pt.Presenter().InFlight())
	assert.Equal(t, []string{"A.create", "A.dispose"}, pt.Events())
	// Unheld loads never look at the context, so the view always arrives.
	v := pt.View(h)
	require.NotNil(t, v)
	assert.True(t, v.Destroyed())
}

func TestDismiss_Idempotent(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()

	h.Dismiss(1)
	h.Dismiss(2)
	pt.Presenter().Dismiss(h, 3)
	pt.Controller(h).Ctx.Dismiss(4)

	assert.Equal(t, 1, pt.Recorder().Count("A.dismiss"))
	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestDismiss_ForeignHandleIgnored(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	other := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	other.Register("A", presenttest.Behavior{})

	h := other.Present("A", presentation.None, nil)
	other.Settle()

	pt.Presenter().Dismiss(h, nil)
	pt.Presenter().Dismiss(nil, nil)
	assert.True(t, h.IsActive())

	_, err := pt.Presenter().PresentChild(h, "A", presentation.None, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)
}

func TestContext_InvalidAfterDismiss(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()
	ctx := pt.Controller(h).Ctx
	h.Dismiss(nil)

	_, err := ctx.Present("A", presentation.None, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)
	assert.True(t, errors.Is(err, errors.KindInvalidOperation))

	_, err = ctx.Schedule(func() {}, time.Second)
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)

	_, err = pt.Presenter().PresentChild(h, "A", presentation.None, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)
}

func TestContext_PresentDuringDismissIsInvalid(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	var presentErr error
	pt.Register("A", presenttest.Behavior{
		Dismiss: func(c *presenttest.Controller) error {
			_, presentErr = c.Ctx.Present("A", presentation.None, nil)
			return nil
		},
	})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()
	h.Dismiss(nil)

	assert.ErrorIs(t, presentErr, errors.ErrInvalidOperation)
	assert.Zero(t, pt.Presenter().Len())
}

func TestPresent_UnknownDescriptor(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)

	h, err := pt.Presenter().Present("Missing", presentation.None, nil)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, errors.ErrUnknownDescriptor)
	assert.True(t, errors.Is(err, errors.KindConstruction))
	assert.Len(t, pt.Errors().Errors(), 1)
}

func TestPresent_ConstructionError(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	boom := stderrors.New("boom")
	pt.Register("A", presenttest.Behavior{
		Create: func(presentation.Context, any) error { return boom },
	})

	h, err := pt.Presenter().Present("A", presentation.None, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, errors.Is(err, errors.KindConstruction))
	require.NotNil(t, h)
	assert.Equal(t, presentation.StatusFaulted, h.Status())
	_, resErr := h.Result()
	assert.ErrorIs(t, resErr, boom)
	assert.Zero(t, pt.Presenter().Len())
	assert.Empty(t, pt.Views().Requests())
}

func TestPresent_ConstructorPanic(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{
		Create: func(presentation.Context, any) error { panic("kaboom") },
	})

	h, err := pt.Presenter().Present("A", presentation.None, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindPanic))
	var perr *errors.PanicError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, presentation.StatusFaulted, h.Status())
}

func TestPresent_DismissInsideConstructor(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{
		Create: func(ctx presentation.Context, _ any) error {
			ctx.Dismiss("early")
			return nil
		},
	})

	h, err := pt.Presenter().Present("A", presentation.None, nil)
	require.NoError(t, err)
	assert.Equal(t, presentation.StatusCancelled, h.Status())
	assert.Equal(t, []string{"A.create", "A.dispose"}, pt.Events())
	assert.Empty(t, pt.Views().Requests())
	assert.Zero(t, pt.Presenter().Len())
}

func TestLoad_PanicFaults(t *testing.T) {
	reg := presentation.NewRegistry()
	rec := presenttest.NewRecorder()
	presenttest.Register(reg, rec, "A", presenttest.Behavior{})
	handler := &presenttest.ErrorCollector{}
	views := presentation.ViewFactoryFunc(func(context.Context, presentation.ViewRequest) (presentation.View, error) {
		panic("no view")
	})
	p := presentation.New(reg, views, presentation.WithErrorHandler(handler))

	h, err := p.Present("A", presentation.None, nil)
	require.NoError(t, err)
	require.NoError(t, p.Settle(context.Background()))

	assert.Equal(t, presentation.StatusFaulted, h.Status())
	assert.Empty(t, handler.Kinds())
	require.Len(t, handler.Panics(), 1)
	assert.Equal(t, "no view", handler.Panics()[0].Value)
	assert.Equal(t, []string{"A.create", "A.dispose"}, rec.Events())
	require.NoError(t, p.Close(context.Background()))
}

func TestLifecycleFaultsAccumulate(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	errActivate := stderrors.New("activate failed")
	errDismiss := stderrors.New("dismiss failed")
	pt.Register("A", presenttest.Behavior{
		Activate: func(*presenttest.Controller) error { return errActivate },
		Dismiss:  func(*presenttest.Controller) error { return errDismiss },
	})

	h := pt.Present("A", presentation.None, nil)
	pt.Settle()
	require.True(t, h.IsActive(), "a failing OnActivate keeps the node")

	h.Dismiss("ok")
	assert.Equal(t, presentation.StatusFaulted, h.Status())
	_, err := h.Result()
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, errActivate)
	assert.ErrorIs(t, err, errDismiss)
	assert.Equal(t, []errors.ErrorKind{errors.KindLifecycle, errors.KindLifecycle}, pt.Errors().Kinds())
}

func TestOnPresentFailureTearsDown(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{
		Present: func(*presenttest.Controller) error { return stderrors.New("nope") },
	})

	h := pt.Present("A", presentation.None, nil)
	pt.Settle()

	assert.Equal(t, presentation.StatusFaulted, h.Status())
	assert.Equal(t, []string{"A.create", "A.present", "A.dismiss", "A.dispose"}, pt.Events())
	assert.True(t, pt.View(h).Destroyed())
}

func TestDisposeErrorReportedOnly(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{Dispose: stderrors.New("leak")})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()
	h.Dismiss("ok")

	assert.Equal(t, presentation.StatusSucceeded, h.Status())
	assert.Equal(t, []errors.ErrorKind{errors.KindLifecycle}, pt.Errors().Kinds())
}

func TestReentrantPresentFromActivate(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	var child *presentation.Handle
	pt.Register("Parent", presenttest.Behavior{
		Activate: func(c *presenttest.Controller) error {
			if child != nil {
				return nil
			}
			var err error
			child, err = c.Ctx.Present("Child", presentation.Child, nil)
			return err
		},
	})
	pt.Register("Child", presenttest.Behavior{})

	parent := pt.Present("Parent", presentation.None, nil)
	pt.Settle()

	require.NotNil(t, child)
	assert.Equal(t, []string{"Parent", "Child"}, pt.Active())
	assert.Equal(t, parent.ID(), pt.Find(presenttest.ByName("Child")).First().Parent)
}

func TestReentrantExclusivePresentDeactivatesBeforeConstruction(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	var a, b *presentation.Handle
	aActiveDuringCreate := true
	pt.Register("A", presenttest.Behavior{
		Activate: func(c *presenttest.Controller) error {
			if b != nil {
				return nil
			}
			var err error
			b, err = c.Ctx.Present("B", presentation.Exclusive, nil)
			return err
		},
	})
	pt.Register("B", presenttest.Behavior{
		Create: func(presentation.Context, any) error {
			aActiveDuringCreate = a.IsActive()
			return nil
		},
	})

	a = pt.Present("A", presentation.None, nil)
	pt.Settle()

	require.NotNil(t, b)
	assert.False(t, aActiveDuringCreate)
	assert.Equal(t, []string{
		"A.create", "A.present", "A.activate", "A.deactivate",
		"B.create", "B.present", "B.activate",
	}, pt.Events())
	assert.Equal(t, []string{"B"}, pt.Active())
}

func TestReentrantDismissFromActivate(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	var first *presentation.Handle
	pt.Register("A", presenttest.Behavior{})
	pt.Register("B", presenttest.Behavior{
		Activate: func(*presenttest.Controller) error {
			first.Dismiss("replaced")
			return nil
		},
	}, presentation.WithOptions(presentation.Modal))

	first = pt.Present("A", presentation.None, nil)
	pt.Settle()
	b := pt.Present("B", presentation.None, nil)
	pt.Settle()

	assert.Equal(t, presentation.StatusSucceeded, first.Status())
	assert.True(t, b.IsActive())
	assert.Equal(t, []string{"B"}, pt.Stack())
}

func TestTimerCallbackDismissesOwnNode(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("Toast", presenttest.Behavior{
		Present: func(c *presenttest.Controller) error {
			if _, err := c.Ctx.Schedule(func() { c.Ctx.Dismiss("timeout") }, time.Second); err != nil {
				return err
			}
			_, err := c.Ctx.Schedule(func() { t.Error("second timer must not fire") }, time.Second)
			return err
		},
	})
	h := pt.Present("Toast", presentation.None, nil)
	pt.Settle()

	pt.Advance(time.Second)
	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "timeout", v)
}

func TestTimerPolicy_PauseWhenInactive(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	fired := 0
	pt.Register("A", presenttest.Behavior{
		Present: func(c *presenttest.Controller) error {
			_, err := c.Ctx.Schedule(func() { fired++ }, time.Second)
			return err
		},
	})
	pt.Register("Cover", presenttest.Behavior{}, presentation.WithOptions(presentation.Exclusive))

	pt.Present("A", presentation.None, nil)
	pt.Settle()
	pt.Advance(500 * time.Millisecond)

	cover := pt.Present("Cover", presentation.None, nil)
	pt.Settle()
	pt.Advance(5 * time.Second)
	assert.Equal(t, 0, fired)

	cover.Dismiss(nil)
	pt.Advance(400 * time.Millisecond)
	assert.Equal(t, 0, fired)
	pt.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestTimerPolicy_RunWhilePresented(t *testing.T) {
	pt := presenttest.NewPresenterTester(t, presentation.WithTimerPolicy(presentation.TimersRunWhilePresented))
	fired := 0
	pt.Register("A", presenttest.Behavior{
		Present: func(c *presenttest.Controller) error {
			_, err := c.Ctx.Schedule(func() { fired++ }, time.Second)
			return err
		},
	})
	pt.Register("Cover", presenttest.Behavior{}, presentation.WithOptions(presentation.Exclusive))

	pt.Present("A", presentation.None, nil)
	pt.Present("Cover", presentation.None, nil)
	pt.Settle()

	pt.Advance(time.Second)
	assert.Equal(t, 1, fired)
}

func TestTimerPanicFaultsNode(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{
		Present: func(c *presenttest.Controller) error {
			_, err := c.Ctx.Schedule(func() { panic("tick") }, 0)
			return err
		},
	})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()
	pt.Advance(time.Millisecond)

	require.True(t, h.IsActive())
	require.Len(t, pt.Errors().Panics(), 1)
	assert.Equal(t, "timers.fire", pt.Errors().Panics()[0].Op)
	h.Dismiss(nil)
	assert.Equal(t, presentation.StatusFaulted, h.Status())
}

func TestCancelTimer(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()

	ctx := pt.Controller(h).Ctx
	id, err := ctx.Schedule(func() { t.Error("cancelled timer fired") }, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, pt.Find(presenttest.ByName("A")).First().Timers)
	assert.True(t, ctx.CancelTimer(id))
	assert.False(t, ctx.CancelTimer(id))
	pt.Advance(2 * time.Second)
}

func TestPlacement_Singleton(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("Menu", presenttest.Behavior{}, presentation.WithOptions(presentation.Singleton))

	first := pt.Present("Menu", presentation.None, nil)
	pt.Settle()
	second := pt.Present("Menu", presentation.None, nil)
	pt.Settle()

	assert.Equal(t, presentation.StatusSucceeded, first.Status())
	assert.True(t, second.IsActive())
	assert.Equal(t, []string{"Menu"}, pt.Stack())
}

func TestPlacement_DismissCurrent(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("B", presenttest.Behavior{})
	pt.Register("C", presenttest.Behavior{})

	pt.Present("A", presentation.None, nil)
	b := pt.Present("B", presentation.None, nil)
	pt.Present("C", presentation.DismissCurrent, nil)
	pt.Settle()

	assert.Equal(t, presentation.StatusCancelled, b.Status())
	assert.Equal(t, []string{"A", "C"}, pt.Stack())
}

func TestPlacement_DismissAllSiblings(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("Shell", presenttest.Behavior{})
	pt.Register("Page", presenttest.Behavior{})
	pt.Register("Other", presenttest.Behavior{})

	other := pt.Present("Other", presentation.None, nil)
	shell := pt.Present("Shell", presentation.None, nil)
	pt.PresentChild(shell, "Page", presentation.None, nil)
	pt.PresentChild(shell, "Page", presentation.None, nil)
	pt.Settle()

	pt.PresentChild(shell, "Page", presentation.DismissAll, "fresh")
	pt.Settle()

	assert.Equal(t, []string{"Other", "Shell", "Page"}, pt.Stack())
	assert.True(t, other.IsActive())
	pages := pt.Find(presenttest.ByName("Page")).All()
	require.Len(t, pages, 1)
	assert.Equal(t, shell.ID(), pages[0].Parent)
}

func TestChildOptionIgnoredWithoutParent(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Present("A", presentation.Child, nil)

	info := pt.Find(presenttest.ByName("A")).First()
	assert.False(t, info.Options.Has(presentation.Child))
	assert.Zero(t, info.Parent)
}

func TestExclusiveChildKeepsAncestorsVisible(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("Shell", presenttest.Behavior{})
	pt.Register("Tab", presenttest.Behavior{})
	pt.Register("Sheet", presenttest.Behavior{})

	shell := pt.Present("Shell", presentation.None, nil)
	tab := pt.PresentChild(shell, "Tab", presentation.None, nil)
	sheet := pt.PresentChild(shell, "Sheet", presentation.Exclusive, nil)
	pt.Settle()

	assert.Equal(t, []string{"Shell", "Sheet"}, pt.Active())
	assert.True(t, pt.View(shell).Visible())
	assert.False(t, pt.View(tab).Visible())
	assert.True(t, pt.View(sheet).Visible())

	sheet.Dismiss(nil)
	assert.Equal(t, []string{"Shell", "Tab"}, pt.Active())
	assert.True(t, pt.View(tab).Visible())
}

func TestViewRequest(t *testing.T) {
	pt := presenttest.NewPresenterTester(t, presentation.WithPopupLayer(500))
	pt.Register("A", presenttest.Behavior{}, presentation.WithResource("screens/a"))
	pt.Register("Tip", presenttest.Behavior{}, presentation.WithOptions(presentation.Popup))

	a := pt.Present("A", presentation.None, "args")
	pt.Settle()
	pt.PresentChild(a, "Tip", presentation.None, nil)
	pt.Settle()

	reqs := pt.Views().Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "screens/a", reqs[0].Resource)
	assert.Equal(t, "args", reqs[0].Args)
	assert.Equal(t, 0, reqs[0].ZOrder)
	assert.Nil(t, reqs[0].Parent)

	assert.Equal(t, "Tip", reqs[1].Resource)
	assert.Equal(t, 501, reqs[1].ZOrder)
	assert.Equal(t, presentation.View(pt.View(a)), reqs[1].Parent)
	assert.True(t, reqs[1].Options.Has(presentation.Popup|presentation.Child))
}

type fakeScope struct {
	parent *fakeScope
	closed *[]*fakeScope
}

func (s *fakeScope) Close() error {
	*s.closed = append(*s.closed, s)
	return nil
}

type fakeScopes struct {
	closed []*fakeScope
}

func (f *fakeScopes) CreateScope(parent presentation.Scope) (presentation.Scope, error) {
	s := &fakeScope{closed: &f.closed}
	if p, ok := parent.(*fakeScope); ok {
		s.parent = p
	}
	return s, nil
}

func TestScopes(t *testing.T) {
	scopes := &fakeScopes{}
	root := &fakeScope{closed: &scopes.closed}
	pt := presenttest.NewPresenterTester(t, presentation.WithScopeProvider(scopes, root))
	pt.Register("A", presenttest.Behavior{})
	pt.Register("C", presenttest.Behavior{})

	a := pt.Present("A", presentation.None, nil)
	c := pt.PresentChild(a, "C", presentation.None, nil)
	pt.Settle()

	aScope := pt.Controller(a).Ctx.Scope().(*fakeScope)
	cScope := pt.Controller(c).Ctx.Scope().(*fakeScope)
	assert.Same(t, root, aScope.parent)
	assert.Same(t, aScope, cScope.parent)

	a.Dismiss(nil)
	assert.Equal(t, []*fakeScope{cScope, aScope}, scopes.closed)
	assert.Nil(t, pt.Controller(a).Ctx.Scope())
}

func TestClose(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("B", presenttest.Behavior{})
	p := pt.Presenter()

	a := pt.Present("A", presentation.None, nil)
	pt.Settle()
	pt.Views().Hold("B")
	b := pt.Present("B", presentation.None, nil)

	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, presentation.StatusSucceeded, a.Status())
	assert.Equal(t, presentation.StatusCancelled, b.Status())
	assert.Zero(t, p.Len())
	assert.Zero(t, p.InFlight())

	_, err := p.Present("A", presentation.None, nil)
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.False(t, p.Post(func() {}))
	require.NoError(t, p.Close(context.Background()))
}

func TestPostAndPump(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	p := pt.Presenter()

	ran := 0
	done := make(chan bool)
	go func() { done <- p.Post(func() { ran++ }) }()
	require.True(t, <-done)
	assert.False(t, p.Post(nil))

	assert.Equal(t, 1, p.Pump())
	assert.Equal(t, 1, ran)
	assert.Equal(t, 0, p.Pump())
}

func TestPostRacingCloseEitherRunsOrRefuses(t *testing.T) {
	for round := 0; round < 50; round++ {
		p := presentation.New(presentation.NewRegistry(), presenttest.NewFakeViews(), presentation.WithQueueSize(4))

		var accepted, ran atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for range 16 {
					if p.Post(func() { ran.Add(1) }) {
						accepted.Add(1)
					}
				}
			}()
		}
		close(start)
		require.NoError(t, p.Close(context.Background()))
		wg.Wait()

		require.Equal(t, accepted.Load(), ran.Load(), "round %d", round)
		assert.False(t, p.Post(func() {}))
	}
}

func TestHandleWait(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	h := pt.Present("A", presentation.None, nil)
	pt.Settle()

	_, err := h.Result()
	assert.ErrorIs(t, err, presentation.ErrNotSettled)
	assert.Equal(t, presentation.StatusPending, h.Status())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got := make(chan any, 1)
	go func() {
		v, _ := h.Wait(context.Background())
		got <- v
	}()
	h.Dismiss("answer")
	assert.Equal(t, "answer", <-got)
}

func TestSessionAndSnapshot(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	pt.Register("A", presenttest.Behavior{})
	pt.Register("C", presenttest.Behavior{})
	p := pt.Presenter()
	assert.NotEqual(t, uuid.Nil, p.Session())

	a := pt.Present("A", presentation.None, nil)
	pt.Settle()
	pt.Views().Hold("C")
	c := pt.PresentChild(a, "C", presentation.None, nil)
	assert.Equal(t, 1, p.InFlight())

	snap := p.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, presentation.NodeInfo{
		ID: a.ID(), Name: "A", State: presentation.StateActive, Visible: true,
	}, snap[0])
	assert.Equal(t, presentation.NodeInfo{
		ID: c.ID(), Name: "C", Parent: a.ID(), Depth: 1, Options: presentation.Child,
		State: presentation.StateInitialized, Loading: true,
	}, snap[1])
	assert.Same(t, a, p.Top())
}

func TestRun(t *testing.T) {
	pt := presenttest.NewPresenterTester(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fired := false
	pt.Register("A", presenttest.Behavior{
		Present: func(c *presenttest.Controller) error {
			_, err := c.Ctx.Schedule(func() {
				fired = true
				cancel()
			}, 10*time.Millisecond)
			return err
		},
	})
	pt.Present("A", presentation.None, nil)

	err := presentation.Run(ctx, pt.Presenter(), time.Millisecond, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, fired)
}
