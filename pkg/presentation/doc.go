// Package presentation manages a hierarchical stack of presented units.
//
// A presented unit (a node) pairs a controller with the view it loads. The
// [Presenter] creates nodes through a [ControllerFactory] and a
// [ViewFactory], keeps them in a stack where every parent precedes its
// descendants, decides which nodes are active, and routes commands from the
// active node up through its parents.
//
// # Presenting and dismissing
//
//	reg := presentation.NewRegistry()
//	presentation.Register(reg, NewInbox)
//	presentation.Register(reg, NewCompose, presentation.WithOptions(presentation.Modal))
//
//	p := presentation.New(reg, views, presentation.WithLogger(log))
//	inbox, _ := p.Present("Inbox", presentation.None, nil)
//	compose, _ := p.Present("Compose", presentation.None, draft)
//	p.Settle(ctx) // apply finished view loads
//
//	compose.Dismiss(sent)
//	result, err := compose.Result()
//
// Construction is synchronous; loading the view is the only asynchronous
// step. Dismissing a node whose view is still loading cancels the load and
// settles the handle as cancelled without any lifecycle callbacks.
// Dismissing a presented node first tears down its children, topmost first.
//
// # Activation
//
// After every change the presenter recomputes activation. Top-level nodes
// are independent branches; within a branch only the topmost presented
// child of an active parent is active. The topmost Modal or Exclusive node
// (even while it is still loading) deactivates everything beneath it except
// its own ancestors. Exclusive nodes also hide the views beneath them.
//
// # Timers
//
// Each node owns a [timers.Scheduler]. [Presenter.Tick] advances the
// schedulers of active nodes only by default; [TimersRunWhilePresented]
// keeps inactive but presented nodes running.
//
// # Threading
//
// A presenter belongs to one driver goroutine. Use [Run] to make a goroutine
// the driver, or call [Presenter.Pump], [Presenter.Settle] and
// [Presenter.Tick] from your own loop. Handles can be awaited from anywhere.
package presentation
