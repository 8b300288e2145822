package presentation

import "context"

// Controller is the logic half of a presented unit. A controller opts into
// lifecycle notifications by implementing any of [PresentListener],
// [ActivateListener], [DeactivateListener], [DismissListener],
// [CommandHandler] and [Disposer]. Capabilities are resolved once, when the
// node is constructed.
type Controller interface{}

// PresentListener is notified once the node's view has loaded.
type PresentListener interface {
	OnPresent() error
}

// ActivateListener is notified when the node becomes active.
type ActivateListener interface {
	OnActivate() error
}

// DeactivateListener is notified when the node stops being active.
type DeactivateListener interface {
	OnDeactivate() error
}

// DismissListener is notified when a presented node is being dismissed.
type DismissListener interface {
	OnDismiss() error
}

// CommandHandler receives routed commands. Return true to consume the command.
type CommandHandler interface {
	HandleCommand(cmd any) bool
}

// Disposer releases controller resources. [Registry] calls Dispose when it
// destroys a controller.
type Disposer interface {
	Dispose() error
}

// ControllerFactory creates and destroys controllers.
type ControllerFactory interface {
	// Create builds the controller for d. It runs synchronously on the
	// driver goroutine and may present or dismiss through ctx.
	Create(d *Descriptor, ctx Context, args any) (Controller, error)
	// Destroy releases a controller. Errors are reported, never propagated.
	Destroy(c Controller) error
}

// View is an opaque visual-resource handle produced by a [ViewFactory].
type View interface{}

// Visibility is implemented by views that react to being covered by an
// Exclusive node.
type Visibility interface {
	SetVisible(visible bool)
}

// ViewRequest describes the view a node needs.
type ViewRequest struct {
	// NodeID is the id of the requesting node.
	NodeID uint64
	// Name is the descriptor name.
	Name string
	// Resource is the descriptor's resource key, Name when unset.
	Resource string
	// ZOrder is the node's stack position, offset by the popup layer for
	// Popup nodes.
	ZOrder int
	// Options are the node's effective options.
	Options Options
	// Parent is the parent node's view, nil for top-level nodes or when the
	// parent's view has not loaded yet.
	Parent View
	// Args are the arguments passed to Present.
	Args any
}

// ViewFactory loads and destroys views.
type ViewFactory interface {
	// Load runs on its own goroutine and must honor ctx cancellation. It
	// must not call back into the presenter.
	Load(ctx context.Context, req ViewRequest) (View, error)
	// Destroy releases a view on the driver goroutine.
	Destroy(v View) error
}

// Scope is a per-node service scope.
type Scope interface {
	Close() error
}

// ScopeProvider creates child service scopes. CreateScope may return a nil
// Scope when the node needs none.
type ScopeProvider interface {
	CreateScope(parent Scope) (Scope, error)
}

// ViewFactoryFunc adapts a load function into a ViewFactory whose Destroy
// does nothing.
type ViewFactoryFunc func(ctx context.Context, req ViewRequest) (View, error)

// Load calls f.
func (f ViewFactoryFunc) Load(ctx context.Context, req ViewRequest) (View, error) {
	return f(ctx, req)
}

// Destroy does nothing.
func (f ViewFactoryFunc) Destroy(View) error { return nil }
