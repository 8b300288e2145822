package presentation

// State is a node's lifecycle state. States only move forward except for the
// Presented/Active pair, which activation toggles.
//
//	Initialized --load ok--> Presented <--> Active
//	Initialized --dismiss--> Dismissed --> Disposed
//	Presented|Active --dismiss--> Dismissing --> Dismissed --> Disposed
//
// A node whose view is still loading is Initialized with a pending load.
type State int

const (
	// StateInitialized means the controller exists and the view is loading.
	StateInitialized State = iota
	// StatePresented means the view is loaded but the node is not active.
	StatePresented
	// StateActive means the node is presented and eligible for input.
	StateActive
	// StateDismissing means teardown is in progress.
	StateDismissing
	// StateDismissed means resources are released and the result is settling.
	StateDismissed
	// StateDisposed means the node left the stack and holds nothing.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StatePresented:
		return "presented"
	case StateActive:
		return "active"
	case StateDismissing:
		return "dismissing"
	case StateDismissed:
		return "dismissed"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Live reports whether the node has not started teardown.
func (s State) Live() bool {
	return s < StateDismissing
}

// Presented reports whether the view is loaded and the node not torn down.
func (s State) Presented() bool {
	return s == StatePresented || s == StateActive
}
