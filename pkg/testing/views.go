package testing

import (
	"context"
	"sync"

	"github.com/go-drift/present/pkg/presentation"
)

// FakeView is the view produced by FakeViews. It records visibility changes
// and whether it was destroyed.
type FakeView struct {
	Request presentation.ViewRequest

	mu        sync.Mutex
	visible   bool
	destroyed bool
}

// SetVisible implements presentation.Visibility.
func (v *FakeView) SetVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = visible
}

// Visible reports the last visibility the presenter set.
func (v *FakeView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Destroyed reports whether the view was handed back to the factory.
func (v *FakeView) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// FakeViews is an in-memory presentation.ViewFactory. Loads complete at once
// unless their resource is held, in which case they block until released or
// cancelled. All methods are safe for concurrent use.
type FakeViews struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	stubborn  map[string]bool
	failures  map[string]error
	requests  []presentation.ViewRequest
	views     map[uint64]*FakeView
	destroyed []*FakeView
	cancelled int
}

// NewFakeViews creates a factory with no held resources.
func NewFakeViews() *FakeViews {
	return &FakeViews{
		gates:    make(map[string]chan struct{}),
		stubborn: make(map[string]bool),
		failures: make(map[string]error),
		views:    make(map[uint64]*FakeView),
	}
}

// Hold makes loads of resource block until Release.
func (f *FakeViews) Hold(resource string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.gates[resource]; !ok {
		f.gates[resource] = make(chan struct{})
	}
}

// Release lets blocked and future loads of resource complete.
func (f *FakeViews) Release(resource string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.gates[resource]; ok {
		close(ch)
		delete(f.gates, resource)
	}
}

// IgnoreCancel makes held loads of resource wait for Release even after
// their context is cancelled, so the view arrives after the node is gone.
func (f *FakeViews) IgnoreCancel(resource string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubborn[resource] = true
}

// Fail makes loads of resource return err. A nil err clears the failure.
func (f *FakeViews) Fail(resource string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, resource)
		return
	}
	f.failures[resource] = err
}

// Load implements presentation.ViewFactory.
func (f *FakeViews) Load(ctx context.Context, req presentation.ViewRequest) (presentation.View, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gates[req.Resource]
	stubborn := f.stubborn[req.Resource]
	f.mu.Unlock()

	if gate != nil && stubborn {
		<-gate
	} else if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.cancelled++
			f.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[req.Resource]; err != nil {
		return nil, err
	}
	v := &FakeView{Request: req}
	f.views[req.NodeID] = v
	return v, nil
}

// Destroy implements presentation.ViewFactory.
func (f *FakeViews) Destroy(view presentation.View) error {
	v, ok := view.(*FakeView)
	if !ok {
		return nil
	}
	v.mu.Lock()
	v.destroyed = true
	v.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, v)
	return nil
}

// Requests returns every load request in arrival order.
func (f *FakeViews) Requests() []presentation.ViewRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]presentation.ViewRequest(nil), f.requests...)
}

// View returns the view loaded for a node, nil if none was.
func (f *FakeViews) View(nodeID uint64) *FakeView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.views[nodeID]
}

// Destroyed returns the destroyed views in order.
func (f *FakeViews) Destroyed() []*FakeView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeView(nil), f.destroyed...)
}

// Cancelled returns how many held loads ended through cancellation.
func (f *FakeViews) Cancelled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}
