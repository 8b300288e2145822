package testing

import (
	"fmt"
	"sync"

	"github.com/go-drift/present/pkg/presentation"
)

// Recorder collects lifecycle events as "Name.event" strings.
type Recorder struct {
	mu          sync.Mutex
	events      []string
	controllers map[uint64]*Controller
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{controllers: make(map[uint64]*Controller)}
}

// Record appends one event.
func (r *Recorder) Record(name, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name+"."+event)
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how often event was recorded.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// Reset forgets recorded events. Controllers stay known.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Controller returns the controller built for a node.
func (r *Recorder) Controller(nodeID uint64) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controllers[nodeID]
}

// Behavior customizes a recording controller. Nil hooks succeed silently.
type Behavior struct {
	// Create runs inside the constructor, after the create event.
	Create func(ctx presentation.Context, args any) error
	// Present, Activate, Deactivate and Dismiss run after their event is
	// recorded; their error is returned to the presenter.
	Present    func(c *Controller) error
	Activate   func(c *Controller) error
	Deactivate func(c *Controller) error
	Dismiss    func(c *Controller) error
	// Command decides whether a routed command is consumed.
	Command func(c *Controller, cmd any) bool
	// Dispose fails disposal.
	Dispose error
}

// Controller records every lifecycle notification it receives.
type Controller struct {
	Ctx  presentation.Context
	Args any

	name     string
	rec      *Recorder
	behavior Behavior
}

// Register adds a descriptor whose controllers record into rec.
func Register(reg *presentation.Registry, rec *Recorder, name string, b Behavior, opts ...presentation.DescriptorOption) *presentation.Descriptor {
	return reg.RegisterNamed(name, func(ctx presentation.Context, args any) (presentation.Controller, error) {
		rec.Record(name, "create")
		if b.Create != nil {
			if err := b.Create(ctx, args); err != nil {
				return nil, err
			}
		}
		c := &Controller{Ctx: ctx, Args: args, name: name, rec: rec, behavior: b}
		rec.mu.Lock()
		rec.controllers[ctx.ID()] = c
		rec.mu.Unlock()
		return c, nil
	}, opts...)
}

func (c *Controller) hook(event string, fn func(*Controller) error) error {
	c.rec.Record(c.name, event)
	if fn == nil {
		return nil
	}
	return fn(c)
}

func (c *Controller) OnPresent() error    { return c.hook("present", c.behavior.Present) }
func (c *Controller) OnActivate() error   { return c.hook("activate", c.behavior.Activate) }
func (c *Controller) OnDeactivate() error { return c.hook("deactivate", c.behavior.Deactivate) }
func (c *Controller) OnDismiss() error    { return c.hook("dismiss", c.behavior.Dismiss) }

func (c *Controller) HandleCommand(cmd any) bool {
	c.rec.Record(c.name, fmt.Sprintf("command(%v)", cmd))
	if c.behavior.Command == nil {
		return false
	}
	return c.behavior.Command(c, cmd)
}

func (c *Controller) Dispose() error {
	c.rec.Record(c.name, "dispose")
	return c.behavior.Dispose
}
