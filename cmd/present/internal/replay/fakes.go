package replay

import (
	"context"
	"errors"
	"slices"

	"github.com/go-drift/present/pkg/presentation"
)

// controller is the scripted controller behind every replay descriptor.
type controller struct {
	r    *runner
	ctx  presentation.Context
	desc Descriptor
}

func (r *runner) constructor(d Descriptor) func(presentation.Context, any) (presentation.Controller, error) {
	return func(ctx presentation.Context, _ any) (presentation.Controller, error) {
		r.record(ctx, "create")
		if d.FailCreate != "" {
			return nil, errors.New(d.FailCreate)
		}
		return &controller{r: r, ctx: ctx, desc: d}, nil
	}
}

func (c *controller) OnPresent() error {
	c.r.record(c.ctx, "present")
	if c.desc.DismissAfter > 0 {
		_, err := c.ctx.Schedule(func() {
			c.r.record(c.ctx, "timeout")
			c.ctx.Dismiss(nil)
		}, c.desc.DismissAfter)
		return err
	}
	return nil
}

func (c *controller) OnActivate() error {
	c.r.record(c.ctx, "activate")
	return nil
}

func (c *controller) OnDeactivate() error {
	c.r.record(c.ctx, "deactivate")
	return nil
}

func (c *controller) OnDismiss() error {
	c.r.record(c.ctx, "dismiss")
	return nil
}

func (c *controller) HandleCommand(cmd any) bool {
	s, ok := cmd.(string)
	if !ok || !slices.Contains(c.desc.Handles, s) {
		return false
	}
	c.r.record(c.ctx, "handle "+s)
	return true
}

// views loads placeholder views, failing the descriptors scripted to fail.
type views struct {
	script *Script
}

func (v *views) Load(ctx context.Context, req presentation.ViewRequest) (presentation.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg := v.script.Descriptors[req.Name].FailLoad; msg != "" {
		return nil, errors.New(msg)
	}
	return req, nil
}

func (v *views) Destroy(presentation.View) error { return nil }
