package presentation

import (
	"fmt"
	"reflect"
	"sort"
)

// Descriptor describes a presentable unit: how to build its controller and
// which view and default options it uses.
type Descriptor struct {
	// Name identifies the descriptor. Register derives it from the
	// controller type.
	Name string
	// Resource is the view resource key handed to the ViewFactory.
	Resource string
	// Options are merged into every Present of this descriptor.
	Options Options
	// New builds the controller.
	New func(ctx Context, args any) (Controller, error)
}

// DescriptorOption configures a Descriptor at registration.
type DescriptorOption func(*Descriptor)

// WithResource sets the view resource key.
func WithResource(resource string) DescriptorOption {
	return func(d *Descriptor) { d.Resource = resource }
}

// WithOptions sets the default options.
func WithOptions(o Options) DescriptorOption {
	return func(d *Descriptor) { d.Options = o }
}

// Registry maps descriptor names to descriptors. It is the default
// [ControllerFactory].
type Registry struct {
	descriptors map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// DescriptorName returns the name Register uses for controller type T.
// Pointer types are named after their element type.
func DescriptorName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// Register adds a descriptor for controller type T, named by DescriptorName.
// It panics if the name is taken.
func Register[T any](r *Registry, newFn func(ctx Context, args any) (T, error), opts ...DescriptorOption) *Descriptor {
	return r.RegisterNamed(DescriptorName[T](), func(ctx Context, args any) (Controller, error) {
		c, err := newFn(ctx, args)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, opts...)
}

// RegisterNamed adds a descriptor under an explicit name.
// It panics if the name is empty or taken, or newFn is nil.
func (r *Registry) RegisterNamed(name string, newFn func(ctx Context, args any) (Controller, error), opts ...DescriptorOption) *Descriptor {
	if name == "" {
		panic("presentation: empty descriptor name")
	}
	if newFn == nil {
		panic("presentation: nil constructor for " + name)
	}
	if _, ok := r.descriptors[name]; ok {
		panic("presentation: descriptor already registered: " + name)
	}
	d := &Descriptor{Name: name, Resource: name, New: newFn}
	for _, opt := range opts {
		opt(d)
	}
	r.descriptors[name] = d
	return d
}

// Configure overrides the resource and default options of a registered
// descriptor. An empty resource keeps the current one.
func (r *Registry) Configure(name, resource string, opts Options) error {
	d, ok := r.descriptors[name]
	if !ok {
		return fmt.Errorf("configure %q: not registered", name)
	}
	if resource != "" {
		d.Resource = resource
	}
	d.Options = opts
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a controller with the descriptor's constructor.
func (r *Registry) Create(d *Descriptor, ctx Context, args any) (Controller, error) {
	return d.New(ctx, args)
}

// Destroy disposes controllers that implement Disposer.
func (r *Registry) Destroy(c Controller) error {
	if d, ok := c.(Disposer); ok {
		return d.Dispose()
	}
	return nil
}
