package replay

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/go-drift/present/pkg/config"
	"github.com/go-drift/present/pkg/errors"
	"github.com/go-drift/present/pkg/presentation"
)

// Result is what a replay observed.
type Result struct {
	Steps   []StepResult
	Events  []string
	Errors  []string
	Handles []HandleResult
	// Stack is the stack after the last step, bottom first.
	Stack []presentation.NodeInfo
}

// StepResult describes one executed step.
type StepResult struct {
	Index  int
	Action string
	Detail string
}

// HandleResult is the state of one presented handle after the last step.
type HandleResult struct {
	Alias  string
	Name   string
	ID     uint64
	Status presentation.Status
	Value  any
	Err    error
}

// ExpectationError reports a failed expect step.
type ExpectationError struct {
	Step  int
	Field string
	Want  any
	Got   any
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("step %d: expected %s %v, got %v", e.Step, e.Field, e.Want, e.Got)
}

// Run replays s. cfg may be nil; its descriptor overrides must name
// descriptors the script declares. The presenter is closed before Run
// returns. A failed expectation stops the replay and is returned together
// with what was observed so far.
func Run(ctx context.Context, s *Script, cfg *config.Resolved, log logr.Logger) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	r := &runner{script: s, log: log, logs: &errors.LogHandler{Logger: log}, handles: make(map[string]*presentation.Handle)}

	reg := presentation.NewRegistry()
	for _, name := range sortedNames(s.Descriptors) {
		d := s.Descriptors[name]
		opts, err := presentation.ParseOptions(d.Options...)
		if err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", name, err)
		}
		desc := reg.RegisterNamed(name, r.constructor(d), presentation.WithOptions(opts))
		if d.Resource != "" {
			desc.Resource = d.Resource
		}
	}

	popts := []presentation.Option{
		presentation.WithLogger(log),
		presentation.WithErrorHandler(r),
	}
	if cfg != nil {
		if err := cfg.Apply(reg); err != nil {
			return nil, err
		}
		popts = append(popts, cfg.PresenterOptions()...)
	}
	r.p = presentation.New(reg, &views{script: s}, popts...)

	runErr := r.run(ctx)
	if runErr == nil {
		runErr = r.p.Settle(ctx)
	}
	res := r.result()
	if err := r.p.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return res, runErr
}

type runner struct {
	script *Script
	log    logr.Logger
	logs   *errors.LogHandler
	p      *presentation.Presenter

	handles map[string]*presentation.Handle
	aliases []string

	mu     sync.Mutex
	steps  []StepResult
	events []string
	errs   []string
}

func (r *runner) run(ctx context.Context) error {
	for i, step := range r.script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, _ := step.Action()
		detail, err := r.apply(ctx, i+1, action, step)
		r.log.V(1).Info("step", "index", i+1, "action", action, "detail", detail)
		r.steps = append(r.steps, StepResult{Index: i + 1, Action: action, Detail: detail})
		if err != nil {
			return err
		}
		r.p.Pump()
	}
	return nil
}

func (r *runner) apply(ctx context.Context, index int, action string, step Step) (string, error) {
	switch action {
	case "present":
		return r.present(index, step)
	case "dismiss":
		h, ok := r.handles[step.Dismiss]
		if !ok {
			return "", fmt.Errorf("step %d: unknown handle %q", index, step.Dismiss)
		}
		h.Dismiss(step.Result)
		return fmt.Sprintf("%s#%d", h.Name(), h.ID()), nil
	case "dismissAll":
		r.p.DismissAll()
		return "", nil
	case "tick":
		r.p.Tick(step.Tick)
		return step.Tick.String(), nil
	case "route":
		return r.p.RouteCommand(step.Route).String(), nil
	case "settle":
		if err := r.p.Settle(ctx); err != nil {
			return "", fmt.Errorf("step %d: %w", index, err)
		}
		return "", nil
	case "expect":
		return "ok", r.expect(index, step.Expect)
	}
	return "", fmt.Errorf("step %d: unknown action %q", index, action)
}

func (r *runner) present(index int, step Step) (string, error) {
	opts, err := presentation.ParseOptions(step.Options...)
	if err != nil {
		return "", fmt.Errorf("step %d: %w", index, err)
	}
	var h *presentation.Handle
	if step.Parent != "" {
		parent, ok := r.handles[step.Parent]
		if !ok {
			return "", fmt.Errorf("step %d: unknown handle %q", index, step.Parent)
		}
		h, err = r.p.PresentChild(parent, step.Present, opts, step.Args)
	} else {
		h, err = r.p.Present(step.Present, opts, step.Args)
	}
	if h != nil {
		alias := step.As
		if alias == "" {
			alias = step.Present
		}
		if _, seen := r.handles[alias]; !seen {
			r.aliases = append(r.aliases, alias)
		}
		r.handles[alias] = h
	}
	if err != nil {
		// A failed present is an observation, not a replay failure.
		return "error: " + err.Error(), nil
	}
	return fmt.Sprintf("%s#%d", h.Name(), h.ID()), nil
}

func (r *runner) expect(index int, e *Expect) error {
	var active, stack []string
	for _, n := range r.p.Snapshot() {
		stack = append(stack, n.Name)
		if n.State == presentation.StateActive {
			active = append(active, n.Name)
		}
	}
	if e.Active != nil && !slices.Equal(e.Active, active) {
		return &ExpectationError{Step: index, Field: "active", Want: e.Active, Got: active}
	}
	if e.Stack != nil && !slices.Equal(e.Stack, stack) {
		return &ExpectationError{Step: index, Field: "stack", Want: e.Stack, Got: stack}
	}
	for _, alias := range sortedNames(e.Status) {
		h, ok := r.handles[alias]
		if !ok {
			return fmt.Errorf("step %d: unknown handle %q", index, alias)
		}
		if got := h.Status().String(); got != e.Status[alias] {
			return &ExpectationError{Step: index, Field: "status of " + alias, Want: e.Status[alias], Got: got}
		}
	}
	return nil
}

func (r *runner) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := &Result{
		Steps:  append([]StepResult(nil), r.steps...),
		Events: append([]string(nil), r.events...),
		Errors: append([]string(nil), r.errs...),
		Stack:  r.p.Snapshot(),
	}
	for _, alias := range r.aliases {
		h := r.handles[alias]
		hr := HandleResult{Alias: alias, Name: h.Name(), ID: h.ID(), Status: h.Status()}
		hr.Value, hr.Err = h.Result()
		if stderrors.Is(hr.Err, presentation.ErrNotSettled) {
			hr.Err = nil
		}
		res.Handles = append(res.Handles, hr)
	}
	return res
}

func (r *runner) record(ctx presentation.Context, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("%s#%d %s", ctx.Name(), ctx.ID(), event))
}

// HandleError implements errors.ErrorHandler.
func (r *runner) HandleError(err *errors.PresentError) {
	r.logs.HandleError(err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err.Error())
}

// HandlePanic implements errors.ErrorHandler.
func (r *runner) HandlePanic(err *errors.PanicError) {
	r.logs.HandlePanic(err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err.Error())
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
