// Package replay runs scripted presentation scenarios against in-memory
// controllers and views.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a replayable scenario: the descriptors it uses and the steps to
// run against them.
type Script struct {
	Descriptors map[string]Descriptor `yaml:"descriptors"`
	Steps       []Step                `yaml:"steps"`
}

// Descriptor scripts the behavior of one descriptor's controllers and views.
type Descriptor struct {
	Resource string   `yaml:"resource,omitempty"`
	Options  []string `yaml:"options,omitempty"`
	// Handles lists the commands the controller consumes.
	Handles []string `yaml:"handles,omitempty"`
	// DismissAfter makes the controller dismiss itself once presented for
	// that long.
	DismissAfter time.Duration `yaml:"dismissAfter,omitempty"`
	// FailCreate and FailLoad make construction or view loading fail with
	// the given message.
	FailCreate string `yaml:"failCreate,omitempty"`
	FailLoad   string `yaml:"failLoad,omitempty"`
}

// Step is one scripted action. Exactly one action field must be set.
type Step struct {
	Present string   `yaml:"present,omitempty"`
	As      string   `yaml:"as,omitempty"`
	Parent  string   `yaml:"parent,omitempty"`
	Options []string `yaml:"options,omitempty"`
	Args    any      `yaml:"args,omitempty"`

	Dismiss string `yaml:"dismiss,omitempty"`
	Result  any    `yaml:"result,omitempty"`

	DismissAll bool          `yaml:"dismissAll,omitempty"`
	Tick       time.Duration `yaml:"tick,omitempty"`
	Route      string        `yaml:"route,omitempty"`
	Settle     bool          `yaml:"settle,omitempty"`
	Expect     *Expect       `yaml:"expect,omitempty"`
}

// Expect asserts the state of the stack. Unset fields are not checked.
type Expect struct {
	// Active lists the active descriptor names, bottom first.
	Active []string `yaml:"active,omitempty"`
	// Stack lists every descriptor name on the stack, bottom first.
	Stack []string `yaml:"stack,omitempty"`
	// Status maps handle aliases to pending, succeeded, faulted or cancelled.
	Status map[string]string `yaml:"status,omitempty"`
}

// Action names the step's action.
func (s Step) Action() (string, error) {
	var actions []string
	if s.Present != "" {
		actions = append(actions, "present")
	}
	if s.Dismiss != "" {
		actions = append(actions, "dismiss")
	}
	if s.DismissAll {
		actions = append(actions, "dismissAll")
	}
	if s.Tick != 0 {
		actions = append(actions, "tick")
	}
	if s.Route != "" {
		actions = append(actions, "route")
	}
	if s.Settle {
		actions = append(actions, "settle")
	}
	if s.Expect != nil {
		actions = append(actions, "expect")
	}
	switch len(actions) {
	case 0:
		return "", errors.New("no action")
	case 1:
		return actions[0], nil
	default:
		return "", fmt.Errorf("more than one action: %s", strings.Join(actions, ", "))
	}
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every step has exactly one action and names known
// descriptors.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return errors.New("script has no steps")
	}
	for i, step := range s.Steps {
		action, err := step.Action()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if action == "present" {
			if _, ok := s.Descriptors[step.Present]; !ok {
				return fmt.Errorf("step %d: unknown descriptor %q", i+1, step.Present)
			}
		}
		if step.Tick < 0 {
			return fmt.Errorf("step %d: negative tick %s", i+1, step.Tick)
		}
	}
	return nil
}
