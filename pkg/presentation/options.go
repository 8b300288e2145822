package presentation

import (
	"fmt"
	"strings"
)

// Options is the set of placement and lifetime flags a node is presented with.
type Options uint16

const (
	// Exclusive hides and deactivates every node beneath it except its own ancestors.
	Exclusive Options = 1 << iota
	// Modal deactivates every node beneath it except its ancestors and stops
	// command routing.
	Modal
	// Popup places the view on the popup layer.
	Popup
	// Child ties the node's lifetime to the presenting node.
	Child
	// Singleton tears down live nodes of the same descriptor before construction.
	Singleton
	// DismissCurrent tears down the topmost live sibling before construction.
	DismissCurrent
	// DismissAll tears down every live sibling before construction.
	DismissAll
)

// None is the empty option set.
const None Options = 0

var optionNames = []struct {
	flag Options
	name string
}{
	{Exclusive, "exclusive"},
	{Modal, "modal"},
	{Popup, "popup"},
	{Child, "child"},
	{Singleton, "singleton"},
	{DismissCurrent, "dismiss-current"},
	{DismissAll, "dismiss-all"},
}

// Has reports whether every flag in f is set.
func (o Options) Has(f Options) bool {
	return o&f == f
}

// Any reports whether at least one flag in f is set.
func (o Options) Any(f Options) bool {
	return o&f != 0
}

// isBarrier reports whether the node blocks activation and routing below it.
func (o Options) isBarrier() bool {
	return o.Any(Modal | Exclusive)
}

func (o Options) String() string {
	if o == None {
		return "none"
	}
	var parts []string
	for _, on := range optionNames {
		if o.Has(on.flag) {
			parts = append(parts, on.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseOptions converts flag names (as produced by String, case-insensitive)
// into an option set.
func ParseOptions(names ...string) (Options, error) {
	var o Options
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || name == "none" {
			continue
		}
		found := false
		for _, on := range optionNames {
			if on.name == name {
				o |= on.flag
				found = true
				break
			}
		}
		if !found {
			return None, fmt.Errorf("unknown option %q", raw)
		}
	}
	return o, nil
}
