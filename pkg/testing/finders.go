package testing

import (
	"fmt"

	"github.com/go-drift/present/pkg/presentation"
)

// Finder locates nodes in a presenter's stack.
type Finder interface {
	// Evaluate returns all matching nodes, bottom of the stack first.
	Evaluate(nodes []presentation.NodeInfo) []presentation.NodeInfo
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	nodes  []presentation.NodeInfo
	finder Finder
}

// First returns the lowest match. Panics if no matches.
func (r FinderResult) First() presentation.NodeInfo {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("Finder found no nodes: %s", r.describe()))
	}
	return r.nodes[0]
}

// Last returns the topmost match. Panics if no matches.
func (r FinderResult) Last() presentation.NodeInfo {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("Finder found no nodes: %s", r.describe()))
	}
	return r.nodes[len(r.nodes)-1]
}

// All returns all matches in stack order.
func (r FinderResult) All() []presentation.NodeInfo {
	return r.nodes
}

// Names returns the descriptor names of all matches in stack order.
func (r FinderResult) Names() []string {
	names := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		names[i] = n.Name
	}
	return names
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.nodes)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.nodes) > 0
}

func (r FinderResult) describe() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// Find evaluates finder against nodes.
func Find(nodes []presentation.NodeInfo, finder Finder) FinderResult {
	return FinderResult{nodes: finder.Evaluate(nodes), finder: finder}
}

// predicateFinder matches nodes satisfying a predicate.
type predicateFinder struct {
	fn   func(presentation.NodeInfo) bool
	desc string
}

func (f *predicateFinder) Evaluate(nodes []presentation.NodeInfo) []presentation.NodeInfo {
	var out []presentation.NodeInfo
	for _, n := range nodes {
		if f.fn(n) {
			out = append(out, n)
		}
	}
	return out
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByName matches nodes of the named descriptor.
func ByName(name string) Finder {
	return &predicateFinder{
		fn:   func(n presentation.NodeInfo) bool { return n.Name == name },
		desc: fmt.Sprintf("ByName(%q)", name),
	}
}

// ByState matches nodes in state s.
func ByState(s presentation.State) Finder {
	return &predicateFinder{
		fn:   func(n presentation.NodeInfo) bool { return n.State == s },
		desc: fmt.Sprintf("ByState(%s)", s),
	}
}

// ByOptions matches nodes carrying every flag in o.
func ByOptions(o presentation.Options) Finder {
	return &predicateFinder{
		fn:   func(n presentation.NodeInfo) bool { return n.Options.Has(o) },
		desc: fmt.Sprintf("ByOptions(%s)", o),
	}
}

// Active matches active nodes.
func Active() Finder {
	return ByState(presentation.StateActive)
}

// Hidden matches presented nodes covered by an Exclusive node.
func Hidden() Finder {
	return &predicateFinder{
		fn:   func(n presentation.NodeInfo) bool { return n.State.Presented() && !n.Visible },
		desc: "Hidden()",
	}
}

// ByPredicate returns a finder that matches nodes satisfying fn.
func ByPredicate(fn func(presentation.NodeInfo) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

// childFinder matches nodes satisfying 'matching' whose parent satisfies 'of'.
type childFinder struct {
	of       Finder
	matching Finder
}

func (f *childFinder) Evaluate(nodes []presentation.NodeInfo) []presentation.NodeInfo {
	parents := make(map[uint64]bool)
	for _, p := range f.of.Evaluate(nodes) {
		parents[p.ID] = true
	}
	var out []presentation.NodeInfo
	for _, n := range f.matching.Evaluate(nodes) {
		if parents[n.Parent] {
			out = append(out, n)
		}
	}
	return out
}

func (f *childFinder) Description() string {
	return fmt.Sprintf("ChildOf(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// ChildOf matches nodes satisfying 'matching' that are direct children of
// nodes matching 'of'.
func ChildOf(of, matching Finder) Finder {
	return &childFinder{of: of, matching: matching}
}
