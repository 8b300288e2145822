package presentation

// stack is the ordered node sequence, bottom first. A parent immediately
// precedes all of its descendants and descendants keep push order, so the
// subtree of any node is the contiguous run after it whose depth is greater.
type stack struct {
	nodes []*node
	// version changes on every insert and remove.
	version uint64
}

func (s *stack) len() int { return len(s.nodes) }

func (s *stack) indexOf(n *node) int {
	for i, x := range s.nodes {
		if x == n {
			return i
		}
	}
	return -1
}

// subtreeEnd returns the index just past n's subtree.
func (s *stack) subtreeEnd(i int) int {
	depth := s.nodes[i].depth
	j := i + 1
	for j < len(s.nodes) && s.nodes[j].depth > depth {
		j++
	}
	return j
}

// insert places n at the top of its parent's subtree, or at the top of the
// stack for a top-level node. It returns the insertion index.
func (s *stack) insert(n *node) int {
	at := len(s.nodes)
	if n.parent != nil {
		if i := s.indexOf(n.parent); i >= 0 {
			at = s.subtreeEnd(i)
		}
	}
	s.nodes = append(s.nodes, nil)
	copy(s.nodes[at+1:], s.nodes[at:])
	s.nodes[at] = n
	s.version++
	return at
}

// remove drops n from the sequence. Its descendants must already be gone.
func (s *stack) remove(n *node) bool {
	i := s.indexOf(n)
	if i < 0 {
		return false
	}
	copy(s.nodes[i:], s.nodes[i+1:])
	s.nodes[len(s.nodes)-1] = nil
	s.nodes = s.nodes[:len(s.nodes)-1]
	s.version++
	return true
}

// descendants returns n's subtree without n, in stack order.
func (s *stack) descendants(n *node) []*node {
	i := s.indexOf(n)
	if i < 0 {
		return nil
	}
	end := s.subtreeEnd(i)
	out := make([]*node, end-i-1)
	copy(out, s.nodes[i+1:end])
	return out
}

// children returns the direct children of parent in stack order, or the
// top-level nodes when parent is nil.
func (s *stack) children(parent *node) []*node {
	var out []*node
	for _, n := range s.nodes {
		if n.parent == parent {
			out = append(out, n)
		}
	}
	return out
}

// snapshot copies the sequence so callers can iterate while callbacks mutate it.
func (s *stack) snapshot() []*node {
	out := make([]*node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// topActive returns the topmost active node, the start of command routing.
func (s *stack) topActive() *node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].state == StateActive {
			return s.nodes[i]
		}
	}
	return nil
}
