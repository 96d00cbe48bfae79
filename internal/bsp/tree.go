package bsp

import (
	"fmt"
)

// Order selects the direction of a traversal relative to the eye.
type Order uint8

const (
	// BackToFront yields the farthest segments first: the painter's order.
	BackToFront Order = iota
	// FrontToBack is the exact reverse of BackToFront.
	FrontToBack
)

func (o Order) String() string {
	if o == FrontToBack {
		return "front-to-back"
	}
	return "back-to-front"
}

// ParseOrder accepts "back-to-front" and "front-to-back". An empty string
// means BackToFront.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "back-to-front":
		return BackToFront, nil
	case "front-to-back":
		return FrontToBack, nil
	default:
		return BackToFront, fmt.Errorf("unknown order %q", s)
	}
}

// Stats describes the shape of a built tree.
type Stats struct {
	Inputs   int `json:"inputs"`   // segments passed to Build
	Segments int `json:"segments"` // segments and fragments held by nodes
	Nodes    int `json:"nodes"`
	Splits   int `json:"splits"`
	Depth    int `json:"depth"`
}

// Tree is a BSP tree over 2D segments. Its zero value is an empty tree.
// A tree never changes after Build returns it, so it may be queried from
// several goroutines at once.
type Tree struct {
	root  *Node
	stats Stats
}

type buildTask struct {
	slot  **Node
	segs  []Segment
	depth int
}

// Build partitions segments into a tree. The input is consumed in the given
// order: the first segment of every list becomes the partition of the node
// built from it, so the shape of the tree depends on that order. The input
// slice is not modified.
func Build(segments []Segment) (*Tree, error) {
	t := &Tree{stats: Stats{Inputs: len(segments)}}
	if len(segments) == 0 {
		return t, nil
	}

	var root *Node
	// Front lists are pushed last so they are built first, like the
	// recursive formulation.
	stack := []buildTask{{slot: &root, segs: segments, depth: 1}}
	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pivot := task.segs[0]
		n := &Node{
			plane:      pivot.Plane(),
			coincident: []Segment{pivot},
		}

		var front, back []Segment
		for _, s := range task.segs[1:] {
			switch n.plane.ClassifySegment(s) {
			case Front:
				front = append(front, s)
			case Back:
				back = append(back, s)
			case Coincident:
				n.coincident = append(n.coincident, s)
			case Spanning:
				f, b, err := n.plane.Split(s)
				if err != nil {
					return nil, fmt.Errorf("build node at depth %d: %w", task.depth, err)
				}
				front = append(front, f)
				back = append(back, b)
				t.stats.Splits++
			}
		}

		*task.slot = n
		t.stats.Nodes++
		t.stats.Segments += len(n.coincident)
		t.stats.Depth = max(t.stats.Depth, task.depth)

		if len(back) > 0 {
			stack = append(stack, buildTask{slot: &n.back, segs: back, depth: task.depth + 1})
		}
		if len(front) > 0 {
			stack = append(stack, buildTask{slot: &n.front, segs: front, depth: task.depth + 1})
		}
	}

	t.root = root
	logger().Debug("bsp tree built",
		"inputs", t.stats.Inputs,
		"nodes", t.stats.Nodes,
		"splits", t.stats.Splits,
		"depth", t.stats.Depth)
	return t, nil
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	if t == nil {
		return nil
	}
	return t.root
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool {
	return t == nil || t.root == nil
}

// Stats returns the counters gathered while building the tree.
func (t *Tree) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return t.stats
}

// Query returns the segments in back-to-front order as seen from eye.
func (t *Tree) Query(eye Point) []Segment {
	return t.QueryOrder(eye, BackToFront)
}

// QueryOrder returns every segment and fragment in the tree ordered relative
// to eye. The result is freshly allocated on each call; it is nil for an
// empty tree.
func (t *Tree) QueryOrder(eye Point, order Order) []Segment {
	if t.Empty() {
		return nil
	}
	out := make([]Segment, 0, t.Stats().Segments)
	t.Traverse(eye, order, func(s Segment) bool {
		out = append(out, s)
		return true
	})
	return out
}

type visit struct {
	node *Node
	emit bool
}

// Traverse calls fn for each segment in the requested order until fn
// returns false.
//
// At every node the eye is classified against the plane. For BackToFront
// the subtree on the far side is visited first, then the node's own
// segments, then the near subtree. An eye on the plane visits front, own
// segments, back. FrontToBack reverses the whole sequence.
func (t *Tree) Traverse(eye Point, order Order, fn func(Segment) bool) {
	if t.Empty() {
		return
	}

	stack := []visit{{node: t.root}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if v.emit {
			segs := v.node.coincident
			if order == FrontToBack {
				for i := len(segs) - 1; i >= 0; i-- {
					if !fn(segs[i]) {
						return
					}
				}
				continue
			}
			for _, s := range segs {
				if !fn(s) {
					return
				}
			}
			continue
		}

		var first, last *Node
		switch v.node.plane.ClassifyPoint(eye) {
		case Front:
			first, last = v.node.back, v.node.front
		default:
			first, last = v.node.front, v.node.back
		}
		if order == FrontToBack {
			first, last = last, first
		}

		// Pushed in reverse so first is popped first.
		if last != nil {
			stack = append(stack, visit{node: last})
		}
		stack = append(stack, visit{node: v.node, emit: true})
		if first != nil {
			stack = append(stack, visit{node: first})
		}
	}
}

type walkItem struct {
	node  *Node
	depth int
}

// Walk visits every node in pre-order, front subtree before back subtree.
// The root has depth 1. Returning false from fn ends the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t.Empty() {
		return
	}

	stack := []walkItem{{node: t.root, depth: 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(it.node, it.depth) {
			return
		}
		if it.node.back != nil {
			stack = append(stack, walkItem{node: it.node.back, depth: it.depth + 1})
		}
		if it.node.front != nil {
			stack = append(stack, walkItem{node: it.node.front, depth: it.depth + 1})
		}
	}
}
