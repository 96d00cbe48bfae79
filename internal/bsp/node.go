package bsp

// Node is one partition of the tree: its plane, the segments lying on that
// plane and the two half-space subtrees. Nodes are read-only once the tree
// is built.
type Node struct {
	plane      Plane
	coincident []Segment
	front      *Node
	back       *Node
}

// Plane returns the partition plane of the node.
func (n *Node) Plane() Plane { return n.plane }

// Segments returns the segments coincident with the node's plane in the
// order they were met during build. The slice must not be modified.
func (n *Node) Segments() []Segment { return n.coincident }

// Front returns the subtree in front of the plane, or nil.
func (n *Node) Front() *Node { return n.front }

// Back returns the subtree behind the plane, or nil.
func (n *Node) Back() *Node { return n.back }
