package menu

// RootID is the identifier the remote side reserves for the menu root.
const RootID int32 = 0

// Node is one item of the mirrored menu. ID is fixed at construction; only
// Properties and Children change afterwards.
type Node struct {
	ID         int32
	Properties Properties
	Children   []*Node

	parent *Node
}

// NewNode builds a node and adopts the given children in order.
func NewNode(id int32, props Properties, children ...*Node) *Node {
	n := &Node{ID: id, Properties: props}
	for _, child := range children {
		n.Append(child)
	}
	return n
}

// Parent returns the node that owns n, or nil for a detached or root node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Append adds child as the last child of n.
func (n *Node) Append(child *Node) {
	if child == nil {
		return
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn prunes the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

func (n *Node) indexOf(child *Node) int {
	for idx, c := range n.Children {
		if c == child {
			return idx
		}
	}
	return -1
}
