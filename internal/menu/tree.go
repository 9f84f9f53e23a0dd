package menu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an operation names an id absent from the tree.
	ErrNotFound = errors.New("menu: node not found")
	// ErrIDMismatch is returned when a replacement subtree carries a different root id.
	ErrIDMismatch = errors.New("menu: replacement id mismatch")
)

// Tree is the mirrored menu of one bound service. It keeps an id index so the
// reconciler can locate any node in constant time. A Tree is not safe for
// concurrent use; the binder owns it from a single goroutine.
type Tree struct {
	root  *Node
	index map[int32]*Node
}

// NewTree wraps root and indexes its subtree. A nil root yields an empty
// menu with a bare root node.
func NewTree(root *Node) *Tree {
	if root == nil {
		root = NewNode(RootID, Properties{})
	}
	root.parent = nil
	t := &Tree{root: root, index: make(map[int32]*Node)}
	t.indexSubtree(root)
	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of indexed nodes.
func (t *Tree) Len() int {
	return len(t.index)
}

// Find returns the node with the given id anywhere in the tree.
func (t *Tree) Find(id int32) (*Node, bool) {
	n, ok := t.index[id]
	return n, ok
}

// ReplaceSubtree swaps the node identified by id, with all its descendants,
// for replacement. The replacement takes the old node's place among its
// siblings.
func (t *Tree) ReplaceSubtree(id int32, replacement *Node) error {
	if replacement == nil {
		return fmt.Errorf("replace %d: nil subtree", id)
	}
	if replacement.ID != id {
		return fmt.Errorf("replace %d with %d: %w", id, replacement.ID, ErrIDMismatch)
	}
	old, ok := t.index[id]
	if !ok {
		return fmt.Errorf("replace %d: %w", id, ErrNotFound)
	}

	t.unindexSubtree(old)
	parent := old.parent
	if parent == nil {
		t.root = replacement
		replacement.parent = nil
	} else {
		idx := parent.indexOf(old)
		parent.Children[idx] = replacement
		replacement.parent = parent
	}
	old.parent = nil
	t.indexSubtree(replacement)
	return nil
}

// RemoveSubtree detaches the node identified by id and its descendants. The
// root cannot be removed; it is emptied instead.
func (t *Tree) RemoveSubtree(id int32) bool {
	n, ok := t.index[id]
	if !ok {
		return false
	}
	if n.parent == nil {
		for _, child := range n.Children {
			t.unindexSubtree(child)
			child.parent = nil
		}
		n.Children = nil
		return true
	}

	t.unindexSubtree(n)
	parent := n.parent
	idx := parent.indexOf(n)
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	n.parent = nil
	return true
}

// VisibleChildren returns the ids of the presentable children of id in
// remote order. Hidden nodes stay in the tree; they are only filtered here.
func (t *Tree) VisibleChildren(id int32) []int32 {
	n, ok := t.index[id]
	if !ok || n.Properties.IsSeparator() {
		return nil
	}
	out := make([]int32, 0, len(n.Children))
	for _, child := range n.Children {
		if presentable(child) {
			out = append(out, child.ID)
		}
	}
	return out
}

// Activatable reports whether id is reachable as an activation source in
// the current projection: every node on its path is presentable and
// enabled, and the node itself is a labelled, non-separator item.
func (t *Tree) Activatable(id int32) bool {
	n, ok := t.index[id]
	if !ok || n.parent == nil {
		return false
	}
	if n.Properties.IsSeparator() {
		return false
	}
	for cur := n; cur.parent != nil; cur = cur.parent {
		if !presentable(cur) || !cur.Properties.Enabled() {
			return false
		}
	}
	return true
}

// Project builds the ordered visible tree handed to the rendering sink.
func (t *Tree) Project() []Entry {
	return projectChildren(t.root)
}

func projectChildren(n *Node) []Entry {
	if len(n.Children) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(n.Children))
	for _, child := range n.Children {
		if !presentable(child) {
			continue
		}
		out = append(out, project(child))
	}
	return out
}

func project(n *Node) Entry {
	props := n.Properties
	if props.IsSeparator() {
		return Entry{ID: n.ID, Separator: true}
	}
	label, _ := props.Label()
	return Entry{
		ID:       n.ID,
		Label:    StripMnemonic(label),
		Enabled:  props.Enabled(),
		Toggle:   props.ToggleType(),
		Checked:  props.ToggleState(),
		Children: projectChildren(n),
	}
}

func presentable(n *Node) bool {
	props := n.Properties
	if !props.Visible() {
		return false
	}
	if props.IsSeparator() {
		return true
	}
	_, ok := props.Label()
	return ok
}

func (t *Tree) indexSubtree(n *Node) {
	n.Walk(func(cur *Node) bool {
		t.index[cur.ID] = cur
		return true
	})
}

func (t *Tree) unindexSubtree(n *Node) {
	n.Walk(func(cur *Node) bool {
		if t.index[cur.ID] == cur {
			delete(t.index, cur.ID)
		}
		return true
	})
}

// StripMnemonic removes access-key markers from a label: a single
// underscore is dropped and a doubled one renders as a literal underscore.
func StripMnemonic(label string) string {
	if !strings.Contains(label, "_") {
		return label
	}
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		if label[i] != '_' {
			b.WriteByte(label[i])
			continue
		}
		if i+1 < len(label) && label[i+1] == '_' {
			b.WriteByte('_')
			i++
		}
	}
	return b.String()
}
