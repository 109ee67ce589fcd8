// Package lambda implements the node tree that every Magic program is made of,
// the expression engine that navigates it, and the scalar type converter
// shared by the Hyperlambda codec and the interpreter.
//
// A Node has a name, an optional value and an ordered list of children. A
// parent exclusively owns its children: adding a node that already has a
// parent moves it. Sibling navigation is always computed from the node's
// current position, so detaching a node never leaves stale links behind.
package lambda

import (
	"fmt"
	"strings"
)

// Node is the only data structure of the runtime.
type Node struct {
	Name  string
	Value any

	parent   *Node
	children []*Node
}

// New creates a node and attaches children to it in order.
func New(name string, value any, children ...*Node) *Node {
	n := &Node{Name: name, Value: value}
	n.Add(children...)
	return n
}

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Root walks parent links until it reaches a node without a parent.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Children returns the node's children in declaration order.
// The returned slice must not be modified; use Add, Insert and Untie instead.
func (n *Node) Children() []*Node {
	return n.children
}

// Count returns the number of children.
func (n *Node) Count() int {
	return len(n.children)
}

// Child returns the i-th child, or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// First returns the first child, or nil.
func (n *Node) First() *Node {
	return n.Child(0)
}

// Last returns the last child, or nil.
func (n *Node) Last() *Node {
	return n.Child(len(n.children) - 1)
}

// Index returns the node's position among its parent's children, or -1 for a root.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Previous returns the preceding sibling, or nil.
func (n *Node) Previous() *Node {
	idx := n.Index()
	if idx <= 0 {
		return nil
	}
	return n.parent.children[idx-1]
}

// Next returns the following sibling, or nil.
func (n *Node) Next() *Node {
	idx := n.Index()
	if idx < 0 || idx+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[idx+1]
}

// Add appends children, moving each one out of its current parent first.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		n.mustNotContain(c)
		c.Untie()
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Insert places child at index, clamped to the valid range.
func (n *Node) Insert(index int, child *Node) {
	n.mustNotContain(child)
	child.Untie()
	if index < 0 {
		index = 0
	}
	if index > len(n.children) {
		index = len(n.children)
	}
	child.parent = n
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
}

// InsertBefore inserts sibling immediately before n.
func (n *Node) InsertBefore(sibling *Node) error {
	if n.parent == nil {
		return fmt.Errorf("cannot insert before root node '%s'", n.Name)
	}
	if sibling == n {
		return nil
	}
	sibling.Untie()
	n.parent.Insert(n.Index(), sibling)
	return nil
}

// InsertAfter inserts sibling immediately after n.
func (n *Node) InsertAfter(sibling *Node) error {
	if n.parent == nil {
		return fmt.Errorf("cannot insert after root node '%s'", n.Name)
	}
	if sibling == n {
		return nil
	}
	sibling.Untie()
	n.parent.Insert(n.Index()+1, sibling)
	return nil
}

// Untie detaches the node from its parent and returns it.
func (n *Node) Untie() *Node {
	p := n.parent
	if p == nil {
		return n
	}
	idx := n.Index()
	copy(p.children[idx:], p.children[idx+1:])
	p.children[len(p.children)-1] = nil
	p.children = p.children[:len(p.children)-1]
	n.parent = nil
	return n
}

// Clear removes all children.
func (n *Node) Clear() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Clone returns a fully independent deep copy. Node values are cloned as well;
// expressions are immutable and therefore shared. A node value that points at a
// node already being copied, such as an ancestor, is remapped to that copy.
func (n *Node) Clone() *Node {
	return n.clone(make(map[*Node]*Node))
}

func (n *Node) clone(seen map[*Node]*Node) *Node {
	clone := &Node{Name: n.Name}
	if _, ok := seen[n]; !ok {
		seen[n] = clone
	}
	clone.Value = n.Value
	if nested, ok := n.Value.(*Node); ok && nested != nil {
		if copied, ok := seen[nested]; ok {
			clone.Value = copied
		} else {
			clone.Value = nested.clone(seen)
		}
	}
	if len(n.children) > 0 {
		clone.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			cc := c.clone(seen)
			cc.parent = clone
			clone.children[i] = cc
		}
	}
	return clone
}

// String renders the node as name:value for diagnostics.
func (n *Node) String() string {
	if n.Value == nil {
		return n.Name
	}
	_, text, err := ToString(n.Value)
	if err != nil {
		text = fmt.Sprint(n.Value)
	}
	return n.Name + ":" + text
}

// Dump renders the node and its descendants, one per line, for diagnostics.
func (n *Node) Dump() string {
	var sb strings.Builder
	var walk func(cur *Node, depth int)
	walk = func(cur *Node, depth int) {
		sb.WriteString(strings.Repeat("   ", depth))
		sb.WriteString(cur.String())
		sb.WriteString("\n")
		for _, c := range cur.children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
	return sb.String()
}

// mustNotContain guards the tree shape: a node can never become its own descendant.
func (n *Node) mustNotContain(c *Node) {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == c {
			panic(fmt.Sprintf("lambda: cannot add node '%s' below itself", c.Name))
		}
	}
}
