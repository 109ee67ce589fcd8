package lambda

import (
	"iter"
	"strconv"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
)

// Iterator is one compiled path segment: a function from an input sequence to an
// output sequence, evaluated relative to the identity node holding the expression.
type Iterator interface {
	Evaluate(identity *Node, input iter.Seq[*Node]) iter.Seq[*Node]
	String() string
}

// binder is implemented by iterators that must resolve state from the identity
// node before evaluation starts.
type binder interface {
	bind(identity *Node, x *Expression) (Iterator, error)
}

type childrenIterator struct{}

func (childrenIterator) String() string { return "*" }

func (childrenIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			for _, c := range n.children {
				if !yield(c) {
					return
				}
			}
		}
	}
}

type dereferenceIterator struct{}

func (dereferenceIterator) String() string { return "#" }

func (dereferenceIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			if v, ok := n.Value.(*Node); ok && v != nil {
				if !yield(v) {
					return
				}
			}
		}
	}
}

type previousIterator struct{}

func (previousIterator) String() string { return "-" }

func (previousIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			if n.parent == nil {
				continue
			}
			p := n.Previous()
			if p == nil {
				p = n.parent.Last()
			}
			if !yield(p) {
				return
			}
		}
	}
}

type nextIterator struct{}

func (nextIterator) String() string { return "+" }

func (nextIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			if n.parent == nil {
				continue
			}
			p := n.Next()
			if p == nil {
				p = n.parent.First()
			}
			if !yield(p) {
				return
			}
		}
	}
}

type parentIterator struct{}

func (parentIterator) String() string { return "." }

func (parentIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		seen := map[*Node]bool{}
		for n := range input {
			p := n.parent
			if p == nil || seen[p] {
				continue
			}
			seen[p] = true
			if !yield(p) {
				return
			}
		}
	}
}

type rootIterator struct{}

func (rootIterator) String() string { return ".." }

func (rootIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			yield(n.Root())
			return
		}
	}
}

type descendantsIterator struct{}

func (descendantsIterator) String() string { return "**" }

func (descendantsIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(n *Node) bool
		walk = func(n *Node) bool {
			if !yield(n) {
				return false
			}
			for _, c := range n.children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		for n := range input {
			if !walk(n) {
				return
			}
		}
	}
}

type nameIterator struct {
	name string
}

func (it nameIterator) String() string { return it.name }

func (it nameIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return filter(input, func(n *Node) bool { return n.Name == it.name })
}

type valueIterator struct {
	value string
}

func (it valueIterator) String() string { return "=" + it.value }

func (it valueIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return filter(input, func(n *Node) bool {
		if it.value == "" {
			return n.Value == nil
		}
		if n.Value == nil {
			return false
		}
		_, text, err := ToString(n.Value)
		return err == nil && text == it.value
	})
}

type sliceIterator struct {
	start, count int
}

func (it sliceIterator) String() string {
	return "[" + strconv.Itoa(it.start) + "," + strconv.Itoa(it.count) + "]"
}

func (it sliceIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if it.count == 0 {
			return
		}
		i, taken := 0, 0
		for n := range input {
			if i >= it.start {
				if !yield(n) {
					return
				}
				taken++
				if taken == it.count {
					return
				}
			}
			i++
		}
	}
}

type scanIterator struct {
	name string
}

func (it scanIterator) String() string { return "@" + it.name }

func (it scanIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for first := range input {
			for cur := prevOrParent(first); cur != nil; cur = prevOrParent(cur) {
				if cur.Name == it.name {
					yield(cur)
					return
				}
			}
			return
		}
	}
}

func prevOrParent(n *Node) *Node {
	if p := n.Previous(); p != nil {
		return p
	}
	return n.parent
}

type nthChildIterator struct {
	index int
}

func (it nthChildIterator) String() string { return strconv.Itoa(it.index) }

func (it nthChildIterator) Evaluate(_ *Node, input iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			if c := n.Child(it.index); c != nil {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// indirectIterator matches names against the value of the identity's n-th child.
type indirectIterator struct {
	index int
}

func (it indirectIterator) String() string { return "{" + strconv.Itoa(it.index) + "}" }

// Evaluate on an unbound indirect iterator yields nothing; Expression.Evaluate binds it first.
func (it indirectIterator) Evaluate(_ *Node, _ iter.Seq[*Node]) iter.Seq[*Node] {
	return func(func(*Node) bool) {}
}

func (it indirectIterator) bind(identity *Node, x *Expression) (Iterator, error) {
	child := identity.Child(it.index)
	if child == nil {
		return nil, perrors.New("LAMBDA-0002", map[string]any{
			"Slot": x.String(),
			"Name": strconv.Itoa(it.index),
		})
	}
	v, err := Evaluate(child)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nameIterator{}, nil
	}
	_, name, err := ToString(v)
	if err != nil {
		return nil, err
	}
	return nameIterator{name: name}, nil
}

func filter(input iter.Seq[*Node], keep func(*Node) bool) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range input {
			if keep(n) && !yield(n) {
				return
			}
		}
	}
}
