package lambda

import (
	"testing"
)

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNodeAddMovesChild(t *testing.T) {
	a := New("a", nil)
	b := New("b", nil)
	c := New("c", nil)
	a.Add(c)
	b.Add(c)

	if a.Count() != 0 {
		t.Errorf("a still has %d children after move", a.Count())
	}
	if c.Parent() != b {
		t.Error("parent link not updated on move")
	}
	if b.Count() != 1 || b.First() != c {
		t.Error("c not attached to b")
	}
}

func TestNodeSiblingsComputedFromPosition(t *testing.T) {
	root := New("", nil, New("x", nil), New("y", nil), New("z", nil))
	y := root.Child(1)

	if y.Previous().Name != "x" || y.Next().Name != "z" {
		t.Fatalf("siblings of y = %v/%v", y.Previous(), y.Next())
	}

	root.First().Untie()
	if y.Previous() != nil {
		t.Errorf("Previous() after untie = %v, want nil", y.Previous())
	}
	if y.Index() != 0 {
		t.Errorf("Index() = %d, want 0", y.Index())
	}
	if got := names(root.Children()); !equalStrings(got, []string{"y", "z"}) {
		t.Errorf("children = %v", got)
	}
}

func TestNodeInsert(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{"front", 0, []string{"n", "a", "b"}},
		{"middle", 1, []string{"a", "n", "b"}},
		{"end", 2, []string{"a", "b", "n"}},
		{"clamped high", 99, []string{"a", "b", "n"}},
		{"clamped low", -3, []string{"n", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New("", nil, New("a", nil), New("b", nil))
			root.Insert(tt.index, New("n", nil))
			if got := names(root.Children()); !equalStrings(got, tt.want) {
				t.Errorf("children = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodeInsertBeforeAfter(t *testing.T) {
	root := New("", nil, New("a", nil), New("b", nil))
	if err := root.Child(1).InsertBefore(New("x", nil)); err != nil {
		t.Fatal(err)
	}
	if err := root.Child(0).InsertAfter(New("y", nil)); err != nil {
		t.Fatal(err)
	}
	if got := names(root.Children()); !equalStrings(got, []string{"a", "y", "x", "b"}) {
		t.Errorf("children = %v", got)
	}
	if err := root.InsertBefore(New("z", nil)); err == nil {
		t.Error("expected error inserting next to a root")
	}
}

func TestNodeCloneIsIndependent(t *testing.T) {
	inner := New("inner", "v")
	orig := New("root", inner, New("a", int32(1), New("b", "x")))
	clone := orig.Clone()

	if !Equal(orig, clone) {
		t.Fatal("clone is not structurally equal")
	}
	clone.First().First().Value = "changed"
	clone.Value.(*Node).Name = "renamed"
	if orig.First().First().Value != "x" {
		t.Error("mutating the clone changed the original's children")
	}
	if inner.Name != "inner" {
		t.Error("node values must be cloned")
	}
	if clone.First().Parent() != clone {
		t.Error("clone's children must point at the clone")
	}
}

func TestNodeCloneWithCyclicValue(t *testing.T) {
	tests := []struct {
		name  string
		build func() (root, start *Node)
	}{
		{"value points at root", func() (*Node, *Node) {
			root := New("", nil, New(".data", nil, New("item", int32(1))))
			loop := New("for-each", nil)
			root.Add(loop)
			loop.Add(New(".dp", root))
			return root, root
		}},
		{"value points at itself", func() (*Node, *Node) {
			n := New("self", nil, New("a", int32(1)))
			n.Value = n
			return n, n
		}},
		{"cloning below the cycle", func() (*Node, *Node) {
			root := New("", nil)
			loop := New("for-each", nil)
			root.Add(loop)
			dp := New(".dp", root)
			loop.Add(dp)
			return root, dp
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, start := tt.build()
			clone := start.Clone()
			if clone == start || clone.Parent() != nil {
				t.Fatal("clone must be a new detached node")
			}
			if !Equal(start, clone) {
				t.Error("clone is not structurally equal")
			}
			if !Equal(clone, clone.Clone()) {
				t.Error("cloning a clone changed its shape")
			}
		})
	}

	t.Run("values inside the copy are remapped", func(t *testing.T) {
		root := New("", nil, New("a", nil))
		root.First().Value = root
		clone := root.Clone()
		if clone.First().Value != clone {
			t.Errorf("value = %p, want the clone %p", clone.First().Value, clone)
		}
	})
}

func TestEqualWithCyclicValues(t *testing.T) {
	cyclic := func(leaf any) *Node {
		root := New("", nil, New("leaf", leaf))
		root.Add(New(".dp", root))
		return root
	}
	tests := []struct {
		name string
		a, b *Node
		want bool
	}{
		{"same shape", cyclic(int32(1)), cyclic(int32(1)), true},
		{"different leaf", cyclic(int32(1)), cyclic(int32(2)), false},
		{"node against scalar", New("a", New("b", nil)), New("a", "b"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodeClear(t *testing.T) {
	root := New("", nil, New("a", nil), New("b", nil))
	a := root.First()
	root.Clear()
	if root.Count() != 0 || a.Parent() != nil {
		t.Error("Clear() left children attached")
	}
}

func TestNodeAddBelowItselfPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	root := New("root", nil, New("a", nil))
	root.First().Add(root)
}

func TestNodeRootAndString(t *testing.T) {
	leaf := New("leaf", int32(5))
	New("top", nil, New("mid", nil, leaf))
	if leaf.Root().Name != "top" {
		t.Errorf("Root() = %q", leaf.Root().Name)
	}
	if leaf.String() != "leaf:5" {
		t.Errorf("String() = %q", leaf.String())
	}
	if New("bare", nil).String() != "bare" {
		t.Error("nil value should print name only")
	}
}
