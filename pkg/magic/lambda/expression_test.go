package lambda

import (
	"testing"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
)

// sample builds:
//
//	.data
//	   item:int:1
//	      name:foo
//	   item:int:2
//	      name:bar
//	   other
//	x
func sample() (*Node, *Node) {
	root := New("", nil,
		New(".data", nil,
			New("item", int32(1), New("name", "foo")),
			New("item", int32(2), New("name", "bar")),
			New("other", nil),
		),
	)
	identity := New("x", nil)
	root.Add(identity)
	return root, identity
}

func TestExpressionChildrenInOrder(t *testing.T) {
	n := New("n", nil, New("a", nil), New("b", nil), New("c", nil))
	x := MustParseExpression("*")
	got, err := x.Nodes(n)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(names(got), []string{"a", "b", "c"}) {
		t.Errorf("* = %v", names(got))
	}
}

func TestExpressionEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want []string // Dump-style name:value of each result
	}{
		{"", []string{"x"}},
		{"@.data/*", []string{"item:1", "item:2", "other"}},
		{"@.data/*/item", []string{"item:1", "item:2"}},
		{"@.data/*/=2", []string{"item:2"}},
		{"@.data/*/=", []string{"other"}},
		{"@.data/*/[1,1]", []string{"item:2"}},
		{"@.data/*/[1,5]", []string{"item:2", "other"}},
		{"@.data/*/[0,0]", nil},
		{"@.data/1", []string{"item:2"}},
		{"@.data/1/*/name", []string{"name:bar"}},
		{"@.data/*/*/name/.", []string{"item:1", "item:2"}},
		{"@.data/*/*/.", []string{"item:1", "item:2"}},
		{"@.data/**", []string{".data", "item:1", "name:foo", "item:2", "name:bar", "other"}},
		{"..", []string{""}},
		{"-", []string{".data"}},
		{"+", []string{".data"}},
		{"@.data/0/-", []string{"other"}},
		{"@.data/2/+", []string{"item:1"}},
		{`@.data/\item`, nil},
		{`@.data/*/\item`, []string{"item:1", "item:2"}},
		{"@nope", nil},
		{"@.data/*/nope/*", nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, identity := sample()
			x, err := ParseExpression(tt.expr)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.expr, err)
			}
			got, err := x.Nodes(identity)
			if err != nil {
				t.Fatalf("Nodes() error: %v", err)
			}
			var strs []string
			for _, n := range got {
				strs = append(strs, n.String())
			}
			if !equalStrings(strs, tt.want) {
				t.Errorf("%q = %v, want %v", tt.expr, strs, tt.want)
			}
		})
	}
}

func TestExpressionReflectsCurrentTree(t *testing.T) {
	root, identity := sample()
	x := MustParseExpression("@.data/*")
	before, _ := x.Nodes(identity)
	root.First().Add(New("late", nil))
	after, _ := x.Nodes(identity)
	if len(after) != len(before)+1 {
		t.Errorf("expected re-evaluation to see new child: %d then %d", len(before), len(after))
	}
}

func TestExpressionDereference(t *testing.T) {
	target := New("t", nil, New("a", nil))
	holder := New("h", target)
	New("", nil, holder, New("s", "not a node"))

	got, err := MustParseExpression("#/*").Nodes(holder)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(names(got), []string{"a"}) {
		t.Errorf("#/* = %v", names(got))
	}

	got, _ = MustParseExpression("+/#").Nodes(holder)
	if len(got) != 0 {
		t.Errorf("dereferencing a string should yield nothing, got %v", names(got))
	}
}

func TestExpressionQuotedSegments(t *testing.T) {
	root := New("", nil, New("a/b", nil, New("c", nil)), New("q", "x/y"))
	identity := root.First().First()

	got, err := MustParseExpression(`@"a/b"/*`).Nodes(identity)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(names(got), []string{"c"}) {
		t.Errorf(`@"a/b"/* = %v`, names(got))
	}

	got, _ = MustParseExpression(`../*/="x/y"`).Nodes(identity)
	if !equalStrings(names(got), []string{"q"}) {
		t.Errorf(`="x/y" = %v`, names(got))
	}

	got, _ = MustParseExpression(`../*/"a/b"`).Nodes(identity)
	if !equalStrings(names(got), []string{"a/b"}) {
		t.Errorf(`"a/b" = %v`, names(got))
	}
}

func TestExpressionIndirect(t *testing.T) {
	root := New("", nil, New("foo", int32(1)), New("bar", int32(2)))
	identity := New("x", nil, New("", "bar"))
	root.Add(identity)

	got, err := MustParseExpression("../*/{0}").Nodes(identity)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "bar" {
		t.Errorf("{0} = %v", names(got))
	}

	// The name may itself come from an expression.
	identity.First().Value = MustParseExpression("../*/foo")
	identity.Add(New("y", nil))
	_, err = MustParseExpression("../*/{0}").Nodes(identity)
	if err != nil {
		t.Fatalf("expression indirection error: %v", err)
	}

	if _, err := MustParseExpression("../*/{5}").Nodes(identity); err == nil {
		t.Error("expected error for missing indirect child")
	}

	identity.First().Value = MustParseExpression("../*")
	if _, err := MustParseExpression("../*/{0}").Nodes(identity); !perrors.HasCode(err, "TYPE-0003") {
		t.Errorf("multi-result indirection error = %v, want TYPE-0003", err)
	}
}

func TestParseExpressionErrors(t *testing.T) {
	tests := []string{
		"a//b",
		"a/",
		"/a",
		"@",
		"[x,1]",
		"[1]",
		"{a}",
		`"unterminated`,
		`"a"b`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := ParseExpression(src)
			if err == nil {
				t.Fatalf("ParseExpression(%q) succeeded", src)
			}
			if perrors.ClassOf(err) != perrors.ClassSyntax {
				t.Errorf("class = %q, want syntax", perrors.ClassOf(err))
			}
		})
	}
}

func TestExpressionStringIsSource(t *testing.T) {
	src := `@.data/*/"a/b"/[0,2]`
	if got := MustParseExpression(src).String(); got != src {
		t.Errorf("String() = %q", got)
	}
}
