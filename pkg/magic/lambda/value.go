package lambda

import (
	"bytes"
	"cmp"
	"reflect"
	"time"

	"github.com/google/uuid"
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/shopspring/decimal"
)

// maxDereference bounds chains of expressions that resolve to further expressions.
const maxDereference = 64

// Get returns the node's value as T, coercing through the type converter when needed.
// A nil value yields the zero T.
func Get[T any](n *Node) (T, error) {
	return As[T](n.Value)
}

// GetEx is Get, except that an expression value is evaluated first with n as identity.
// Zero results yield the zero T; more than one result is an error.
func GetEx[T any](n *Node) (T, error) {
	v, err := Evaluate(n)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

// Evaluate returns the node's value, evaluating expressions until a non-expression
// value is reached. An expression that yields the node holding it is TYPE-0008.
func Evaluate(n *Node) (any, error) {
	cur := n
	for range maxDereference {
		x, ok := cur.Value.(*Expression)
		if !ok {
			return cur.Value, nil
		}
		nodes, err := x.Nodes(cur)
		if err != nil {
			return nil, err
		}
		switch len(nodes) {
		case 0:
			return nil, nil
		case 1:
			if nodes[0] == cur {
				return nil, perrors.New("TYPE-0008", map[string]any{"Expression": x.String()})
			}
			cur = nodes[0]
		default:
			return nil, perrors.New("TYPE-0003", map[string]any{
				"Expression": x.String(),
				"Count":      len(nodes),
			})
		}
	}
	return cur.Value, nil
}

// As coerces an arbitrary value to T.
func As[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	tag, ok := TypeOf(zero)
	if !ok || tag == "" {
		return zero, mismatch(zero, v)
	}
	converted, err := Convert(v, tag)
	if err != nil {
		return zero, mismatch(zero, v)
	}
	t, ok := converted.(T)
	if !ok {
		return zero, mismatch(zero, v)
	}
	return t, nil
}

func mismatch(expected, actual any) error {
	name := TypeName(expected)
	if tag, ok := TypeOf(expected); ok && tag != "" {
		name = tag
	}
	return perrors.New("TYPE-0001", map[string]any{
		"Expected": name,
		"Actual":   TypeName(actual),
	})
}

// Equal reports whether two trees have the same names, values and shape.
func Equal(a, b *Node) bool {
	return equal(a, b, make(map[[2]*Node]bool))
}

// equal treats a pair already under comparison as equal, so node values that
// point back into their own tree terminate.
func equal(a, b *Node, seen map[[2]*Node]bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	pair := [2]*Node{a, b}
	if seen[pair] {
		return true
	}
	seen[pair] = true
	if a.Name != b.Name || len(a.children) != len(b.children) {
		return false
	}
	if av, ok := a.Value.(*Node); ok {
		bv, ok := b.Value.(*Node)
		if !ok || !equal(av, bv, seen) {
			return false
		}
	} else if !ValuesEqual(a.Value, b.Value) {
		return false
	}
	for i := range a.children {
		if !equal(a.children[i], b.children[i], seen) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two values without coercion: values of different types are never equal.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	switch av := a.(type) {
	case *Node:
		return Equal(av, b.(*Node))
	case *Expression:
		return av.String() == b.(*Expression).String()
	case decimal.Decimal:
		return av.Equal(b.(decimal.Decimal))
	case time.Time:
		return av.Equal(b.(time.Time))
	case []byte:
		return bytes.Equal(av, b.([]byte))
	}
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// Compare orders two values of the same type.
func Compare(a, b any) (int, error) {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return 0, perrors.New("TYPE-0001", map[string]any{
			"Expected": TypeName(a),
			"Actual":   TypeName(b),
		})
	}
	switch av := a.(type) {
	case string:
		return cmp.Compare(av, b.(string)), nil
	case int32:
		return cmp.Compare(av, b.(int32)), nil
	case uint32:
		return cmp.Compare(av, b.(uint32)), nil
	case int64:
		return cmp.Compare(av, b.(int64)), nil
	case uint64:
		return cmp.Compare(av, b.(uint64)), nil
	case float64:
		return cmp.Compare(av, b.(float64)), nil
	case float32:
		return cmp.Compare(av, b.(float32)), nil
	case byte:
		return cmp.Compare(av, b.(byte)), nil
	case Char:
		return cmp.Compare(av, b.(Char)), nil
	case time.Duration:
		return cmp.Compare(av, b.(time.Duration)), nil
	case decimal.Decimal:
		return av.Cmp(b.(decimal.Decimal)), nil
	case time.Time:
		return av.Compare(b.(time.Time)), nil
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	case uuid.UUID:
		bv := b.(uuid.UUID)
		return bytes.Compare(av[:], bv[:]), nil
	}
	return 0, perrors.New("TYPE-0005", map[string]any{"Type": TypeName(a)})
}
