package slots

import (
	"reflect"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

type op int

const (
	opEq op = iota
	opNeq
	opLt
	opLte
	opMt
	opMte
)

// comparison executes both operands, then stores the outcome as a bool on the node.
func comparison(o op) coreFunc {
	return func(r runner, s *signals.Signaler, n *lambda.Node) error {
		if n.Count() != 2 {
			return perrors.New("LAMBDA-0001", map[string]any{"Slot": n.Name, "Expected": 2, "Got": n.Count()})
		}
		if err := r.execute(s, n); err != nil {
			return err
		}
		lhs, err := lambda.Evaluate(n.First())
		if err != nil {
			return err
		}
		rhs, err := lambda.Evaluate(n.Last())
		if err != nil {
			return err
		}
		result, err := compareValues(o, lhs, rhs)
		if err != nil {
			return err
		}
		n.Value = result
		return nil
	}
}

// compareValues never coerces: values of different types are unequal and unordered.
// Null orders before everything else, but only eq treats two nulls as a match.
func compareValues(o op, lhs, rhs any) (bool, error) {
	switch {
	case lhs == nil && rhs == nil:
		return o == opEq, nil
	case lhs == nil:
		return o == opNeq || o == opLt || o == opLte, nil
	case rhs == nil:
		return o == opNeq || o == opMt || o == opMte, nil
	case reflect.TypeOf(lhs) != reflect.TypeOf(rhs):
		return o == opNeq, nil
	}

	switch o {
	case opEq:
		return lambda.ValuesEqual(lhs, rhs), nil
	case opNeq:
		return !lambda.ValuesEqual(lhs, rhs), nil
	}

	c, err := lambda.Compare(lhs, rhs)
	if err != nil {
		return false, err
	}
	switch o {
	case opLt:
		return c < 0, nil
	case opLte:
		return c <= 0, nil
	case opMt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// test executes a single condition node and reads it as a bool.
func (r runner) test(s *signals.Signaler, n *lambda.Node) (bool, error) {
	if err := r.dispatch(s, n); err != nil {
		return false, err
	}
	return truth(n)
}

func andCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	return junction(r, s, n, false)
}

func orCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	return junction(r, s, n, true)
}

// junction evaluates conditions in order until one equals stopOn.
func junction(r runner, s *signals.Signaler, n *lambda.Node, stopOn bool) error {
	if n.Count() < 2 {
		return perrors.New("LAMBDA-0011", map[string]any{"Slot": n.Name, "Expected": 2, "Got": n.Count()})
	}
	for _, c := range n.Children() {
		ok, err := r.test(s, c)
		if err != nil {
			return err
		}
		if ok == stopOn {
			n.Value = stopOn
			return nil
		}
	}
	n.Value = !stopOn
	return nil
}

func notCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	if n.Count() != 1 {
		return perrors.New("LAMBDA-0001", map[string]any{"Slot": n.Name, "Expected": 1, "Got": n.Count()})
	}
	ok, err := r.test(s, n.First())
	if err != nil {
		return err
	}
	n.Value = !ok
	return nil
}

func existsCore(want bool) coreFunc {
	return func(_ runner, _ *signals.Signaler, n *lambda.Node) error {
		nodes, err := destinations(n)
		if err != nil {
			return err
		}
		n.Value = (len(nodes) > 0) == want
		return nil
	}
}
