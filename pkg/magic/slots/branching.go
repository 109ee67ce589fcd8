package slots

import (
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// conditional validates the shape shared by if, else-if and while: a condition
// followed by a .lambda body.
func conditional(n *lambda.Node) error {
	if n.Count() != 2 {
		return perrors.New("LAMBDA-0001", map[string]any{"Slot": n.Name, "Expected": 2, "Got": n.Count()})
	}
	if n.Last().Name != LambdaName {
		return perrors.New("LAMBDA-0002", map[string]any{"Slot": n.Name, "Name": LambdaName})
	}
	return nil
}

func ifCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	if err := conditional(n); err != nil {
		return err
	}
	ok, err := r.condition(s, n)
	n.Value = ok
	if err != nil || !ok {
		return err
	}
	return r.execute(s, n.Last())
}

func elseIfCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	if err := conditional(n); err != nil {
		return err
	}
	n.Value = false
	matched, err := chainMatched(n)
	if err != nil || matched {
		return err
	}
	ok, err := r.condition(s, n)
	n.Value = ok
	if err != nil || !ok {
		return err
	}
	return r.execute(s, n.Last())
}

func elseCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	matched, err := chainMatched(n)
	if err != nil || matched {
		return err
	}
	return r.execute(s, n)
}

// chainMatched walks the if/else-if siblings preceding n and reports whether
// any of them took its branch. Each if/else-if stores whether it was taken as
// its own value; conditions are never evaluated again here.
func chainMatched(n *lambda.Node) (bool, error) {
	prev := n.Previous()
	if prev == nil || (prev.Name != "if" && prev.Name != "else-if") {
		return false, perrors.New("LAMBDA-0003", map[string]any{"Slot": n.Name, "After": "an 'if' or 'else-if'"})
	}
	for ; prev != nil && (prev.Name == "if" || prev.Name == "else-if"); prev = prev.Previous() {
		if taken, _ := prev.Value.(bool); taken {
			return true, nil
		}
		if prev.Name == "if" {
			break
		}
	}
	return false, nil
}

func switchCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	var def *lambda.Node
	for _, c := range n.Children() {
		switch c.Name {
		case "case":
			if def != nil {
				return perrors.New("LAMBDA-0012", map[string]any{"Slot": "default", "Parent": n.Name})
			}
		case "default":
			if def != nil {
				return perrors.New("LAMBDA-0005", map[string]any{"Slot": n.Name, "Name": "default"})
			}
			def = c
		default:
			return perrors.New("LAMBDA-0004", map[string]any{"Slot": n.Name, "Child": c.Name})
		}
	}

	value, err := lambda.Evaluate(n)
	if err != nil {
		return err
	}

	var match *lambda.Node
	for _, c := range n.Children() {
		if c.Name == "case" && lambda.ValuesEqual(value, c.Value) {
			match = c
			break
		}
	}
	if match == nil {
		match = def
	}

	// a matched branch without a body falls through to the next one that has one
	for match != nil && match.Count() == 0 {
		match = match.Next()
	}
	if match == nil {
		return nil
	}
	return r.execute(s, match)
}
