package slots

import (
	"slices"
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// evalCore executes n's children, or with an expression value and no children,
// the children of every node the expression resolves to.
func evalCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	x, ok := n.Value.(*lambda.Expression)
	if !ok || n.Count() > 0 {
		return r.execute(s, n)
	}
	targets, err := x.Nodes(n)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if err := r.execute(s, target); err != nil {
			return err
		}
		if returned(s) {
			return nil
		}
	}
	return nil
}

// execute runs the children of n in order, stopping early once a return has
// populated the ambient result.
func (r runner) execute(s *signals.Signaler, n *lambda.Node) error {
	for _, child := range slices.Clone(n.Children()) {
		if r.async() {
			if err := r.ctx.Err(); err != nil {
				return err
			}
		}
		if err := r.dispatch(s, child); err != nil {
			return err
		}
		if returned(s) {
			return nil
		}
	}
	return nil
}

// dispatch signals the slot named by n unless n is data.
func (r runner) dispatch(s *signals.Signaler, n *lambda.Node) error {
	if isData(n.Name) {
		return nil
	}
	if !r.async() && strings.HasPrefix(n.Name, AsyncPrefix) {
		return perrors.New("LAMBDA-0006", map[string]any{"Name": n.Name})
	}
	return r.signal(s, n.Name, n)
}

// isData reports whether a child is data rather than an instruction.
func isData(name string) bool {
	return name == "" || strings.HasPrefix(name, ".")
}

// returned reports whether the innermost result scope has been populated.
func returned(s *signals.Signaler) bool {
	res, ok := signals.Peek[*lambda.Node](s, ResultKey)
	return ok && (res.Value != nil || res.Count() > 0)
}

// condition executes the non-body children of n and reads the first child as a bool.
func (r runner) condition(s *signals.Signaler, n *lambda.Node) (bool, error) {
	if err := r.execute(s, n); err != nil {
		return false, err
	}
	return truth(n.First())
}

// truth reads a condition value: nil is false, anything but a bool is a type error.
func truth(n *lambda.Node) (bool, error) {
	v, err := lambda.Evaluate(n)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	default:
		return false, perrors.New("TYPE-0001", map[string]any{
			"Expected": "bool",
			"Actual":   lambda.TypeName(v),
		})
	}
}
