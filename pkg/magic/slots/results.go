package slots

import (
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// resultScope returns the innermost result node.
func resultScope(s *signals.Signaler, n *lambda.Node) (*lambda.Node, error) {
	res, ok := signals.Peek[*lambda.Node](s, ResultKey)
	if !ok {
		return nil, perrors.New("STATE-0001", map[string]any{"Slot": n.Name})
	}
	return res, nil
}

// returnCore returns its evaluated value and copies of its children.
func returnCore(_ runner, s *signals.Signaler, n *lambda.Node) error {
	res, err := resultScope(s, n)
	if err != nil {
		return err
	}
	v, err := lambda.Evaluate(n)
	if err != nil {
		return err
	}
	if v != nil {
		res.Value = copyValue(v)
	}
	children, err := cloneResolved(n.Children())
	if err != nil {
		return err
	}
	res.Add(children...)
	return nil
}

func returnValueCore(_ runner, s *signals.Signaler, n *lambda.Node) error {
	res, err := resultScope(s, n)
	if err != nil {
		return err
	}
	v, err := lambda.Evaluate(n)
	if err != nil {
		return err
	}
	res.Value = copyValue(v)
	return nil
}

func returnNodesCore(_ runner, s *signals.Signaler, n *lambda.Node) error {
	res, err := resultScope(s, n)
	if err != nil {
		return err
	}
	if _, ok := n.Value.(*lambda.Expression); ok {
		nodes, err := destinations(n)
		if err != nil {
			return err
		}
		res.Add(cloneAll(nodes)...)
		return nil
	}
	children, err := cloneResolved(n.Children())
	if err != nil {
		return err
	}
	res.Add(children...)
	return nil
}
