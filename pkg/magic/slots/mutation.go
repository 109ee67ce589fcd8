package slots

import (
	"time"

	"github.com/araddon/dateparse"
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// destinations resolves the node's expression value.
func destinations(n *lambda.Node) ([]*lambda.Node, error) {
	x, ok := n.Value.(*lambda.Expression)
	if !ok {
		return nil, perrors.New("LAMBDA-0009", map[string]any{"Slot": n.Name})
	}
	return x.Nodes(n)
}

// single resolves the node's expression to at most one node.
func single(n *lambda.Node) (*lambda.Node, error) {
	nodes, err := destinations(n)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	default:
		return nil, perrors.New("TYPE-0003", map[string]any{
			"Expression": n.Value.(*lambda.Expression).String(),
			"Count":      len(nodes),
		})
	}
}

// source returns the value of the optional single source child.
func source(n *lambda.Node, evaluate bool) (any, error) {
	switch n.Count() {
	case 0:
		return nil, nil
	case 1:
		if evaluate {
			return lambda.Evaluate(n.First())
		}
		return n.First().Value, nil
	default:
		return nil, perrors.New("LAMBDA-0001", map[string]any{"Slot": n.Name, "Expected": 1, "Got": n.Count()})
	}
}

// copyValue gives each destination its own copy of node values.
func copyValue(v any) any {
	if nested, ok := v.(*lambda.Node); ok && nested != nil {
		return nested.Clone()
	}
	return v
}

func assign(r runner, s *signals.Signaler, n *lambda.Node, evaluate bool) error {
	dest, err := destinations(n)
	if err != nil {
		return err
	}
	if evaluate {
		if err := r.execute(s, n); err != nil {
			return err
		}
	}
	v, err := source(n, evaluate)
	if err != nil {
		return err
	}
	for _, d := range dest {
		d.Value = copyValue(v)
	}
	return nil
}

func setValueCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	return assign(r, s, n, true)
}

func setXCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	return assign(r, s, n, false)
}

func setNameCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	dest, err := destinations(n)
	if err != nil {
		return err
	}
	if err := r.execute(s, n); err != nil {
		return err
	}
	v, err := source(n, true)
	if err != nil {
		return err
	}
	name, err := lambda.As[string](v)
	if err != nil {
		return err
	}
	for _, d := range dest {
		d.Name = name
	}
	return nil
}

// sources executes n's children, then collects what they contribute: the nodes
// an expression child resolves to, or a plain child's own children.
func sources(r runner, s *signals.Signaler, n *lambda.Node) ([]*lambda.Node, error) {
	if err := r.execute(s, n); err != nil {
		return nil, err
	}
	var out []*lambda.Node
	for _, c := range n.Children() {
		if x, ok := c.Value.(*lambda.Expression); ok {
			nodes, err := x.Nodes(c)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
			continue
		}
		out = append(out, c.Children()...)
	}
	return out, nil
}

func cloneAll(nodes []*lambda.Node) []*lambda.Node {
	out := make([]*lambda.Node, len(nodes))
	for i, c := range nodes {
		out[i] = c.Clone()
	}
	return out
}

func addCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	dest, err := destinations(n)
	if err != nil {
		return err
	}
	src, err := sources(r, s, n)
	if err != nil {
		return err
	}
	for _, d := range dest {
		d.Add(cloneAll(src)...)
	}
	return nil
}

func insertCore(before bool) coreFunc {
	return func(r runner, s *signals.Signaler, n *lambda.Node) error {
		dest, err := destinations(n)
		if err != nil {
			return err
		}
		src, err := sources(r, s, n)
		if err != nil {
			return err
		}
		for _, d := range dest {
			if d.Parent() == nil {
				return perrors.New("VALID-0001", map[string]any{"Message": "cannot insert a sibling next to a root node"})
			}
			anchor := d
			for _, c := range cloneAll(src) {
				if before {
					if err := d.InsertBefore(c); err != nil {
						return err
					}
					continue
				}
				if err := anchor.InsertAfter(c); err != nil {
					return err
				}
				anchor = c
			}
		}
		return nil
	}
}

func removeNodesCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	dest, err := destinations(n)
	if err != nil {
		return err
	}
	for _, d := range dest {
		d.Untie()
	}
	return nil
}

func convertCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	var typeNode *lambda.Node
	for _, c := range n.Children() {
		if c.Name == "type" {
			typeNode = c
		}
	}
	if typeNode == nil {
		return perrors.New("LAMBDA-0002", map[string]any{"Slot": n.Name, "Name": "type"})
	}
	tag, err := lambda.GetEx[string](typeNode)
	if err != nil {
		return err
	}
	v, err := lambda.Evaluate(n)
	if err != nil {
		return err
	}

	var converted any
	if text, ok := v.(string); ok && tag == "date" {
		converted, err = parseDate(text)
	} else {
		converted, err = lambda.Convert(v, tag)
	}
	if err != nil {
		return err
	}
	n.Value = converted
	n.Clear()
	return nil
}

// parseDate accepts the canonical layouts first, then anything dateparse recognises.
func parseDate(text string) (time.Time, error) {
	if t, err := lambda.ParseDate(text); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return time.Time{}, perrors.New("TYPE-0004", map[string]any{
			"Actual": "'" + text + "'",
			"Type":   "date",
			"Reason": err.Error(),
		})
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

func getValueCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	src, err := single(n)
	if err != nil {
		return err
	}
	n.Value = nil
	if src != nil {
		n.Value = copyValue(src.Value)
	}
	return nil
}

func getNameCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	src, err := single(n)
	if err != nil {
		return err
	}
	n.Value = nil
	if src != nil {
		n.Value = src.Name
	}
	return nil
}

func getCountCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	nodes, err := destinations(n)
	if err != nil {
		return err
	}
	n.Value = int32(len(nodes))
	return nil
}

func getNodesCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	nodes, err := destinations(n)
	if err != nil {
		return err
	}
	n.Value = nil
	n.Clear()
	n.Add(cloneAll(nodes)...)
	return nil
}

func unwrapCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	dest, err := destinations(n)
	if err != nil {
		return err
	}
	for _, d := range dest {
		if _, ok := d.Value.(*lambda.Expression); !ok {
			continue
		}
		v, err := lambda.Evaluate(d)
		if err != nil {
			return err
		}
		d.Value = copyValue(v)
	}
	return nil
}

func referenceCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	src, err := single(n)
	if err != nil {
		return err
	}
	if src == nil {
		n.Value = nil
		return nil
	}
	n.Value = src
	return nil
}
