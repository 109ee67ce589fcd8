package stdlib

import (
	"strings"

	"github.com/sambeau/magic/pkg/magic/hyperlambda"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// hyperToLambda replaces the node's value with the parsed children.
func hyperToLambda(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	src, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	root, err := hyperlambda.Parse(src)
	if err != nil {
		return err
	}
	children := append([]*lambda.Node(nil), root.Children()...)
	root.Clear()
	n.Value = nil
	n.Clear()
	n.Add(children...)
	return nil
}

// lambdaToHyper renders the nodes an expression value resolves to, or the
// node's own children.
func lambdaToHyper(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	var nodes []*lambda.Node
	if x, ok := n.Value.(*lambda.Expression); ok {
		resolved, err := x.Nodes(n)
		if err != nil {
			return err
		}
		nodes = resolved
	} else {
		nodes = n.Children()
	}

	var sb strings.Builder
	for _, c := range nodes {
		text, err := hyperlambda.GenerateNode(c)
		if err != nil {
			return err
		}
		sb.WriteString(text)
	}
	setResult(n, sb.String())
	return nil
}
