package slots

import (
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

func whileCore(maxIterations int) coreFunc {
	return func(r runner, s *signals.Signaler, n *lambda.Node) error {
		if err := conditional(n); err != nil {
			return err
		}
		pristineCondition := n.First().Clone()
		pristineBody := n.Last().Clone()

		for iterations := 0; ; iterations++ {
			ok, err := r.condition(s, n)
			if err != nil || !ok {
				return err
			}
			if iterations == maxIterations {
				return perrors.New("LAMBDA-0007", map[string]any{"Max": maxIterations})
			}
			if err := r.execute(s, n.Last()); err != nil {
				return err
			}
			if returned(s) {
				return nil
			}
			replace(n.First(), pristineCondition.Clone())
			replace(n.Last(), pristineBody.Clone())
		}
	}
}

// replace puts fresh where old is.
func replace(old, fresh *lambda.Node) {
	parent := old.Parent()
	idx := old.Index()
	old.Untie()
	parent.Insert(idx, fresh)
}

func forEachCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	x, ok := n.Value.(*lambda.Expression)
	if !ok {
		return perrors.New("LAMBDA-0009", map[string]any{"Slot": n.Name})
	}
	items, err := x.Nodes(n)
	if err != nil {
		return err
	}

	pristine := make([]*lambda.Node, n.Count())
	for i, c := range n.Children() {
		pristine[i] = c.Clone()
	}
	restore := func() {
		n.Clear()
		for _, c := range pristine {
			n.Add(c.Clone())
		}
	}

	for _, item := range items {
		n.Insert(0, lambda.New(DataPointer, item))
		err := r.execute(s, n)
		restore()
		if err != nil {
			return err
		}
		if returned(s) {
			return nil
		}
	}
	return nil
}
