package stdlib

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

func concat(exec executor, _ *signals.Signaler, n *lambda.Node) error {
	if err := exec(n); err != nil {
		return err
	}
	var sb strings.Builder
	for _, c := range n.Children() {
		s, err := text(c)
		if err != nil {
			return err
		}
		sb.WriteString(s)
	}
	setResult(n, sb.String())
	return nil
}

func length(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	s, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	setResult(n, int32(utf8.RuneCountInString(s)))
	return nil
}

func trim(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	s, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	if n.Count() == 0 {
		setResult(n, strings.TrimSpace(s))
		return nil
	}
	cutset, err := lambda.GetEx[string](n.First())
	if err != nil {
		return err
	}
	setResult(n, strings.Trim(s, cutset))
	return nil
}

// caser reads the optional culture child, defaulting to the root locale.
func caser(n *lambda.Node) (language.Tag, error) {
	c := child(n, "culture")
	if c == nil {
		return language.Und, nil
	}
	name, err := lambda.GetEx[string](c)
	if err != nil {
		return language.Und, err
	}
	tag, err := language.Parse(name)
	if err != nil {
		return language.Und, perrors.New("VALID-0001", map[string]any{"Message": "unknown culture '" + name + "'"})
	}
	return tag, nil
}

func upper(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	s, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	tag, err := caser(n)
	if err != nil {
		return err
	}
	setResult(n, cases.Upper(tag).String(s))
	return nil
}

func lower(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	s, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	tag, err := caser(n)
	if err != nil {
		return err
	}
	setResult(n, cases.Lower(tag).String(s))
	return nil
}

func replace(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	if n.Count() != 2 {
		return perrors.New("LAMBDA-0001", map[string]any{"Slot": n.Name, "Expected": 2, "Got": n.Count()})
	}
	s, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	old, err := lambda.GetEx[string](n.First())
	if err != nil {
		return err
	}
	repl, err := lambda.GetEx[string](n.Last())
	if err != nil {
		return err
	}
	setResult(n, strings.ReplaceAll(s, old, repl))
	return nil
}
