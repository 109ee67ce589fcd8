package stdlib

import (
	"strings"

	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelError
)

func (l logLevel) String() string {
	switch l {
	case levelInfo:
		return "INFO"
	case levelError:
		return "ERROR"
	default:
		return "DEBUG"
	}
}

// parseLevel reads a configured level name; anything unknown means debug.
func parseLevel(name string) logLevel {
	switch strings.ToLower(name) {
	case "info":
		return levelInfo
	case "error":
		return levelError
	default:
		return levelDebug
	}
}

// logAt writes "[LEVEL] message name=value..." when level is at or above minimum.
func logAt(level, minimum logLevel) leafFunc {
	return func(_ executor, s *signals.Signaler, n *lambda.Node) error {
		if level < minimum {
			return nil
		}
		msg, err := text(n)
		if err != nil {
			return err
		}
		values := []any{"[" + level.String() + "]", msg}
		for _, c := range n.Children() {
			v, err := text(c)
			if err != nil {
				return err
			}
			values = append(values, c.Name+"="+v)
		}
		s.Logger().LogLine(values...)
		return nil
	}
}

// text evaluates a node and renders its value the way Hyperlambda would.
func text(n *lambda.Node) (string, error) {
	v, err := lambda.Evaluate(n)
	if err != nil {
		return "", err
	}
	_, s, err := lambda.ToString(v)
	return s, err
}
