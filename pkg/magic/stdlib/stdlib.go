// Package stdlib provides the leaf slots shipped with the runtime: logging,
// strings, dates, identifiers, password hashing, arithmetic and the
// Hyperlambda codec exposed as slots.
//
// Leaf slots never implement control flow themselves. When a slot needs its
// arguments computed first it asks the interpreter to eval its children, in
// whichever mode it was invoked.
package stdlib

import (
	"context"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// Options configures the leaf slots.
type Options struct {
	// LogLevel is the lowest level log.* slots write: debug, info or error.
	// Empty means debug.
	LogLevel string
}

// executor runs the instruction children of a node in the caller's mode.
type executor func(n *lambda.Node) error

// leafFunc is a slot implemented once for both execution modes.
type leafFunc func(exec executor, s *signals.Signaler, n *lambda.Node) error

func syncExecutor(s *signals.Signaler) executor {
	return func(n *lambda.Node) error {
		if n.Count() == 0 {
			return nil
		}
		return s.Signal("eval", n)
	}
}

func asyncExecutor(ctx context.Context, s *signals.Signaler) executor {
	return func(n *lambda.Node) error {
		if n.Count() == 0 {
			return nil
		}
		return s.SignalAsync(ctx, "wait.eval", n)
	}
}

func entry(name, description string, fn leafFunc) signals.Entry {
	return signals.Entry{
		Name:        name,
		Description: description,
		Sync: func(s *signals.Signaler, n *lambda.Node) error {
			return fn(syncExecutor(s), s, n)
		},
		Async: func(ctx context.Context, s *signals.Signaler, n *lambda.Node) error {
			return fn(asyncExecutor(ctx, s), s, n)
		},
	}
}

// Entries returns the leaf slots.
func Entries(opts Options) []signals.Entry {
	level := parseLevel(opts.LogLevel)

	return []signals.Entry{
		// logging
		entry("log.debug", "Writes a debug message", logAt(levelDebug, level)),
		entry("log.info", "Writes an informational message", logAt(levelInfo, level)),
		entry("log.error", "Writes an error message", logAt(levelError, level)),

		// strings
		entry("strings.concat", "Concatenates the values of its children", concat),
		entry("strings.length", "Number of characters in the value", length),
		entry("strings.trim", "Trims whitespace, or the characters of its child, from both ends", trim),
		entry("strings.to-upper", "Upper-cases the value", upper),
		entry("strings.to-lower", "Lower-cases the value", lower),
		entry("strings.replace", "Replaces every occurrence of the first child with the second", replace),

		// dates
		entry("date.now", "Current UTC time", now),
		entry("date.format", "Formats the date with the format child and optional culture", formatDate),
		entry("date.parse", "Parses a date in any common layout", parseDate),

		// identifiers and passwords
		entry("guid.new", "Creates a random guid", newGUID),
		entry("crypto.password.hash", "Hashes the value with bcrypt", hashPassword),
		entry("crypto.password.verify", "True if the value matches the hash child", verifyPassword),

		// codec
		entry("hyper2lambda", "Parses Hyperlambda text into children", hyperToLambda),
		entry("lambda2hyper", "Renders children as Hyperlambda text", lambdaToHyper),

		// arithmetic
		entry("math.add", "Sum of the operands", fold(opAdd)),
		entry("math.subtract", "First operand minus the rest", fold(opSubtract)),
		entry("math.multiply", "Product of the operands", fold(opMultiply)),
		entry("math.divide", "First operand divided by the rest", fold(opDivide)),
		entry("math.modulo", "Remainder of dividing the first operand by the rest", fold(opModulo)),
		entry("math.increment", "Adds the step (default 1) to every node the expression resolves to", step(opAdd)),
		entry("math.decrement", "Subtracts the step (default 1) from every node the expression resolves to", step(opSubtract)),

		// time
		{
			Name:        "wait.sleep",
			Description: "Pauses for the given number of milliseconds",
			Async:       sleep,
		},
	}
}

// child returns the first child called name, or nil.
func child(n *lambda.Node, name string) *lambda.Node {
	for _, c := range n.Children() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// setResult replaces the node's value and removes its arguments.
func setResult(n *lambda.Node, v any) {
	n.Value = v
	n.Clear()
}

func requireChild(slot string, c *lambda.Node, name string) error {
	if c == nil {
		return perrors.New("LAMBDA-0002", map[string]any{"Slot": slot, "Name": name})
	}
	return nil
}
