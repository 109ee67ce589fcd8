// Package slots implements the control-flow interpreter: the built-in slots
// that turn a lambda tree into an executable program.
//
// Every construct that can run in both modes has one core implementation
// parameterised by a runner. The synchronous runner dispatches with Signal.
// The asynchronous runner dispatches with SignalAsync whenever the target
// slot supports it and falls back to Signal otherwise.
package slots

import (
	"context"
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// Reserved names shared with every program the interpreter runs.
const (
	ResultKey   = "slots.result"
	LambdaName  = ".lambda"
	ArgsName    = ".arguments"
	DataPointer = ".dp"
	AsyncPrefix = "wait."
)

// DefaultMaxWhileIterations bounds while loops unless configured otherwise.
const DefaultMaxWhileIterations = 5000

// Options configures the interpreter slots.
type Options struct {
	MaxWhileIterations int
	// Procedures holds dynamic slots; nil means the process-wide table.
	Procedures *ProcedureTable
}

func (o Options) withDefaults() Options {
	if o.MaxWhileIterations <= 0 {
		o.MaxWhileIterations = DefaultMaxWhileIterations
	}
	if o.Procedures == nil {
		o.Procedures = Procedures
	}
	return o
}

// coreFunc is a construct implemented once for both execution modes.
type coreFunc func(r runner, s *signals.Signaler, n *lambda.Node) error

// runner decides how sub-steps are dispatched. A nil ctx means synchronous.
type runner struct {
	ctx context.Context
}

var syncRunner = runner{}

func (r runner) async() bool {
	return r.ctx != nil
}

// signal dispatches name, preferring the asynchronous path when running asynchronously.
func (r runner) signal(s *signals.Signaler, name string, n *lambda.Node) error {
	if !r.async() {
		return s.Signal(name, n)
	}
	e, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if e.SupportsAsync() {
		return s.SignalAsync(r.ctx, name, n)
	}
	return s.Signal(name, n)
}

// scope pushes an ambient value around body in the runner's mode.
func (r runner) scope(s *signals.Signaler, key string, value any, body func() error) error {
	if !r.async() {
		return s.Scope(key, value, body)
	}
	return s.ScopeAsync(r.ctx, key, value, func(ctx context.Context) error {
		return body()
	})
}

func syncEntry(name, description string, fn coreFunc) signals.Entry {
	return signals.Entry{
		Name:        name,
		Description: description,
		Sync: func(s *signals.Signaler, n *lambda.Node) error {
			return fn(syncRunner, s, n)
		},
	}
}

func asyncEntry(name, description string, fn coreFunc) signals.Entry {
	return signals.Entry{
		Name:        name,
		Description: description,
		Async: func(ctx context.Context, s *signals.Signaler, n *lambda.Node) error {
			return fn(runner{ctx: ctx}, s, n)
		},
	}
}

func dualEntry(name, description string, fn coreFunc) signals.Entry {
	e := syncEntry(name, description, fn)
	e.Async = asyncEntry(name, description, fn).Async
	return e
}

// Entries returns the interpreter's slots.
func Entries(opts Options) []signals.Entry {
	opts = opts.withDefaults()
	procs := opts.Procedures

	return []signals.Entry{
		// sequencing
		syncEntry("eval", "Executes the children of the node, or of the nodes its expression resolves to", evalCore),
		asyncEntry("wait.eval", "Asynchronous eval", evalCore),

		// branching
		dualEntry("if", "Executes .lambda when the condition is true", ifCore),
		dualEntry("else-if", "Executes .lambda when no earlier branch matched and the condition is true", elseIfCore),
		dualEntry("else", "Executes its children when no earlier branch matched", elseCore),
		dualEntry("switch", "Executes the first case whose value equals the switch value", switchCore),
		dualEntry("case", "Branch of a switch", misplacedCore("switch")),
		dualEntry("default", "Fallback branch of a switch", misplacedCore("switch")),

		// loops
		dualEntry("while", "Executes .lambda while the condition is true", whileCore(opts.MaxWhileIterations)),
		dualEntry("for-each", "Executes its children once per node the expression resolves to", forEachCore),

		// comparisons
		dualEntry("eq", "True if both operands are equal", comparison(opEq)),
		dualEntry("neq", "True if the operands differ", comparison(opNeq)),
		dualEntry("lt", "True if the first operand is less than the second", comparison(opLt)),
		dualEntry("lte", "True if the first operand is less than or equal to the second", comparison(opLte)),
		dualEntry("mt", "True if the first operand is more than the second", comparison(opMt)),
		dualEntry("mte", "True if the first operand is more than or equal to the second", comparison(opMte)),
		dualEntry("and", "True if every condition is true", andCore),
		dualEntry("or", "True if any condition is true", orCore),
		dualEntry("not", "Negates its condition", notCore),
		dualEntry("exists", "True if the expression yields at least one node", existsCore(true)),
		dualEntry("not-exists", "True if the expression yields no nodes", existsCore(false)),

		// mutation
		dualEntry("set-value", "Assigns the evaluated source to every destination", setValueCore),
		dualEntry("set-x", "Assigns the source value verbatim to every destination", setXCore),
		dualEntry("set-name", "Renames every destination", setNameCore),
		dualEntry("add", "Appends copies of the sources to every destination", addCore),
		dualEntry("insert-before", "Inserts copies of the sources before every destination", insertCore(true)),
		dualEntry("insert-after", "Inserts copies of the sources after every destination", insertCore(false)),
		dualEntry("remove-nodes", "Detaches every destination", removeNodesCore),
		dualEntry("convert", "Converts the value to the type named by the type child", convertCore),
		dualEntry("get-value", "Value of the node the expression resolves to", getValueCore),
		dualEntry("get-name", "Name of the node the expression resolves to", getNameCore),
		dualEntry("get-count", "Number of nodes the expression resolves to", getCountCore),
		dualEntry("get-nodes", "Copies of the nodes the expression resolves to", getNodesCore),
		dualEntry("unwrap", "Replaces expression values with what they resolve to", unwrapCore),
		dualEntry("reference", "Points the value at the node the expression resolves to", referenceCore),

		// dynamic procedures
		dualEntry("slots.create", "Registers a dynamic slot", procs.createCore),
		syncEntry("signal", "Invokes a dynamic slot", procs.signalCore),
		asyncEntry("wait.signal", "Invokes a dynamic slot asynchronously", procs.signalCore),
		dualEntry("slots.get", "Returns the body of a dynamic slot", procs.getCore),
		dualEntry("slots.exists", "True if a dynamic slot exists", procs.existsCore),
		dualEntry("slots.delete", "Removes a dynamic slot", procs.deleteCore),
		dualEntry("slots.vocabulary", "Names of dynamic slots", procs.vocabularyCore),

		// results
		dualEntry("return", "Returns a value or nodes to the caller", returnCore),
		dualEntry("return-value", "Returns a value to the caller", returnValueCore),
		dualEntry("return-nodes", "Returns nodes to the caller", returnNodesCore),

		// introspection
		dualEntry("vocabulary", "Names of static slots", vocabularyCore),
	}
}

// misplacedCore rejects structural names used outside their parent construct.
func misplacedCore(parent string) coreFunc {
	return func(_ runner, _ *signals.Signaler, n *lambda.Node) error {
		return perrors.New("LAMBDA-0003", map[string]any{"Slot": n.Name, "After": "a '" + parent + "'"})
	}
}

func vocabularyCore(_ runner, s *signals.Signaler, n *lambda.Node) error {
	prefix, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	n.Value = nil
	n.Clear()
	for _, name := range s.Registry().Names() {
		if strings.HasPrefix(name, prefix) {
			n.Add(lambda.New("", name))
		}
	}
	return nil
}
