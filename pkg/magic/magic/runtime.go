// Package magic provides the public API for embedding the Hyperlambda runtime.
//
// A Runtime assembles the static slot registry once from the interpreter,
// the standard slots, the data slots and any collaborator slots, then runs
// lambda trees against it. Every execution gets its own Signaler, so one
// Runtime can serve many goroutines.
//
//	rt, err := magic.NewRuntime(cfg)
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//	result, err := rt.ExecuteText("return:hello")
package magic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sambeau/magic/config"
	"github.com/sambeau/magic/pkg/magic/data"
	"github.com/sambeau/magic/pkg/magic/hyperlambda"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
	"github.com/sambeau/magic/pkg/magic/slots"
	"github.com/sambeau/magic/pkg/magic/stdlib"
)

// Runtime owns the slot registry and the resources shared by executions.
type Runtime struct {
	registry   *signals.Registry
	logger     Logger
	procedures *slots.ProcedureTable
	databases  *data.Databases
	closers    []io.Closer
}

// Option configures a Runtime.
type Option func(*options)

type options struct {
	logger     Logger
	extra      []signals.Entry
	procedures *slots.ProcedureTable
}

// WithLogger sets the logger for the log.* slots, overriding logging.output.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSlots registers additional slots. Names must not collide with built-ins.
func WithSlots(entries ...signals.Entry) Option {
	return func(o *options) {
		o.extra = append(o.extra, entries...)
	}
}

// WithProcedures uses t for dynamic slots instead of the process-wide table.
func WithProcedures(t *slots.ProcedureTable) Option {
	return func(o *options) {
		o.procedures = t
	}
}

// NewRuntime builds a Runtime from cfg. A nil cfg means config.Defaults().
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	o := options{procedures: slots.Procedures}
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{procedures: o.procedures}

	rt.logger = o.logger
	if rt.logger == nil {
		l, closer, err := outputLogger(cfg.Logging.Output)
		if err != nil {
			return nil, err
		}
		rt.logger = l
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	}

	rt.databases = data.New(dataOptions(cfg.Data))
	rt.closers = append(rt.closers, rt.databases)

	entries := slots.Entries(slots.Options{
		MaxWhileIterations: cfg.Interpreter.MaxWhileIterations,
		Procedures:         rt.procedures,
	})
	entries = append(entries, stdlib.Entries(stdlib.Options{LogLevel: cfg.Logging.Level})...)
	entries = append(entries, rt.databases.Entries()...)
	entries = append(entries, o.extra...)

	reg, err := signals.NewRegistry(entries...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.registry = reg
	return rt, nil
}

// outputLogger maps logging.output to a logger. A file is opened for append
// and returned as a closer.
func outputLogger(output string) (Logger, io.Closer, error) {
	switch output {
	case "", "stdout":
		return StdoutLogger(), nil, nil
	case "stderr":
		return WriterLogger(os.Stderr), nil, nil
	case "none":
		return NullLogger(), nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	return WriterLogger(f), f, nil
}

func dataOptions(c config.DataConfig) data.Options {
	conns := make(map[string]data.Connection, len(c.Connections))
	for name, cc := range c.Connections {
		conns[name] = data.Connection{Driver: cc.Driver, DSN: cc.DSN.Value()}
	}
	return data.Options{
		Default:     c.Default,
		Connections: conns,
		CacheSize:   c.CacheSize,
		CacheTTL:    c.CacheTTL,
	}
}

// Registry returns the static slot registry.
func (rt *Runtime) Registry() *signals.Registry {
	return rt.registry
}

// Procedures returns the dynamic slot table.
func (rt *Runtime) Procedures() *slots.ProcedureTable {
	return rt.procedures
}

// Logger returns the logger handed to every execution.
func (rt *Runtime) Logger() Logger {
	return rt.logger
}

// Vocabulary returns the sorted names of static and dynamic slots.
func (rt *Runtime) Vocabulary() []string {
	names := append(rt.registry.Names(), rt.procedures.Names("")...)
	sort.Strings(names)
	return names
}

func (rt *Runtime) signaler() *signals.Signaler {
	return signals.New(rt.registry, signals.WithLogger(rt.logger))
}

// Execute runs the children of program synchronously and returns the result
// node populated by return slots. The program is mutated in place.
func (rt *Runtime) Execute(program *lambda.Node) (*lambda.Node, error) {
	s := rt.signaler()
	result := lambda.New("", nil)
	err := s.Scope(slots.ResultKey, result, func() error {
		return s.Signal("eval", program)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteAsync runs program through wait.eval. Cancelling ctx stops the
// execution at the next step.
func (rt *Runtime) ExecuteAsync(ctx context.Context, program *lambda.Node) (*lambda.Node, error) {
	s := rt.signaler()
	result := lambda.New("", nil)
	err := s.ScopeAsync(ctx, slots.ResultKey, result, func(ctx context.Context) error {
		return s.SignalAsync(ctx, "wait.eval", program)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteText parses Hyperlambda and executes it synchronously.
func (rt *Runtime) ExecuteText(text string) (*lambda.Node, error) {
	program, err := hyperlambda.Parse(text)
	if err != nil {
		return nil, err
	}
	return rt.Execute(program)
}

// ExecuteTextAsync parses Hyperlambda and executes it asynchronously.
func (rt *Runtime) ExecuteTextAsync(ctx context.Context, text string) (*lambda.Node, error) {
	program, err := hyperlambda.Parse(text)
	if err != nil {
		return nil, err
	}
	return rt.ExecuteAsync(ctx, program)
}

// Close releases pooled databases and the log file, if any.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
