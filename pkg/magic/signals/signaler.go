package signals

import (
	"context"
	"errors"
	"fmt"
	"io"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
)

// Logger receives output from logging slots.
type Logger interface {
	Log(values ...any)
	LogLine(values ...any)
}

// stdoutLogger is the default logger that writes to stdout
type stdoutLogger struct{}

func (l *stdoutLogger) Log(values ...any) {
	for i, v := range values {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(v)
	}
}

func (l *stdoutLogger) LogLine(values ...any) {
	l.Log(values...)
	fmt.Println()
}

// DefaultLogger is the default stdout logger
var DefaultLogger Logger = &stdoutLogger{}

// scopeEntry is one pushed ambient value
type scopeEntry struct {
	key   string
	value any
}

// Signaler dispatches slot names for one execution and owns that execution's
// scope stack. A Signaler must not be shared between concurrent executions.
type Signaler struct {
	registry *Registry
	logger   Logger
	stack    []scopeEntry
}

// Option configures a Signaler.
type Option func(*Signaler)

// WithLogger sets the logger used by logging slots.
func WithLogger(l Logger) Option {
	return func(s *Signaler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Signaler over registry.
func New(registry *Registry, opts ...Option) *Signaler {
	s := &Signaler{registry: registry, logger: DefaultLogger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the slot registry.
func (s *Signaler) Registry() *Registry {
	return s.registry
}

// Logger returns the execution's logger.
func (s *Signaler) Logger() Logger {
	return s.logger
}

// Lookup resolves a name, producing a dispatch error with a "did you mean" hint when absent.
func (s *Signaler) Lookup(name string) (Entry, error) {
	e, ok := s.registry.Lookup(name)
	if !ok {
		return Entry{}, perrors.NewUndefinedSlot(name, s.registry.Names())
	}
	return e, nil
}

// Signal invokes the synchronous implementation of the named slot.
func (s *Signaler) Signal(name string, n *lambda.Node) error {
	e, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if e.Sync == nil {
		return perrors.New("SLOT-0002", map[string]any{"Name": name})
	}
	return e.Sync(s, n)
}

// SignalAsync invokes the asynchronous implementation of the named slot.
func (s *Signaler) SignalAsync(ctx context.Context, name string, n *lambda.Node) error {
	e, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if e.Async == nil {
		return perrors.New("SLOT-0003", map[string]any{"Name": name})
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.Async(ctx, s, n)
}

// Scope pushes (key, value), runs body and pops the entry on every exit path.
// A value implementing io.Closer is closed after it is popped.
func (s *Signaler) Scope(key string, value any, body func() error) (err error) {
	s.push(key, value)
	defer func() {
		err = s.pop(value, err)
	}()
	return body()
}

// ScopeAsync is Scope for asynchronous bodies.
func (s *Signaler) ScopeAsync(ctx context.Context, key string, value any, body func(ctx context.Context) error) (err error) {
	s.push(key, value)
	defer func() {
		err = s.pop(value, err)
	}()
	return body(ctx)
}

func (s *Signaler) push(key string, value any) {
	s.stack = append(s.stack, scopeEntry{key: key, value: value})
}

// pop removes the top entry and releases its value.
func (s *Signaler) pop(value any, bodyErr error) error {
	s.stack[len(s.stack)-1] = scopeEntry{}
	s.stack = s.stack[:len(s.stack)-1]
	if c, ok := value.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			return errors.Join(bodyErr, cerr)
		}
	}
	return bodyErr
}

// Depth returns the number of pushed scope entries.
func (s *Signaler) Depth() int {
	return len(s.stack)
}

// peek returns the most recently pushed value for key.
func (s *Signaler) peek(key string) (any, bool) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].key == key {
			return s.stack[i].value, true
		}
	}
	return nil, false
}

// Peek returns the most recently pushed value for key as T. A value of
// another type is reported as absent.
func Peek[T any](s *Signaler, key string) (T, bool) {
	var zero T
	v, ok := s.peek(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
