package magic

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sambeau/magic/pkg/magic/signals"
)

// Logger receives the output of the log.* slots. Executions share one logger,
// so every implementation here is safe for concurrent use.
type Logger = signals.Logger

// StdoutLogger is the logger used when logging.output is stdout.
func StdoutLogger() Logger {
	return signals.DefaultLogger
}

// WriterLogger sends log output to w, which is typically a log file or the
// writers of the magic command.
func WriterLogger(w io.Writer) Logger {
	return &syncLogger{w: w}
}

type syncLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *syncLogger) Log(values ...any)     { l.write(joinValues(values), "") }
func (l *syncLogger) LogLine(values ...any) { l.write(joinValues(values), "\n") }

func (l *syncLogger) write(text, end string) {
	l.mu.Lock()
	io.WriteString(l.w, text+end)
	l.mu.Unlock()
}

// BufferedLogger keeps log output in memory. Tests and embedders read it back
// with String or Lines.
type BufferedLogger struct {
	mu  sync.Mutex
	out strings.Builder
}

func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{}
}

func (l *BufferedLogger) Log(values ...any) {
	l.mu.Lock()
	l.out.WriteString(joinValues(values))
	l.mu.Unlock()
}

func (l *BufferedLogger) LogLine(values ...any) {
	l.mu.Lock()
	l.out.WriteString(joinValues(values))
	l.out.WriteByte('\n')
	l.mu.Unlock()
}

// String is everything logged so far, including an unterminated last line.
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.String()
}

// Lines returns the completed lines only.
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	text := l.out.String()
	end := strings.LastIndexByte(text, '\n')
	if end < 0 {
		return []string{}
	}
	return strings.Split(text[:end], "\n")
}

func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	l.out.Reset()
	l.mu.Unlock()
}

// NullLogger drops everything; logging.output none.
func NullLogger() Logger {
	return discard{}
}

type discard struct{}

func (discard) Log(...any)     {}
func (discard) LogLine(...any) {}

// joinValues renders slot arguments the way the stdout logger does.
func joinValues(values []any) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, v)
	}
	return sb.String()
}
