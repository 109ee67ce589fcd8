// Package repl implements the interactive Hyperlambda prompt.
//
// Lines are collected until a blank line, then the program is parsed and
// executed. Whatever the program returned is printed; a program that
// returns nothing prints its own tree as it was left after execution.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/hyperlambda"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/magic"
)

const PROMPT = ">> "
const PROMPT_ASYNC = "~> "
const CONTINUATION_PROMPT = ".. "

const MAGIC_LOGO = `
█▀▄▀█ ▄▀█ █▀▀ █ █▀▀
█░▀░█ █▀█ █▄█ █ █▄▄ `

// Start runs the REPL with line editing, history, and slot-name completion
func Start(out io.Writer, rt *magic.Runtime, version string) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	line.SetCompleter(func(input string) []string {
		return completions(input, rt.Vocabulary())
	})

	historyFile := filepath.Join(os.TempDir(), ".magic_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s", MAGIC_LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Enter a blank line to run, Tab completes slot names")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	s := newSession(out, rt)
	for {
		input, err := line.Prompt(s.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				if s.pending() {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				s.reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		program, done := s.feed(input)
		if program != "" {
			line.AppendHistory(program)
		}
		if done {
			return
		}
	}
}

// session holds the state between prompts
type session struct {
	out    io.Writer
	rt     *magic.Runtime
	buffer []string
	async  bool // When true, programs run through wait.eval
}

func newSession(out io.Writer, rt *magic.Runtime) *session {
	return &session{out: out, rt: rt}
}

func (s *session) prompt() string {
	switch {
	case s.pending():
		return CONTINUATION_PROMPT
	case s.async:
		return PROMPT_ASYNC
	default:
		return PROMPT
	}
}

func (s *session) pending() bool {
	return len(s.buffer) > 0
}

func (s *session) reset() {
	s.buffer = s.buffer[:0]
}

// feed handles one line of input. It returns the program text when a
// program ran, and done when the user asked to leave.
func (s *session) feed(input string) (program string, done bool) {
	trimmed := strings.TrimSpace(input)

	if !s.pending() {
		switch {
		case trimmed == "":
			return "", false
		case trimmed == "exit" || trimmed == "quit":
			fmt.Fprintln(s.out, "Goodbye!")
			return "", true
		case strings.HasPrefix(trimmed, ":"):
			s.command(trimmed)
			return "", false
		}
	}

	if trimmed != "" {
		s.buffer = append(s.buffer, strings.TrimRight(input, " \t"))
		return "", false
	}

	program = strings.Join(s.buffer, hyperlambda.LineEnding)
	s.reset()
	s.run(program)
	return program, false
}

// command handles REPL meta-commands that start with ':'
func (s *session) command(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?          Show this help")
		fmt.Fprintln(s.out, "  :vocabulary [prefix]   List slot names")
		fmt.Fprintln(s.out, "  :async                 Toggle running programs through wait.eval")
		fmt.Fprintln(s.out, "  exit, quit             Exit the REPL")
		fmt.Fprintln(s.out, "")
		fmt.Fprintln(s.out, "Programs:")
		fmt.Fprintln(s.out, "  Indent children by 3 spaces, end the program with a blank line.")

	case ":vocabulary", ":v":
		for _, slot := range s.rt.Vocabulary() {
			if strings.HasPrefix(slot, arg) {
				fmt.Fprintln(s.out, "  "+slot)
			}
		}

	case ":async":
		s.async = !s.async
		if s.async {
			fmt.Fprintln(s.out, "Async mode ON (wait.* slots allowed)")
		} else {
			fmt.Fprintln(s.out, "Async mode OFF")
		}

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// run parses and executes a program, printing its result or error.
func (s *session) run(text string) {
	program, err := hyperlambda.Parse(text)
	if err != nil {
		printError(s.out, err)
		return
	}

	var result *lambda.Node
	if s.async {
		result, err = s.rt.ExecuteAsync(context.Background(), program)
	} else {
		result, err = s.rt.Execute(program)
	}
	if err != nil {
		printError(s.out, err)
		return
	}

	var output string
	if result.Value != nil || result.Count() > 0 {
		display := lambda.New("result", result.Value)
		display.Add(slices.Clone(result.Children())...)
		output, err = hyperlambda.GenerateNode(display)
	} else {
		output, err = hyperlambda.Generate(program)
	}
	if err != nil {
		printError(s.out, err)
		return
	}
	if output == "" {
		io.WriteString(s.out, "OK\n")
		return
	}
	io.WriteString(s.out, strings.ReplaceAll(output, hyperlambda.LineEnding, "\n"))
	if !strings.HasSuffix(output, hyperlambda.LineEnding) {
		io.WriteString(s.out, "\n")
	}
}

// printError prints structured errors in their multi-line form
func printError(out io.Writer, err error) {
	var me *perrors.MagicError
	if errors.As(err, &me) {
		io.WriteString(out, me.PrettyString())
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

// completions returns whole-line suggestions for the slot name being typed
func completions(line string, vocabulary []string) []string {
	trimmed := strings.TrimLeft(line, " ")
	// Only the name part of a line completes
	if trimmed == "" || strings.ContainsAny(trimmed, ": \t") {
		return nil
	}
	indent := line[:len(line)-len(trimmed)]

	var matches []string
	for _, name := range vocabulary {
		if strings.HasPrefix(name, trimmed) {
			matches = append(matches, indent+name)
		}
	}
	return matches
}
