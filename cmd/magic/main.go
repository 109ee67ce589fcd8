package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/magic/config"
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/files"
	"github.com/sambeau/magic/pkg/magic/hyperlambda"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/magic"
	"github.com/sambeau/magic/pkg/magic/repl"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError prints structured errors in their multi-line form
func printError(w io.Writer, err error) {
	var me *perrors.MagicError
	if errors.As(err, &me) {
		fmt.Fprintln(w, me.PrettyString())
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 {
		switch args[0] {
		case "fmt":
			return runFmtCommand(args[1:], stdout, stderr)
		case "vocabulary":
			return runVocabularyCommand(args[1:], stdout, stderr, getenv)
		case "config":
			return runConfigCommand(args[1:], stdout, stderr, getenv)
		}
	}
	return runMain(ctx, args, stdout, stderr, getenv)
}

// runMain executes code, files or the REPL
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("magic", flag.ContinueOnError)
	flags.SetOutput(io.Discard) // Suppress default -h output

	var (
		configPath  = flags.String("config", "", "Path to config file")
		evalCode    = flags.String("e", "", "Execute Hyperlambda code")
		check       = flags.Bool("check", false, "Check syntax without executing")
		startup     = flags.String("startup", "", "Folder of .hl files to execute first")
		watch       = flags.Bool("watch", false, "Re-execute startup files when they change")
		logLevel    = flags.String("log-level", "", "Override logging.level")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)
	flags.StringVar(evalCode, "eval", "", "Alias for -e")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "magic version %s (%s)\n", Version, Commit)
		return nil
	}
	if *check {
		if flags.NArg() == 0 {
			return errors.New("--check requires at least one file")
		}
		return checkFiles(flags.Args(), stdout, stderr)
	}

	cfg, err := loadConfig(*configPath, getenv)
	if err != nil {
		return err
	}
	if *startup != "" {
		cfg.Files.Startup = *startup
	}
	if *watch {
		cfg.Files.Watch = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	rt, err := newRuntime(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Files.Startup != "" {
		folder := files.NewFolder(rt, cfg.Files.Startup, stdout, stderr)
		if err := folder.Run(ctx); err != nil {
			return errors.New("startup files failed")
		}
		if cfg.Files.Watch {
			return folder.Watch(ctx)
		}
	}

	switch {
	case *evalCode != "":
		result, err := rt.ExecuteTextAsync(ctx, *evalCode)
		if err != nil {
			return err
		}
		return printResult(stdout, result)

	case flags.NArg() > 0:
		for _, path := range flags.Args() {
			result, err := files.ExecuteFile(ctx, rt, path)
			if err != nil {
				return err
			}
			if err := printResult(stdout, result); err != nil {
				return err
			}
		}
		return nil

	case cfg.Files.Startup != "":
		return nil

	default:
		repl.Start(stdout, rt, Version)
		return nil
	}
}

func loadConfig(path string, getenv func(string) string) (*config.Config, error) {
	cfg, _, err := config.LoadWithPath(path, getenv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newRuntime routes stdout and stderr logging through the command's writers.
func newRuntime(cfg *config.Config, stdout, stderr io.Writer) (*magic.Runtime, error) {
	var opts []magic.Option
	switch cfg.Logging.Output {
	case "", "stdout":
		opts = append(opts, magic.WithLogger(magic.WriterLogger(stdout)))
	case "stderr":
		opts = append(opts, magic.WithLogger(magic.WriterLogger(stderr)))
	}
	rt, err := magic.NewRuntime(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating runtime: %w", err)
	}
	return rt, nil
}

// printResult writes a returned value as text and returned nodes as Hyperlambda.
func printResult(w io.Writer, result *lambda.Node) error {
	if result.Value != nil {
		_, text, err := lambda.ToString(result.Value)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, text)
	}
	if result.Count() > 0 {
		out, err := hyperlambda.Generate(result)
		if err != nil {
			return err
		}
		io.WriteString(w, strings.ReplaceAll(out, hyperlambda.LineEnding, "\n"))
	}
	return nil
}

// checkFiles validates syntax without executing
func checkFiles(paths []string, stdout, stderr io.Writer) error {
	failed := 0
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := hyperlambda.Validate(string(content)); err != nil {
			var me *perrors.MagicError
			if errors.As(err, &me) {
				err = me.WithFile(path)
			}
			printError(stderr, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) with syntax errors", failed)
	}
	return nil
}

// runFmtCommand implements 'magic fmt'
func runFmtCommand(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("magic fmt", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	write := flags.Bool("w", false, "Write result to source file instead of stdout")
	list := flags.Bool("l", false, "List files whose formatting differs")

	if err := flags.Parse(args); err != nil {
		printFmtUsage(stderr)
		return err
	}
	if flags.NArg() == 0 {
		printFmtUsage(stderr)
		return errors.New("no files specified")
	}

	failed := 0
	for _, path := range flags.Args() {
		if err := formatFile(path, *write, *list, stdout); err != nil {
			printError(stderr, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be formatted", failed)
	}
	return nil
}

// formatFile rewrites a file in canonical Hyperlambda
func formatFile(path string, write, list bool, stdout io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	source := string(content)

	formatted, err := hyperlambda.Format(source)
	if err != nil {
		var me *perrors.MagicError
		if errors.As(err, &me) {
			return me.WithFile(path)
		}
		return err
	}
	changed := formatted != source

	switch {
	case list:
		if changed {
			fmt.Fprintln(stdout, path)
		}
	case write:
		if changed {
			if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
		}
	default:
		io.WriteString(stdout, formatted)
	}
	return nil
}

// runVocabularyCommand implements 'magic vocabulary [prefix]'
func runVocabularyCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	cfg, err := loadConfig("", getenv)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, e := range rt.Registry().Entries() {
		if strings.HasPrefix(e.Name, prefix) {
			fmt.Fprintf(stdout, "%-26s %s\n", e.Name, e.Description)
		}
	}
	return nil
}

// runConfigCommand implements 'magic config': the resolved configuration as
// YAML, with connection strings redacted.
func runConfigCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("magic config", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("config", "", "Path to config file")
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(stderr, "usage: magic config [--config PATH]")
		return err
	}

	cfg, path, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if path == "" {
		path = "built-in defaults"
	}
	fmt.Fprintf(stdout, "# %s\n", path)
	_, err = stdout.Write(out)
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `magic - Hyperlambda runtime

Usage:
  magic [options]                 Start interactive REPL
  magic [options] FILE...         Execute Hyperlambda files
  magic -e CODE                   Execute inline Hyperlambda
  magic --check FILE...           Check syntax without executing
  magic fmt [-w] [-l] FILE...     Format Hyperlambda files
  magic vocabulary [PREFIX]       List slots
  magic config [--config PATH]    Print the resolved config, secrets hidden

Options:
  --config PATH      Path to config file (default: auto-detect)
  -e, --eval CODE    Execute Hyperlambda code and print what it returns
  --check            Check syntax without executing
  --startup DIR      Execute every .hl file in DIR first
  --watch            Re-execute startup files when they change
  --log-level LEVEL  Override logging.level (debug, info, error)
  --version          Show version
  --help             Show this help

Config Resolution:
  1. --config flag
  2. MAGIC_CONFIG environment variable
  3. ./magic.yaml
  4. ~/.config/magic/magic.yaml
  5. built-in defaults

Examples:
  magic -e 'return:hello'
  magic script.hl
  magic --startup ./startup --watch
  magic fmt -w *.hl
  magic vocabulary data.

`)
}

func printFmtUsage(w io.Writer) {
	fmt.Fprintf(w, `magic fmt - format Hyperlambda files

Usage:
  magic fmt [options] FILE...

Options:
  -w    Write result to source file instead of stdout
  -l    List files whose formatting differs
`)
}
