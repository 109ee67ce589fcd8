// Package files runs Hyperlambda files and startup folders.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/magic"
)

// Extension marks Hyperlambda files.
const Extension = ".hl"

// ExecuteFile parses and runs the file at path through wait.eval, returning
// its result node. Errors carry the file name.
func ExecuteFile(ctx context.Context, rt *magic.Runtime, path string) (*lambda.Node, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	result, err := rt.ExecuteTextAsync(ctx, string(content))
	if err != nil {
		return nil, withFile(err, path)
	}
	return result, nil
}

func withFile(err error, path string) error {
	var me *perrors.MagicError
	if errors.As(err, &me) {
		return me.WithFile(path)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// Folder executes the Hyperlambda files below a directory.
type Folder struct {
	rt     *magic.Runtime
	dir    string
	stdout io.Writer
	stderr io.Writer
}

// NewFolder creates a Folder for dir. Progress goes to stdout, failures to stderr.
func NewFolder(rt *magic.Runtime, dir string, stdout, stderr io.Writer) *Folder {
	return &Folder{rt: rt, dir: dir, stdout: stdout, stderr: stderr}
}

// Dir returns the folder's directory.
func (f *Folder) Dir() string {
	return f.dir
}

// Files returns the .hl files below the folder in lexical order, skipping
// hidden directories.
func (f *Folder) Files() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != f.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if isHyperlambda(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read startup folder: %w", err)
	}
	return paths, nil
}

// Run executes every file in order. A failing file is reported and the
// remaining files still run; the failures are returned together.
func (f *Folder) Run(ctx context.Context) error {
	paths, err := f.Files()
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range paths {
		if err := f.runFile(ctx, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Folder) runFile(ctx context.Context, path string) error {
	if _, err := ExecuteFile(ctx, f.rt, path); err != nil {
		fmt.Fprintf(f.stderr, "[STARTUP ERROR] %v\n", err)
		return err
	}
	fmt.Fprintf(f.stdout, "[STARTUP] %s\n", f.rel(path))
	return nil
}

func (f *Folder) rel(path string) string {
	if rel, err := filepath.Rel(f.dir, path); err == nil {
		return rel
	}
	return path
}

func isHyperlambda(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}
