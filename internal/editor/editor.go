// Package editor launches the user's text editor on a file.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/thoreinstein/devenv/internal/errors"
)

// ErrNoEditor indicates no editor could be found.
var ErrNoEditor = errors.New("no editor found")

// Editor runs an interactive editor attached to the given streams.
type Editor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	getenv   func(string) string
	lookPath func(string) (string, error)
}

// New returns an Editor bound to the process's standard streams.
func New() *Editor {
	return &Editor{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
}

// Open edits path and waits for the editor to exit.
func (e *Editor) Open(ctx context.Context, path string) error {
	cmd, err := e.Command(ctx, path)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running %s", cmd.Path)
	}
	return nil
}

// Command builds the editor invocation for path. $VISUAL and $EDITOR may
// carry arguments, e.g. "code --wait".
func (e *Editor) Command(ctx context.Context, path string) (*exec.Cmd, error) {
	argv := e.resolve()
	if len(argv) == 0 {
		return nil, errors.WithHint(ErrNoEditor, "set $EDITOR, e.g. export EDITOR=vim")
	}
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd, nil
}

// resolve picks $VISUAL, then $EDITOR, then the first installed fallback.
func (e *Editor) resolve() []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(e.getenv(key)); len(fields) > 0 {
			return fields
		}
	}

	fallbacks := []string{"nano", "vim", "vi"}
	if runtime.GOOS == "windows" {
		fallbacks = []string{"notepad"}
	}
	for _, name := range fallbacks {
		if _, err := e.lookPath(name); err == nil {
			return []string{name}
		}
	}
	return nil
}
