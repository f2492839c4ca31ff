// Package core holds small process-level helpers shared by the CLI.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrNoEditor is returned when $EDITOR is unset and no fallback is installed.
var ErrNoEditor = errors.New("no editor found: set $EDITOR")

var fallbackEditors = []string{"nano", "vi"}

// ResolveEditor returns the editor command line: $EDITOR split on spaces, or
// the first of nano and vi found on PATH.
func ResolveEditor() ([]string, error) {
	if editor := strings.Fields(os.Getenv("EDITOR")); len(editor) > 0 {
		return editor, nil
	}
	for _, name := range fallbackEditors {
		if path, err := exec.LookPath(name); err == nil {
			return []string{path}, nil
		}
	}
	return nil, ErrNoEditor
}

// EditDirectory launches the user's editor on dir, from inside dir, and
// waits for it to exit.
func EditDirectory(ctx context.Context, dir string, stdin io.Reader, stdout, stderr io.Writer) error {
	editor, err := ResolveEditor()
	if err != nil {
		return err
	}

	args := append(editor[1:len(editor):len(editor)], dir)
	cmd := exec.CommandContext(ctx, editor[0], args...)
	cmd.Dir = dir
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s failed: %w", editor[0], err)
	}
	return nil
}
