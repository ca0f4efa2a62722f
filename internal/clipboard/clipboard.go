// Package clipboard copies rendered output to the system clipboard through
// the platform's command-line helper.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard helper is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// helper is one clipboard program and the arguments that make it read stdin.
type helper struct {
	name string
	args []string
}

// helpers lists candidates per GOOS in order of preference.
var helpers = map[string][]helper{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip.exe"}},
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

func find(goos string) (helper, error) {
	for _, h := range helpers[goos] {
		if _, err := lookPath(h.name); err == nil {
			return h, nil
		}
	}
	return helper{}, ErrClipboardUnavailable
}

// IsAvailable reports whether a clipboard helper is installed.
func IsAvailable() bool {
	_, err := find(runtime.GOOS)
	return err == nil
}

// Copy places text on the system clipboard.
func Copy(ctx context.Context, text string) error {
	h, err := find(runtime.GOOS)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, h.name, h.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", h.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
