package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/logging"
	"github.com/matsen/btreeplay/internal/playback"
	"github.com/matsen/btreeplay/internal/surface"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	playInteractive bool
	playTarget      string
	playFPS         float64
)

func init() {
	playCmd.Flags().BoolVarP(&playInteractive, "interactive", "i", false, "Step through the trace with the keyboard")
	playCmd.Flags().StringVar(&playTarget, "target", "", "Key id to mark as the target (default: the trace's target)")
	playCmd.Flags().Float64Var(&playFPS, "fps", 0, "Maximum redraws per second (default from config)")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <id|file>",
	Short: "Play a trace in the terminal",
	Long: `Play a trace in the terminal, one step at a time.

Without --interactive every step is shown in turn, lingering longer on steps
that reshape the tree. With --interactive the keys are:

  n, →     next step
  p, ←     previous step
  space    play / pause
  q        quit

Examples:
  btp play tr-3f9a02c1
  btp play search.json -i`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

const interactiveHelp = "[n] next  [p] prev  [space] play/pause  [q] quit"

func runPlay(cmd *cobra.Command, args []string) error {
	l := mustLoadTrace(args[0])
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	logger := logging.FromContext(ctx).With("trace", l.Trace.ID)

	fps := playFPS
	if fps <= 0 {
		fps = l.Config.Terminal.FramesPerSecond
	}
	stdoutFd := int(os.Stdout.Fd())
	isTTY := term.IsTerminal(stdoutFd)
	termOpts := surface.TerminalOptions{
		Color:           colorEnabled(),
		Clear:           isTTY,
		FramesPerSecond: fps,
		RawMode:         playInteractive,
		Context:         ctx,
	}
	if isTTY {
		if w, _, err := term.GetSize(stdoutFd); err == nil && w > 0 {
			termOpts.Width = w
		}
	}
	screen := surface.NewTerminal(os.Stdout, termOpts)

	opts := playbackOptions(l.Config)
	opts.Logger = logger
	stopped := make(chan struct{}, 1)
	opts.OnStop = func() {
		select {
		case stopped <- struct{}{}:
		default:
		}
	}

	target := targetFor(l.Trace, playTarget)
	var err error
	if playInteractive {
		err = playInteractively(ctx, l.Trace.Steps, target, l.Trace.StartAtEnd, screen, opts)
	} else {
		err = playThrough(ctx, l.Trace.Steps, target, screen, opts, stopped)
	}
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return screen.Err()
}

// playThrough shows every step from the first, then returns.
func playThrough(ctx context.Context, steps []catalog.Step, target string, screen *surface.Terminal, opts playback.Options, stopped <-chan struct{}) error {
	sess := playback.New(screen, opts)
	sess.Start(steps, target, false)
	if sess.Len() < 2 {
		return nil
	}

	// Linger on the first step like autoplay does on every other one.
	select {
	case <-time.After(opts.DelayFor(steps[0])):
	case <-ctx.Done():
		return nil
	}

	sess.Play()
	select {
	case <-stopped:
	case <-ctx.Done():
		sess.Stop()
	}
	return nil
}

// playInteractively puts the terminal in raw mode and maps keys to session
// controls until q or Ctrl-C.
func playInteractively(ctx context.Context, steps []catalog.Step, target string, startAtEnd bool, screen *surface.Terminal, opts playback.Options) error {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return fmt.Errorf("--interactive needs a terminal on stdin")
	}
	state, err := term.MakeRaw(stdinFd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(stdinFd, state)

	r := playback.RendererFunc(func(f playback.Frame) {
		screen.Render(f)
		fmt.Fprint(os.Stdout, "\r\n"+interactiveHelp+"\r\n")
	})
	sess := playback.New(r, opts)
	sess.Start(steps, target, startAtEnd)
	defer sess.Stop()

	keys := make(chan key)
	go readKeys(os.Stdin, keys)

	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			switch k {
			case keyNext:
				sess.Next()
			case keyPrev:
				sess.Prev()
			case keyPlay:
				sess.Play()
			case keyQuit:
				return nil
			}
		}
	}
}

type key int

const (
	keyNone key = iota
	keyNext
	keyPrev
	keyPlay
	keyQuit
)

// readKeys decodes raw-mode input into keys until r fails.
func readKeys(r io.Reader, out chan<- key) {
	defer close(out)
	buf := make([]byte, 8)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		for _, k := range decodeKeys(buf[:n]) {
			out <- k
		}
	}
}

// decodeKeys maps one read of terminal input to keys. Arrow keys arrive as
// ESC [ C and ESC [ D.
func decodeKeys(b []byte) []key {
	var keys []key
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case 'n', 'l':
			keys = append(keys, keyNext)
		case 'p', 'h':
			keys = append(keys, keyPrev)
		case ' ':
			keys = append(keys, keyPlay)
		case 'q', 3, 4: // q, Ctrl-C, Ctrl-D
			keys = append(keys, keyQuit)
		case 0x1b:
			if i+2 < len(b) && b[i+1] == '[' {
				switch b[i+2] {
				case 'C':
					keys = append(keys, keyNext)
				case 'D':
					keys = append(keys, keyPrev)
				}
				i += 2
			}
		}
	}
	return keys
}
