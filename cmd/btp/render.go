package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/matsen/btreeplay/internal/clipboard"
	"github.com/matsen/btreeplay/internal/config"
	"github.com/matsen/btreeplay/internal/playback"
	"github.com/matsen/btreeplay/internal/surface"
	"github.com/matsen/btreeplay/internal/trace"
	"github.com/matsen/btreeplay/internal/viewport"
	"github.com/spf13/cobra"
)

var (
	renderStep   int
	renderFormat string
	renderOutput string
	renderTarget string
	renderFocus  bool
	renderZoom   float64
	renderCopy   bool
)

func init() {
	renderCmd.Flags().IntVar(&renderStep, "step", 0, "Step to render; negative counts from the end (default: the trace's opening step)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "Output format: svg, json, text, html (default from config)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write to file instead of stdout")
	renderCmd.Flags().StringVar(&renderTarget, "target", "", "Key id to mark as the target (default: the trace's target)")
	renderCmd.Flags().BoolVar(&renderFocus, "focus", false, "Centre the SVG viewBox on the focused node")
	renderCmd.Flags().Float64Var(&renderZoom, "zoom", 1, "Zoom factor for the SVG viewBox")
	renderCmd.Flags().BoolVar(&renderCopy, "copy", false, "Copy the output to the clipboard instead of printing it")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <id|file>",
	Short: "Render one step of a trace",
	Long: `Render a single step of a stored trace, or of a response file, as SVG,
JSON scene primitives, coloured text or a one-frame HTML page.

Examples:
  btp render tr-3f9a02c1 --step 2 -o step2.svg
  btp render delete.json --step -1 --format text
  btp render tr-3f9a02c1 --format json --step 0 --focus
  btp render tr-3f9a02c1 --step -1 --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	l := mustLoadTrace(args[0])

	format := renderFormat
	if format == "" {
		format = l.Config.DefaultFormat
	}
	if err := config.ValidateFormat(format); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	index, err := stepIndex(l.Trace, renderStep, cmd.Flags().Changed("step"))
	if err != nil {
		exitWithError(ExitNotFound, "%v", err)
	}
	frame := playback.FrameAt(l.Trace.Steps, index, targetFor(l.Trace, renderTarget), playbackOptions(l.Config))

	if renderCopy {
		var buf bytes.Buffer
		if err := writeFrame(&buf, frame, format, l.Trace, false); err != nil {
			exitWithError(ExitError, "rendering: %v", err)
		}
		if err := clipboard.Copy(cmd.Context(), buf.String()); err != nil {
			exitWithError(ExitError, "copying to clipboard: %v", err)
		}
		if humanOutput {
			fmt.Printf("Copied step %d as %s (%d bytes)\n", index, format, buf.Len())
			return nil
		}
		return outputJSON(StatusResponse{Status: "copied", ID: l.Trace.ID})
	}

	out, err := openOutput(renderOutput)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	defer out.Close()

	toTerminal := renderOutput == "" || renderOutput == "-"
	if err := writeFrame(out, frame, format, l.Trace, toTerminal); err != nil {
		exitWithError(ExitError, "rendering: %v", err)
	}
	return nil
}

// stepIndex picks the step to show: the explicit one when given, otherwise
// where the trace opens.
func stepIndex(t *trace.Trace, step int, explicit bool) (int, error) {
	n := len(t.Steps)
	if !explicit {
		if t.StartAtEnd {
			return n - 1, nil
		}
		return 0, nil
	}
	if _, err := t.Step(step); err != nil {
		return 0, err
	}
	if step < 0 {
		step += n
	}
	return step, nil
}

func writeFrame(w io.Writer, f playback.Frame, format string, t *trace.Trace, toTerminal bool) error {
	switch format {
	case "json":
		return surface.WriteJSON(w, []playback.Frame{f}, true)
	case "text":
		_, err := io.WriteString(w, surface.FormatFrame(f, surface.TerminalWidth(), toTerminal && colorEnabled()))
		return err
	case "html":
		return surface.WriteHTML(w, []playback.Frame{f}, surface.PageOptions{Title: t.Name})
	default:
		return surface.WriteSVG(w, f.Scene, surface.SVGOptions{
			Standalone: true,
			Viewport:   frameViewport(f, renderFocus, renderZoom),
		})
	}
}

// frameViewport builds the viewBox transform for a frame drawn at its own
// size.
func frameViewport(f playback.Frame, focus bool, zoom float64) viewport.Viewport {
	vp := viewport.Identity()
	w, h := f.Scene.Width, f.Scene.Height
	if focus && f.Scene.Focus != nil {
		r := f.Scene.Focus
		vp = vp.CenterOn(r.X, r.Y, r.Width, r.Height, w, h)
	}
	if zoom > 0 && zoom != 1 {
		vp = vp.Zoom(zoom, w/2, h/2)
	}
	return vp
}
