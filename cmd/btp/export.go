package main

import (
	"github.com/matsen/btreeplay/internal/playback"
	"github.com/matsen/btreeplay/internal/surface"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportTarget string
	exportTitle  string
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportTarget, "target", "", "Key id to mark as the target (default: the trace's target)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Page title (default: the trace name)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <id|file>",
	Short: "Export a trace as a self-contained HTML player",
	Long: `Export every step of a trace into a single HTML page with previous, next
and play controls. Autoplay uses the same delays as 'btp play'.

Examples:
  btp export tr-3f9a02c1 -o insert.html
  btp export delete.json --target BK-007 > delete.html`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	l := mustLoadTrace(args[0])

	frames := playback.Sequence(l.Trace.Steps, targetFor(l.Trace, exportTarget), playbackOptions(l.Config))
	title := exportTitle
	if title == "" {
		title = l.Trace.Name
	}

	out, err := openOutput(exportOutput)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	defer out.Close()

	if err := surface.WriteHTML(out, frames, surface.PageOptions{Title: title, StartAtEnd: l.Trace.StartAtEnd}); err != nil {
		exitWithError(ExitError, "writing page: %v", err)
	}
	return nil
}
