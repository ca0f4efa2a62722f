package main

import (
	"fmt"

	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/matsen/btreeplay/internal/surface"
	"github.com/matsen/btreeplay/internal/trace"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single trace by ID",
	Long: `Get a stored trace with all of its steps.

Example:
  btp get tr-3f9a02c1`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	t, err := db.GetTrace(args[0])
	if err != nil {
		exitWithError(ExitError, "getting trace: %v", err)
	}
	if t == nil {
		exitWithError(ExitNotFound, "trace not found: %s", args[0])
	}

	if humanOutput {
		printTraceDetail(t)
		return nil
	}
	return outputJSON(t)
}

func printTraceDetail(t *trace.Trace) {
	fmt.Printf("%s  %s\n", t.ID, t.Name)
	fmt.Printf("Operation: %s\n", t.Operation)
	if t.Target != "" {
		fmt.Printf("Target:    %s\n", t.Target)
	}
	fmt.Printf("Imported:  %s\n", t.ImportedAt.Local().Format(TimestampLayout))
	fmt.Printf("Steps:     %d\n\n", len(t.Steps))
	for i, s := range t.Steps {
		tags := highlight.TagsFor(s)
		fmt.Printf("  %3d  %-24s %s\n", i, tags, surface.PlainMessage(s.Message))
	}
}
