package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/btreeplay/internal/storage"
	"github.com/matsen/btreeplay/internal/surface"
	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(touchingCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search step messages",
	Long: `Full-text search over the messages of every stored step.

Examples:
  btp search split
  btp search "BK-042"
  btp search "gộp" --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	query := strings.Join(args, " ")
	hits, err := db.SearchMessages(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	if !humanOutput {
		if hits == nil {
			hits = []storage.MessageHit{}
		}
		return outputJSON(hits)
	}

	if len(hits) == 0 {
		fmt.Printf("No steps match %q\n", query)
		return nil
	}
	table := newTable(os.Stdout, "TRACE", "STEP", "MESSAGE")
	for _, h := range hits {
		table.Append([]string{
			h.TraceID,
			strconv.Itoa(h.StepIndex),
			truncateString(surface.PlainMessage(h.Message), SearchTextMaxLen),
		})
	}
	table.Render()
	return nil
}

var touchingCmd = &cobra.Command{
	Use:   "touching <key>",
	Short: "List traces in which a key appears",
	Long: `List the traces whose snapshots contain the given key id at any step.

Example:
  btp touching BK-042`,
	Args: cobra.ExactArgs(1),
	RunE: runTouching,
}

func runTouching(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	traces, err := db.TracesTouchingKey(args[0])
	if err != nil {
		exitWithError(ExitError, "querying traces: %v", err)
	}

	if !humanOutput {
		if traces == nil {
			traces = []storage.Summary{}
		}
		return outputJSON(traces)
	}
	if len(traces) == 0 {
		fmt.Printf("No traces contain %s\n", args[0])
		return nil
	}
	printSummaries(traces)
	return nil
}
