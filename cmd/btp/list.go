package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/matsen/btreeplay/internal/storage"
	"github.com/spf13/cobra"
)

var listLimit int

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored traces",
	Long: `List the traces in the library, newest first.

Examples:
  btp list
  btp list --limit 10 --human`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	traces, err := db.ListTraces(listLimit)
	if err != nil {
		exitWithError(ExitError, "listing traces: %v", err)
	}

	if !humanOutput {
		if traces == nil {
			traces = []storage.Summary{}
		}
		return outputJSON(traces)
	}

	if len(traces) == 0 {
		fmt.Println("No traces in library")
		return nil
	}
	total, _ := db.Count()
	if listLimit > 0 && listLimit < total {
		fmt.Printf("%d traces (showing first %d):\n\n", total, len(traces))
	} else {
		fmt.Printf("%d traces in library:\n\n", len(traces))
	}
	printSummaries(traces)
	return nil
}

func printSummaries(traces []storage.Summary) {
	table := newTable(os.Stdout, "ID", "OPERATION", "TARGET", "STEPS", "IMPORTED", "NAME")
	for _, s := range traces {
		table.Append([]string{
			s.ID,
			string(s.Operation),
			s.Target,
			strconv.Itoa(s.StepCount),
			s.ImportedAt.Local().Format(TimestampLayout),
			truncateString(s.Name, ListNameMaxLen),
		})
	}
	table.Render()
}
