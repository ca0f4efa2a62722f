package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/matsen/btreeplay/internal/config"
	"github.com/matsen/btreeplay/internal/storage"
	"github.com/matsen/btreeplay/internal/trace"
	"github.com/spf13/cobra"
)

var (
	importName       string
	importTarget     string
	importOperation  string
	importStartAtEnd bool
)

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "Name for the trace (default: the response message)")
	importCmd.Flags().StringVar(&importTarget, "target", "", "Key id the trace is about (default: the response's book)")
	importCmd.Flags().StringVar(&importOperation, "op", "", "Operation (insert, delete, search, range); inferred when empty")
	importCmd.Flags().BoolVar(&importStartAtEnd, "start-at-end", false, "Open the trace on its last step")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a recorded trace",
	Long: `Import a catalog server response, or a bare JSON array of steps, into the
trace library.

A trace whose steps are identical to one already stored is reported as a
duplicate and not written again.

Examples:
  btp import insert-bk001.json
  btp import random.json --start-at-end --name "random insert"
  btp import search.json --target BK-042`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResponse is the JSON response for the import command.
type ImportResponse struct {
	Action    string          `json:"action"`
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Operation trace.Operation `json:"operation"`
	Steps     int             `json:"steps"`
}

func runImport(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()

	t, err := traceFromFile(args[0], time.Now())
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	if err := applyImportFlags(t); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	res, err := storage.Import(config.TracesPath(root), *t)
	if err != nil {
		exitWithError(ExitError, "importing trace: %v", err)
	}
	if res.Action == storage.ActionNew {
		mustSyncDatabase(root)
	}
	slog.Info("trace imported", "id", res.Trace.ID, "action", res.Action, "steps", len(res.Trace.Steps))

	if humanOutput {
		verb := "Imported"
		if res.Action == storage.ActionDuplicate {
			verb = "Already stored as"
		}
		fmt.Printf("%s %s (%s, %d steps)\n", verb, res.Trace.ID, res.Trace.Operation, len(res.Trace.Steps))
		return nil
	}
	return outputJSON(ImportResponse{
		Action:    res.Action,
		ID:        res.Trace.ID,
		Name:      res.Trace.Name,
		Operation: res.Trace.Operation,
		Steps:     len(res.Trace.Steps),
	})
}

func applyImportFlags(t *trace.Trace) error {
	if importName != "" {
		t.Name = importName
	}
	if importTarget != "" {
		t.Target = importTarget
	}
	if importOperation != "" {
		op, err := trace.ParseOperation(importOperation)
		if err != nil {
			return err
		}
		t.Operation = op
	}
	t.StartAtEnd = importStartAtEnd
	return nil
}
