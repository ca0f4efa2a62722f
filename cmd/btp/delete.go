package main

import (
	"fmt"

	"github.com/matsen/btreeplay/internal/config"
	"github.com/matsen/btreeplay/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a trace from the library",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()

	removed, ok, err := storage.Delete(config.TracesPath(root), args[0])
	if err != nil {
		exitWithError(ExitError, "deleting trace: %v", err)
	}
	if !ok {
		exitWithError(ExitNotFound, "trace not found: %s", args[0])
	}
	mustSyncDatabase(root)

	if humanOutput {
		fmt.Printf("Deleted %s\n", removed.ID)
		return nil
	}
	return outputJSON(StatusResponse{Status: "deleted", ID: removed.ID})
}
