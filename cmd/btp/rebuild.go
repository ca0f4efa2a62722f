package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query layer from source data",
	Long: `Rebuild the SQLite query database from the JSONL source file.

Use this after pulling changes from git or if the database becomes corrupted.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status string `json:"status"`
	Traces int    `json:"traces"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	count := mustSyncDatabase(root)

	if humanOutput {
		fmt.Printf("Rebuilt query database with %d traces\n", count)
		return nil
	}
	return outputJSON(RebuildResult{Status: "rebuilt", Traces: count})
}
