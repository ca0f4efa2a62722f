package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/btreeplay/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new trace library",
	Long: `Initialize a new trace library in the current directory.

Creates:
  .btreeplay/
  ├── traces.jsonl    # Empty file
  ├── config.json     # Default config
  └── cache/          # Empty directory (gitignored)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsLibrary(root) {
		exitWithError(ExitError, "directory already contains a trace library")
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	f, err := os.Create(config.TracesPath(root))
	if err != nil {
		exitWithError(ExitError, "creating %s: %v", config.TracesFile, err)
	}
	f.Close()

	if err := os.WriteFile(gitignorePath(root), []byte(config.CacheDir+"/\n"), 0644); err != nil {
		exitWithError(ExitError, "creating .gitignore: %v", err)
	}

	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.ConfigFile, err)
	}

	if humanOutput {
		fmt.Printf("Initialized trace library in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}

func gitignorePath(root string) string {
	return filepath.Join(config.LibraryPath(root), ".gitignore")
}
