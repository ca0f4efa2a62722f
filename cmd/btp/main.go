// Package main provides the btp CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/matsen/btreeplay/internal/config"
	"github.com/matsen/btreeplay/internal/logging"
	"github.com/matsen/btreeplay/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	logLevel    string
	logFormat   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "btp",
	Short: "Replay B-tree operation traces",
	Long: `btp replays the step traces a catalog server records while it inserts,
deletes and searches books in its B-tree index.

Traces are stored in git-versionable JSONL with an ephemeral SQLite cache
for queries. Each step can be rendered as SVG, JSON or text, a whole trace
exported as a self-contained HTML player, or played back in the terminal.
All commands output JSON by default for easy scripting.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.Version = Version
}

// setup loads .env, installs the stderr logger and applies the color mode.
func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	if logFormat != "text" && logFormat != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", logFormat)
	}
	logger := logging.New(level, logFormat, os.Stderr)
	slog.SetDefault(logger)
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	g, err := config.LoadGlobalConfig()
	if err != nil {
		return err
	}
	switch g.ColorMode() {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
	return nil
}

// colorEnabled reports whether terminal output should be coloured. fatih/color
// already honours NO_COLOR and non-terminal stdout.
func colorEnabled() bool {
	return !color.NoColor
}

// mustFindLibrary locates the trace library, exits on error.
func mustFindLibrary() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.ResolveLibrary(cwd)
	if err != nil {
		if humanOutput {
			fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
			os.Exit(ExitConfigError)
		}
		exitWithError(ExitConfigError, "%v", err)
	}
	return root
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustSyncDatabase rebuilds the cache after the JSONL file changed.
func mustSyncDatabase(root string) int {
	db := mustOpenDatabase(root)
	defer db.Close()

	n, err := db.RebuildFromJSONL(config.TracesPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}
	slog.Debug("query cache rebuilt", "traces", n)
	return n
}
