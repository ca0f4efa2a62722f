package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/matsen/btreeplay/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set library configuration values.

Usage:
  btp config                              # Show all config
  btp config layout.key_width             # Get specific value
  btp config playback.base_delay_ms 800   # Set value

Keys:
  layout.key_width, layout.padding, layout.node_height,
  layout.level_height, layout.spacing, layout.empty_width
                              Node geometry in canvas pixels
  playback.base_delay_ms      Autoplay delay for ordinary steps
  playback.extended_delay_ms  Autoplay delay for steps that reshape the tree
  terminal.frames_per_second  Redraw cap for 'btp play'
  default_format              Format for 'btp render' (svg, json, text, html)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	cfg := mustLoadConfig(root)

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			table := newTable(os.Stdout, "KEY", "VALUE")
			for _, k := range config.Keys() {
				v, _ := cfg.Get(k)
				table.Append([]string{k, v})
			}
			table.Render()
			return nil
		}
		return outputJSON(cfg)
	}

	key := args[0]

	// One arg: get specific value
	if len(args) == 1 {
		v, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitConfigError, "%v (valid: %v)", err, config.Keys())
		}
		if humanOutput {
			fmt.Println(v)
			return nil
		}
		return outputJSON(map[string]string{key: v})
	}

	// Two args: set value
	if err := cfg.Set(key, args[1]); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			exitWithError(ExitConfigError, "%v (valid: %v)", err, config.Keys())
		}
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, args[1])
		return nil
	}
	return outputJSON(UpdateResponse{Status: "updated", Key: key, Value: args[1]})
}
