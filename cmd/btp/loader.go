package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/config"
	"github.com/matsen/btreeplay/internal/playback"
	"github.com/matsen/btreeplay/internal/trace"
)

// traceFromFile decodes a saved server response or bare step array.
func traceFromFile(path string, now time.Time) (*trace.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	resp, err := catalog.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return trace.FromResponse(resp, "", now)
}

// isFile reports whether arg names an existing regular file.
func isFile(arg string) bool {
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}

// loaded is a trace together with the configuration it should be drawn with.
type loaded struct {
	Trace  *trace.Trace
	Config *config.Config
}

// mustLoadTrace resolves arg as a file when one exists, otherwise as a trace
// id in the library. Files can be replayed without a library; defaults are
// used for configuration then.
func mustLoadTrace(arg string) loaded {
	if isFile(arg) {
		t, err := traceFromFile(arg, time.Now())
		if err != nil {
			exitWithError(ExitDataError, "%s: %v", arg, err)
		}
		return loaded{Trace: t, Config: optionalConfig()}
	}

	root := mustFindLibrary()
	cfg := mustLoadConfig(root)
	db := mustOpenDatabase(root)
	defer db.Close()

	t, err := db.GetTrace(arg)
	if err != nil {
		exitWithError(ExitError, "loading trace: %v", err)
	}
	if t == nil {
		exitWithError(ExitNotFound, "trace not found: %s (run 'btp rebuild' if traces.jsonl was edited)", arg)
	}
	return loaded{Trace: t, Config: cfg}
}

// optionalConfig returns the library config when run inside a library and
// the defaults otherwise.
func optionalConfig() *config.Config {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Default()
	}
	root, err := config.ResolveLibrary(cwd)
	if err != nil {
		return config.Default()
	}
	cfg, err := config.Load(root)
	if err != nil {
		slog.Warn("ignoring library config", "root", root, "error", err)
		return config.Default()
	}
	return cfg
}

// playbackOptions converts the configuration for playback.
func playbackOptions(cfg *config.Config) playback.Options {
	return playback.Options{
		Scene:         cfg.SceneOptions(),
		BaseDelay:     cfg.BaseDelay(),
		ExtendedDelay: cfg.ExtendedDelay(),
		Logger:        slog.Default(),
	}
}

// targetFor returns the override when set, else the trace's own target.
func targetFor(t *trace.Trace, override string) string {
	if override != "" {
		return override
	}
	return t.Target
}
