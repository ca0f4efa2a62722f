// Package config handles trace library and global configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/matsen/btreeplay/internal/layout"
	"github.com/matsen/btreeplay/internal/scene"
)

const (
	LibraryDir = ".btreeplay"
	ConfigFile = "config.json"
	TracesFile = "traces.jsonl"
	CacheDir   = "cache"
	DBFile     = "traces.db"
)

// ErrNotInLibrary is returned when no .btreeplay directory is found.
var ErrNotInLibrary = errors.New("not in a trace library (no .btreeplay directory found)")

// ErrUnknownKey is returned by Get and Set for unsupported keys.
var ErrUnknownKey = errors.New("unknown config key")

// ValidFormats lists the supported render formats.
var ValidFormats = []string{"svg", "json", "text", "html"}

// Config is stored in .btreeplay/config.json. Fields missing from the file
// keep their defaults.
type Config struct {
	Layout        LayoutConfig   `json:"layout"`
	Playback      PlaybackConfig `json:"playback"`
	Terminal      TerminalConfig `json:"terminal"`
	DefaultFormat string         `json:"default_format"`
}

// LayoutConfig holds the geometry constants in canvas pixels.
type LayoutConfig struct {
	KeyWidth    float64 `json:"key_width"`
	Padding     float64 `json:"padding"`
	NodeHeight  float64 `json:"node_height"`
	LevelHeight float64 `json:"level_height"`
	Spacing     float64 `json:"spacing"`
	EmptyWidth  float64 `json:"empty_width"`
}

type PlaybackConfig struct {
	BaseDelayMS     int `json:"base_delay_ms"`
	ExtendedDelayMS int `json:"extended_delay_ms"`
}

type TerminalConfig struct {
	FramesPerSecond float64 `json:"frames_per_second"`
}

// Default returns the configuration written by `btp init`.
func Default() *Config {
	lo := layout.DefaultOptions()
	return &Config{
		Layout: LayoutConfig{
			KeyWidth:    lo.KeyWidth,
			Padding:     lo.Padding,
			NodeHeight:  lo.NodeHeight,
			LevelHeight: lo.LevelHeight,
			Spacing:     lo.Spacing,
			EmptyWidth:  lo.EmptyWidth,
		},
		Playback: PlaybackConfig{
			BaseDelayMS:     1200,
			ExtendedDelayMS: 2500,
		},
		Terminal:      TerminalConfig{FramesPerSecond: 10},
		DefaultFormat: "svg",
	}
}

// LibraryPath returns the path to the .btreeplay directory from a root path.
func LibraryPath(root string) string {
	return filepath.Join(root, LibraryDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, LibraryDir, ConfigFile)
}

// TracesPath returns the path to traces.jsonl from a root path.
func TracesPath(root string) string {
	return filepath.Join(root, LibraryDir, TracesFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, LibraryDir, CacheDir)
}

// DBPath returns the path to traces.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, LibraryDir, CacheDir, DBFile)
}

// IsLibrary checks if the given path contains a trace library.
func IsLibrary(root string) bool {
	info, err := os.Stat(LibraryPath(root))
	return err == nil && info.IsDir()
}

// FindLibrary walks up from start to the nearest directory holding a
// .btreeplay directory.
func FindLibrary(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsLibrary(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotInLibrary
		}
		abs = parent
	}
}

// Load reads configuration from the library at root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to the library at root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects sizes and delays that would produce an unusable scene.
func (c *Config) Validate() error {
	sizes := []struct {
		name string
		v    float64
	}{
		{"layout.key_width", c.Layout.KeyWidth},
		{"layout.node_height", c.Layout.NodeHeight},
		{"layout.level_height", c.Layout.LevelHeight},
		{"layout.empty_width", c.Layout.EmptyWidth},
		{"terminal.frames_per_second", c.Terminal.FramesPerSecond},
	}
	for _, s := range sizes {
		if s.v <= 0 {
			return fmt.Errorf("invalid %s: %g (must be positive)", s.name, s.v)
		}
	}
	if c.Layout.Padding < 0 || c.Layout.Spacing < 0 {
		return fmt.Errorf("invalid layout: padding and spacing must not be negative")
	}
	if c.Playback.BaseDelayMS <= 0 || c.Playback.ExtendedDelayMS <= 0 {
		return fmt.Errorf("invalid playback delays: %d/%d ms (must be positive)",
			c.Playback.BaseDelayMS, c.Playback.ExtendedDelayMS)
	}
	return ValidateFormat(c.DefaultFormat)
}

// ValidateFormat checks that format is a supported render format.
func ValidateFormat(format string) error {
	for _, f := range ValidFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s (valid: %v)", format, ValidFormats)
}

// LayoutOptions converts the layout section.
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{
		KeyWidth:    c.Layout.KeyWidth,
		Padding:     c.Layout.Padding,
		NodeHeight:  c.Layout.NodeHeight,
		LevelHeight: c.Layout.LevelHeight,
		Spacing:     c.Layout.Spacing,
		EmptyWidth:  c.Layout.EmptyWidth,
	}
}

// SceneOptions returns scene options built on the configured layout.
func (c *Config) SceneOptions() scene.Options {
	opts := scene.DefaultOptions()
	opts.Layout = c.LayoutOptions()
	if opts.ChipHeight > opts.Layout.NodeHeight {
		opts.ChipHeight = opts.Layout.NodeHeight
	}
	return opts
}

func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Playback.BaseDelayMS) * time.Millisecond
}

func (c *Config) ExtendedDelay() time.Duration {
	return time.Duration(c.Playback.ExtendedDelayMS) * time.Millisecond
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func floatField(p func(*Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*p(c), 'f', -1, 64) },
		set: func(c *Config, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*p(c) = v
			return nil
		},
	}
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*p(c) = v
			return nil
		},
	}
}

var fields = map[string]field{
	"layout.key_width":           floatField(func(c *Config) *float64 { return &c.Layout.KeyWidth }),
	"layout.padding":             floatField(func(c *Config) *float64 { return &c.Layout.Padding }),
	"layout.node_height":         floatField(func(c *Config) *float64 { return &c.Layout.NodeHeight }),
	"layout.level_height":        floatField(func(c *Config) *float64 { return &c.Layout.LevelHeight }),
	"layout.spacing":             floatField(func(c *Config) *float64 { return &c.Layout.Spacing }),
	"layout.empty_width":         floatField(func(c *Config) *float64 { return &c.Layout.EmptyWidth }),
	"playback.base_delay_ms":     intField(func(c *Config) *int { return &c.Playback.BaseDelayMS }),
	"playback.extended_delay_ms": intField(func(c *Config) *int { return &c.Playback.ExtendedDelayMS }),
	"terminal.frames_per_second": floatField(func(c *Config) *float64 { return &c.Terminal.FramesPerSecond }),
	"default_format": {
		get: func(c *Config) string { return c.DefaultFormat },
		set: func(c *Config, s string) error { c.DefaultFormat = s; return nil },
	},
}

// Keys returns every key accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "layout.key_width".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set parses and assigns value to key, then validates the result. On error
// the config is left unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	next := *c
	if err := f.set(&next, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
