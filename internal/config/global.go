package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LibraryEnv overrides every other way of locating the trace library.
const LibraryEnv = "BTP_LIBRARY"

// GlobalConfig represents configuration stored in ~/.config/btp/config.yml.
type GlobalConfig struct {
	LibraryPath string `yaml:"library_path,omitempty"`
	Color       string `yaml:"color,omitempty"` // auto, always or never
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "btp"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/btp/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}
	if err := ValidateColor(cfg.Color); err != nil {
		return nil, err
	}
	cfg.LibraryPath = ExpandPath(cfg.LibraryPath)

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// ValidateColor checks the color setting.
func ValidateColor(mode string) error {
	switch mode {
	case "", "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("invalid color: %s (valid: auto, always, never)", mode)
}

// ColorMode returns the configured color mode, "auto" when unset.
func (g *GlobalConfig) ColorMode() string {
	if g == nil || g.Color == "" {
		return "auto"
	}
	return g.Color
}

// ResolveLibrary locates the trace library: $BTP_LIBRARY first, then the
// nearest .btreeplay above cwd, then library_path from the global config.
func ResolveLibrary(cwd string) (string, error) {
	if env := os.Getenv(LibraryEnv); env != "" {
		root := ExpandPath(env)
		if !IsLibrary(root) {
			return "", fmt.Errorf("%s=%s: %w", LibraryEnv, root, ErrNotInLibrary)
		}
		return root, nil
	}

	if root, err := FindLibrary(cwd); err == nil {
		return root, nil
	}

	g, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if g.LibraryPath != "" {
		if !IsLibrary(g.LibraryPath) {
			return "", fmt.Errorf("library_path %s: %w", g.LibraryPath, ErrNotInLibrary)
		}
		return g.LibraryPath, nil
	}
	return "", ErrNotInLibrary
}

// HelpfulConfigMessage explains how to point btp at a library.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No trace library found.

Run 'btp init' in a directory to create one, set %s, or create %s:
  mkdir -p %s
  echo 'library_path: /path/to/your/library' > %s`,
		LibraryEnv,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
