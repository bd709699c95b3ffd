package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds fscached's configuration options.
type Config struct {
	CacheDir string `json:"cache_dir"` //nolint:tagliatelle // snake_case for config file
	Format   string `json:"format,omitempty"`
}

// ConfigFileName is the default project-level config file name.
const ConfigFileName = ".fscached.json"

// DefaultConfig returns the built-in defaults, applied before any config
// file or flag is consulted.
func DefaultConfig() Config {
	return Config{
		CacheDir: ".fscache",
		Format:   "json",
	}
}

// getGlobalConfigPath returns $XDG_CONFIG_HOME/fscached/config.json if set
// in env, otherwise ~/.config/fscached/config.json. Returns "" if neither
// can be determined. env is a slice of "KEY=VALUE" strings (os.Environ's
// format) so tests can pin it without touching process-wide state.
func getGlobalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok && after != "" {
			return filepath.Join(after, "fscached", "config.json")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "fscached", "config.json")
}

// LoadConfig loads configuration with the following precedence (highest
// wins):
//  1. Defaults
//  2. Global user config (~/.config/fscached/config.json)
//  3. Project config file (.fscached.json in workDir, if present)
//  4. CLI overrides
func LoadConfig(workDir string, cliDir string, hasDirOverride bool, env []string) (Config, error) {
	cfg := DefaultConfig()

	if globalPath := getGlobalConfigPath(env); globalPath != "" {
		overlay, loaded, err := loadConfigFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}
		if loaded {
			cfg = mergeConfig(cfg, overlay)
		}
	}

	projectPath := filepath.Join(workDir, ConfigFileName)
	overlay, loaded, err := loadConfigFile(projectPath, false)
	if err != nil {
		return Config{}, err
	}
	if loaded {
		cfg = mergeConfig(cfg, overlay)
	}

	if hasDirOverride {
		cfg.CacheDir = cliDir
	}

	if cfg.CacheDir == "" {
		return Config{}, errCacheDirEmpty
	}

	return cfg, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally caller-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("%w: %s", errConfigFileRead, path)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.CacheDir != "" {
		base.CacheDir = overlay.CacheDir
	}
	if overlay.Format != "" {
		base.Format = overlay.Format
	}
	return base
}
