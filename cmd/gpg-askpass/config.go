package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// fileConfig holds defaults read from the config file. Askpass helpers are
// often started by other programs with no way to pass flags.
type fileConfig struct {
	Socket      string `toml:"socket"`
	HomeDir     string `toml:"homedir"`
	CacheID     string `toml:"cache_id"`
	Prompt      string `toml:"prompt"`
	Description string `toml:"description"`
	Verbose     bool   `toml:"verbose"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/gpg-askpass/config.toml or its
// platform equivalent, or "" if there is no config directory.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "gpg-askpass", "config.toml")
}

// loadConfig reads path, expanding ${VAR} references. A missing file is not
// an error unless required is set.
func loadConfig(path string, required bool) (*fileConfig, error) {
	var cfg fileConfig

	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return &cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(expandEnvVars(string(data)), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return &cfg, nil
}

var envVarRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value. A bare $ is left
// alone.
func expandEnvVars(s string) string {
	return envVarRef.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarRef.FindStringSubmatch(match)[1])
	})
}
