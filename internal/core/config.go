// Package core holds the client configuration: where the office server
// lives, the auth token, and local paths.
package core

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// ErrNoServer means no server URL is configured anywhere.
var ErrNoServer = errors.New("no server configured; set server_url in the config or OFFICE_SERVER in the environment")

// Config is the on-disk client configuration.
type Config struct {
	Version        int    `json:"version"`
	ServerURL      string `json:"server_url"`
	Token          string `json:"token,omitempty"`
	DefaultChannel string `json:"default_channel,omitempty"`

	// CachePath overrides the message cache location. Empty means
	// <config dir>/messages.db.
	CachePath string `json:"cache_path,omitempty"`
}

// ConfigPath returns the config file location.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "office", "config.json"), nil
}

func ensureConfigDir() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// ReadConfig reads the config file if present. A missing file returns a
// zero config, not an error; env overrides still apply.
func ReadConfig() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return readConfigFile(path)
}

func readConfigFile(path string) (Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(config), nil
		}
		return Config{}, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	return applyEnv(config), nil
}

// applyEnv lets OFFICE_SERVER and OFFICE_TOKEN override the file, which
// keeps tokens out of dotfiles on shared machines.
func applyEnv(config Config) Config {
	if v := os.Getenv("OFFICE_SERVER"); v != "" {
		config.ServerURL = v
	}
	if v := os.Getenv("OFFICE_TOKEN"); v != "" {
		config.Token = v
	}
	return config
}

// WriteConfig writes the config to disk.
func WriteConfig(config Config) error {
	path, err := ensureConfigDir()
	if err != nil {
		return err
	}
	if config.Version == 0 {
		config.Version = 1
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// Channel resolves the channel to use: flag value, then config default,
// then "main".
func (c Config) Channel(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if c.DefaultChannel != "" {
		return c.DefaultChannel
	}
	return "main"
}

// CacheFile resolves the message cache path.
func (c Config) CacheFile() (string, error) {
	if c.CachePath != "" {
		return c.CachePath, nil
	}
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "messages.db"), nil
}

// Validate checks the config is usable for server calls.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return ErrNoServer
	}
	return nil
}
