// Package config provides configuration management for the Puter bridge
// server. It handles loading and parsing the YAML configuration file and
// provides structured access to server, logging and settings-storage options.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the TCP port the management API listens on.
	Port int `yaml:"port" json:"port"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile switches log output from stdout to rotating files.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogDir overrides the directory used for log files.
	LogDir string `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`

	// ManagementKey authenticates settings panel requests to the
	// management API. Empty disables the check (local development).
	ManagementKey string `yaml:"management-key,omitempty" json:"management-key,omitempty"`

	// SettingsFile is the path of the persisted user settings fragment.
	SettingsFile string `yaml:"settings-file" json:"settings-file"`

	// WatchSettings reloads the settings fragment when the file changes
	// on disk.
	WatchSettings bool `yaml:"watch-settings" json:"watch-settings"`

	// BridgePath is the websocket path the chat page connects to.
	BridgePath string `yaml:"bridge-path,omitempty" json:"bridge-path,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Port:          8317,
		SettingsFile:  "puter-settings.json",
		WatchSettings: true,
		BridgePath:    "/v0/puter/ws",
	}
}

// LoadConfig reads and parses the configuration. A missing file yields the
// defaults rather than an error so first runs work without setup.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", configFile, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configFile, err)
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.SettingsFile == "" {
		cfg.SettingsFile = DefaultConfig().SettingsFile
	}
	if cfg.BridgePath == "" {
		cfg.BridgePath = DefaultConfig().BridgePath
	}
	return cfg, nil
}

// SaveConfig writes the configuration back to disk.
func SaveConfig(configFile string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err = os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", configFile, err)
	}
	return nil
}
