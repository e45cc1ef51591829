package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file location relative to the workspace.
const DefaultPath = ".patients/config.yaml"

// Config holds all patientdesk configuration.
type Config struct {
	// UI theme: "light" or "dark". Empty follows the terminal background.
	Theme string `yaml:"theme"`

	// Where patient records come from
	Data DataConfig `yaml:"data"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig selects the dataset provider.
type DataConfig struct {
	// YAML dataset path. Empty means the built-in sample patients.
	Path string `yaml:"path"`

	// Refresh the table when the dataset file changes.
	Watch bool `yaml:"watch"`

	// Quiet period before a file change triggers a refresh.
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("PATIENTS_DATA"); path != "" {
		c.Data.Path = path
	}
	if theme := os.Getenv("PATIENTS_THEME"); theme != "" {
		c.Theme = strings.ToLower(theme)
	}
	if v := os.Getenv("PATIENTS_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// GetDebounce returns the watcher quiet period.
func (c *Config) GetDebounce() time.Duration {
	if d, err := time.ParseDuration(c.Data.Debounce); err == nil && d > 0 {
		return d
	}
	return 300 * time.Millisecond
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Theme {
	case "", "light", "dark":
	default:
		return fmt.Errorf("unknown theme %q (want light or dark)", c.Theme)
	}
	if c.Data.Watch && c.Data.Path == "" {
		return fmt.Errorf("data.watch requires data.path")
	}
	if c.Data.Debounce != "" {
		if _, err := time.ParseDuration(c.Data.Debounce); err != nil {
			return fmt.Errorf("invalid data.debounce: %w", err)
		}
	}
	return nil
}
