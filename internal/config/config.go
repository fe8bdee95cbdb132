// Package config loads the repo-local viewer configuration from
// .blameview.yaml. A missing file yields the defaults.
package config

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Log levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config represents the viewer configuration.
type Config struct {
	// ShowOnSelect surfaces prompt details when a multi-line selection
	// lands on AI-authored code.
	ShowOnSelect bool `yaml:"show_on_select"`
	// StatusBar enables the AI-percentage status line.
	StatusBar bool      `yaml:"status_bar"`
	Log       LogConfig `yaml:"log"`
}

// LogConfig holds diagnostic logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return c.Log.Validate()
}

// Validate validates the logging configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.In(LevelDebug, LevelInfo, LevelWarn, LevelError)),
	)
}

// NewDefaultConfig returns a new Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		ShowOnSelect: true,
		StatusBar:    false,
		Log: LogConfig{
			Level: LevelInfo,
		},
	}
}

// Load reads the config file at path, layered over the defaults. A missing
// file is not an error; a malformed or invalid one is.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
