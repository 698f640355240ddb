// Package config provides functionality for loading, saving, and managing
// application configuration settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"umlforge/local-app/internal/model"
)

// DefaultPath is where the configuration file lives unless overridden
const DefaultPath = "./data/config.yaml"

var validate = validator.New()

// DefaultConfig returns the configuration written on first run
func DefaultConfig() *model.Config {
	return &model.Config{
		DataDir:            "./data",
		DatabaseType:       "sqlite",
		DatabaseFile:       "umlforge.db",
		LogFolder:          "./logs",
		LogFile:            "umlforge.log",
		CommandLog:         "commands.log",
		LogLevel:           "info",
		HistoryFile:        "./data/.history",
		HistoryLimit:       0,
		AutoBackup:         true,
		AutoBackupInterval: 10 * time.Minute,
		BackupFile:         "__backup.mdj",
		SystemClipboard:    false,
	}
}

// ConfigLoad loads the configuration from the YAML file at path.
// If the file doesn't exist, it creates a default configuration.
func ConfigLoad(path string) (*model.Config, error) {
	// Ensure the config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if the config file exists, if not create a default one
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := ConfigSave(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Missing keys keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigSave saves the provided configuration to the YAML file at path.
func ConfigSave(path string, cfg *model.Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks the struct tags of cfg
func Validate(cfg *model.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DatabasePath returns the full path of the settings database
func DatabasePath(cfg *model.Config) string {
	return filepath.Join(cfg.DataDir, cfg.DatabaseFile)
}

// BackupPath returns the full path of the auto-backup file
func BackupPath(cfg *model.Config) string {
	return filepath.Join(cfg.DataDir, cfg.BackupFile)
}
