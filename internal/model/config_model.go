// Package model defines the data structures shared across the application.
package model

import "time"

type Config struct {
	DataDir            string        `yaml:"data_dir" validate:"required"`
	DatabaseType       string        `yaml:"database_type" validate:"required,oneof=sqlite bolt"`
	DatabaseFile       string        `yaml:"database_file" validate:"required"`
	LogFolder          string        `yaml:"log_folder" validate:"required"`
	LogFile            string        `yaml:"log_file" validate:"required"`
	CommandLog         string        `yaml:"command_log" validate:"required"`
	LogLevel           string        `yaml:"log_level" validate:"required,oneof=debug info warn error"`
	HistoryFile        string        `yaml:"history_file"`
	HistoryLimit       int           `yaml:"history_limit" validate:"gte=0"`
	AutoBackup         bool          `yaml:"auto_backup"`
	AutoBackupInterval time.Duration `yaml:"auto_backup_interval" validate:"min=1s"`
	BackupFile         string        `yaml:"backup_file" validate:"required"`
	SystemClipboard    bool          `yaml:"system_clipboard"`
}
