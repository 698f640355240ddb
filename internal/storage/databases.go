// Package storage persists application state that lives outside project files:
// settings such as the working and backup filenames, the backup journal and the recent files list.
package storage

import (
	"errors"
	"fmt"
	"time"

	"umlforge/local-app/internal/log"
)

// DBDriver represents the type of database driver
type DBDriver string

const (
	SQLite DBDriver = "sqlite"
	Bolt   DBDriver = "bolt"
)

// ErrNotFound is returned when a setting or backup record does not exist
var ErrNotFound = errors.New("not found")

// Well-known setting keys
const (
	SettingWorkingFile = "working_file"
	SettingBackupFile  = "backup_file"
)

// Backup is one entry of the backup journal
type Backup struct {
	Path    string    `json:"path"`
	Digest  string    `json:"digest"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// RecentFile is a recently opened or saved project
type RecentFile struct {
	Path   string
	Opened time.Time
}

// Database interface defines the operations every driver provides
type Database interface {
	Open(dataSourceName string) error
	Close() error
	InitSchema() error

	SettingGet(key string) (string, error)
	SettingSet(key, value string) error
	SettingDelete(key string) error

	BackupAdd(backup Backup) error
	BackupLatest() (*Backup, error)

	RecentAdd(path string, opened time.Time) error
	RecentList(limit int) ([]RecentFile, error)
}

// NewDatabase creates a new Database instance based on the specified driver
func NewDatabase(driver DBDriver, logger *log.Logger) (Database, error) {
	switch driver {
	case SQLite:
		return &SQLiteDatabase{logger: logger}, nil
	case Bolt:
		return &BoltDatabase{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// validateDBDriver checks if the provided driver is supported
func validateDBDriver(driver string) (DBDriver, error) {
	switch DBDriver(driver) {
	case SQLite:
		return SQLite, nil
	case Bolt:
		return Bolt, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
