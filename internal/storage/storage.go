package storage

import (
	"context"
	"fmt"

	"umlforge/local-app/internal/config"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/model"
)

// Storage represents the main storage implementation.
type Storage struct {
	Database
	logger *log.Logger
}

// NewStorage creates a new Storage instance and initializes the database.
func NewStorage(cfg *model.Config, logger *log.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}

	dbDriver, err := validateDBDriver(cfg.DatabaseType)
	if err != nil {
		return nil, fmt.Errorf("invalid database driver '%s': %w", cfg.DatabaseType, err)
	}

	db, err := NewDatabase(dbDriver, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database instance: %w", err)
	}

	dataSourceName := config.DatabasePath(cfg)
	if err := db.Open(dataSourceName); err != nil {
		return nil, fmt.Errorf("failed to open database connection '%s': %w", dataSourceName, err)
	}

	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info(context.Background(), "Storage ready", log.Fields{"driver": dbDriver, "path": dataSourceName})
	return &Storage{Database: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if err := s.Database.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
