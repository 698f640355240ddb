package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"umlforge/local-app/internal/log"
)

// SQLiteDatabase implements the Database interface for SQLite
type SQLiteDatabase struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens a connection to the SQLite database
func (s *SQLiteDatabase) Open(dataSourceName string) error {
	ctx := context.Background()
	s.logger.Info(ctx, "Opening SQLite database", log.Fields{"dbPath": filepath.Base(dataSourceName)})

	// Ensure the directory for the database file exists
	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		s.logger.Error(ctx, "Failed to create database directory", log.Fields{"error": err, "directory": dbDir})
		return fmt.Errorf("failed to create database directory '%s': %w", dbDir, err)
	}

	db, err := sql.Open("sqlite3", dataSourceName+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		s.logger.Error(ctx, "Failed to open SQLite database", log.Fields{"error": err})
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		s.logger.Error(ctx, "Failed to set SQLite synchronous pragma", log.Fields{"error": err})
		return fmt.Errorf("failed to set SQLite synchronous pragma: %w", err)
	}

	// Verify the connection
	if err := db.Ping(); err != nil {
		db.Close()
		s.logger.Error(ctx, "Failed to verify database connection", log.Fields{"error": err})
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	s.db = db
	s.logger.Info(ctx, "SQLite database opened successfully", nil)
	return nil
}

// Close closes the connection to the SQLite database
func (s *SQLiteDatabase) Close() error {
	s.logger.Info(context.Background(), "Closing SQLite database", nil)
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error(context.Background(), "Failed to close SQLite database", log.Fields{"error": err})
			return fmt.Errorf("failed to close SQLite database: %w", err)
		}
		s.db = nil
	}
	return nil
}

func (s *SQLiteDatabase) exec(query string, args ...interface{}) (sql.Result, error) {
	s.logger.Debug(context.Background(), "Executing query", log.Fields{"query": query, "args": args})
	return s.db.Exec(query, args...)
}

// InitSchema initializes the database schema
func (s *SQLiteDatabase) InitSchema() error {
	ctx := context.Background()
	s.logger.Info(ctx, "Initializing database schema", nil)

	_, err := s.exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS backups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			size INTEGER NOT NULL,
			created INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS recent_files (
			path TEXT PRIMARY KEY,
			opened INTEGER NOT NULL
		);
	`)
	if err != nil {
		s.logger.Error(ctx, "Failed to create tables", log.Fields{"error": err})
		return fmt.Errorf("failed to create tables: %w", err)
	}
	s.logger.Info(ctx, "Database schema initialized successfully", nil)
	return nil
}

func (s *SQLiteDatabase) SettingGet(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteDatabase) SettingSet(key, value string) error {
	_, err := s.exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteDatabase) SettingDelete(key string) error {
	if _, err := s.exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteDatabase) BackupAdd(backup Backup) error {
	_, err := s.exec("INSERT INTO backups (path, digest, size, created) VALUES (?, ?, ?, ?)",
		backup.Path, backup.Digest, backup.Size, backup.Created.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record backup: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) BackupLatest() (*Backup, error) {
	var (
		b       Backup
		created int64
	)
	err := s.db.QueryRow("SELECT path, digest, size, created FROM backups ORDER BY id DESC LIMIT 1").
		Scan(&b.Path, &b.Digest, &b.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup journal: %w", err)
	}
	b.Created = time.Unix(0, created)
	return &b, nil
}

func (s *SQLiteDatabase) RecentAdd(path string, opened time.Time) error {
	_, err := s.exec(`INSERT INTO recent_files (path, opened) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET opened = excluded.opened`, path, opened.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record recent file: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) RecentList(limit int) ([]RecentFile, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query("SELECT path, opened FROM recent_files ORDER BY opened DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent files: %w", err)
	}
	defer rows.Close()

	var files []RecentFile
	for rows.Next() {
		var (
			f      RecentFile
			opened int64
		)
		if err := rows.Scan(&f.Path, &opened); err != nil {
			return nil, fmt.Errorf("failed to scan recent file: %w", err)
		}
		f.Opened = time.Unix(0, opened)
		files = append(files, f)
	}
	return files, rows.Err()
}
