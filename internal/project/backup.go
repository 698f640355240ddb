package project

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"

	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
	"umlforge/local-app/internal/storage"
)

// DefaultBackupInterval is the period of automatic backups
const DefaultBackupInterval = 10 * time.Minute

// BackupResult is the outcome of one backup attempt
type BackupResult string

const (
	BackupWritten   BackupResult = "written"
	BackupDisabled  BackupResult = "disabled"
	BackupNoProject BackupResult = "no_project"
	BackupUnchanged BackupResult = "unchanged"
	BackupBusy      BackupResult = "busy"
	BackupFailed    BackupResult = "failed"
)

// ErrBackupInProgress is returned when a backup write is still running
var ErrBackupInProgress = errors.New("backup already in progress")

// BackupManager periodically writes the open project to a backup file.
// Snapshots are taken on the caller's goroutine; the file write runs in the background,
// one at a time.
type BackupManager struct {
	repo   *repository.Repository
	store  storage.Database
	logger *log.Logger
	path   string

	enabled  atomic.Bool
	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu         sync.Mutex
	lastDigest string
	observers  []func(BackupResult)

	interval chan time.Duration
}

func NewBackupManager(repo *repository.Repository, store storage.Database, path string, logger *log.Logger) (*BackupManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	if store == nil {
		return nil, fmt.Errorf("storage not initialized")
	}
	if path == "" {
		return nil, fmt.Errorf("backup path is required")
	}
	b := &BackupManager{
		repo:     repo,
		store:    store,
		logger:   logger,
		path:     path,
		interval: make(chan time.Duration, 1),
	}
	b.enabled.Store(true)
	return b, nil
}

// Path returns the backup file location
func (b *BackupManager) Path() string { return b.path }

// SetEnabled turns automatic backups on or off
func (b *BackupManager) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// SetInterval changes the period of a running ticker
func (b *BackupManager) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-b.interval:
	default:
	}
	b.interval <- d
}

// OnResult registers an observer of backup outcomes
func (b *BackupManager) OnResult(fn func(BackupResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

func (b *BackupManager) report(result BackupResult) {
	b.mu.Lock()
	observers := append([]func(BackupResult){}, b.observers...)
	b.mu.Unlock()
	for _, fn := range observers {
		fn(result)
	}
}

// Run ticks every interval and hands each tick to schedule, which must call the given
// function where the repository may be read. It returns when ctx is done.
func (b *BackupManager) Run(ctx context.Context, interval time.Duration, schedule func(func())) {
	if interval <= 0 {
		interval = DefaultBackupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-b.interval:
			ticker.Reset(d)
			b.logger.Info(ctx, "Backup interval changed", log.Fields{"interval": d.String()})
		case <-ticker.C:
			schedule(func() {
				if _, err := b.Backup(); err != nil && !errors.Is(err, ErrBackupInProgress) {
					b.logger.Error(ctx, "Auto backup failed", log.Fields{"error": err})
				}
			})
		}
	}
}

// Backup snapshots the project and starts writing it unless the content did not change
// since the last backup. It must be called where the repository may be read.
func (b *BackupManager) Backup() (BackupResult, error) {
	if !b.enabled.Load() {
		return b.finish(BackupDisabled, nil)
	}
	root := b.repo.Root()
	if root == nil {
		return b.finish(BackupNoProject, nil)
	}

	data, err := b.repo.WriteObject(root)
	if err != nil {
		return b.finish(BackupFailed, err)
	}
	sum := blake2b.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	b.mu.Lock()
	unchanged := digest == b.lastDigest
	b.mu.Unlock()
	if unchanged {
		return b.finish(BackupUnchanged, nil)
	}

	if !b.inFlight.CompareAndSwap(false, true) {
		return b.finish(BackupBusy, ErrBackupInProgress)
	}
	b.wg.Add(1)
	go b.write(data, digest)
	return BackupWritten, nil
}

func (b *BackupManager) finish(result BackupResult, err error) (BackupResult, error) {
	b.report(result)
	return result, err
}

func (b *BackupManager) write(data []byte, digest string) {
	defer b.wg.Done()
	defer b.inFlight.Store(false)
	ctx := context.Background()

	if err := writeFileAtomic(b.path, data); err != nil {
		b.logger.Error(ctx, "Failed to write backup", log.Fields{"error": err, "path": b.path})
		b.report(BackupFailed)
		return
	}
	if err := b.store.SettingSet(storage.SettingBackupFile, b.path); err != nil {
		b.logger.Warn(ctx, "Failed to record backup file", log.Fields{"error": err})
	}
	if err := b.store.BackupAdd(storage.Backup{Path: b.path, Digest: digest, Size: int64(len(data)), Created: time.Now()}); err != nil {
		b.logger.Warn(ctx, "Failed to record backup", log.Fields{"error": err})
	}

	b.mu.Lock()
	b.lastDigest = digest
	b.mu.Unlock()

	b.logger.Info(ctx, "Backup written", log.Fields{"path": b.path, "size": len(data)})
	b.report(BackupWritten)
}

// Wait blocks until a running backup write finishes
func (b *BackupManager) Wait() {
	b.wg.Wait()
}

// Recover loads a backup left behind by a run that did not exit cleanly.
// The recovered project is unnamed and marked modified.
func (b *BackupManager) Recover(projects *Manager) (bool, error) {
	path, err := b.store.SettingGet(storage.SettingBackupFile)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if err := b.store.SettingDelete(storage.SettingBackupFile); err != nil {
			b.logger.Warn(context.Background(), "Failed to forget missing backup", log.Fields{"path": path, "error": err})
		}
		return false, nil
	}

	if _, err := projects.LoadAsTemplate(path); err != nil {
		return false, fmt.Errorf("failed to load backup %s: %w", path, err)
	}
	b.repo.SetModified(true)
	b.logger.Warn(context.Background(), "Recovered project from backup", log.Fields{"path": path})
	return true, nil
}

// Clear forgets the backup after a clean shutdown
func (b *BackupManager) Clear() error {
	b.Wait()
	if err := b.store.SettingDelete(storage.SettingBackupFile); err != nil {
		return err
	}
	if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	b.mu.Lock()
	b.lastDigest = ""
	b.mu.Unlock()
	return nil
}
