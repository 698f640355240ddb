package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"umlforge/local-app/internal/log"
)

const (
	bucketSettings = "settings"
	bucketBackups  = "backups"
	bucketRecent   = "recent_files"
)

// BoltDatabase implements the Database interface on an embedded bbolt file
type BoltDatabase struct {
	db     *bolt.DB
	logger *log.Logger
}

// Open opens the bbolt file, creating it when missing
func (b *BoltDatabase) Open(dataSourceName string) error {
	ctx := context.Background()
	b.logger.Info(ctx, "Opening bolt database", log.Fields{"dbPath": filepath.Base(dataSourceName)})

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		b.logger.Error(ctx, "Failed to create database directory", log.Fields{"error": err, "directory": dbDir})
		return fmt.Errorf("failed to create database directory '%s': %w", dbDir, err)
	}

	db, err := bolt.Open(dataSourceName, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		b.logger.Error(ctx, "Failed to open bolt database", log.Fields{"error": err})
		return fmt.Errorf("failed to open bolt database: %w", err)
	}
	b.db = db
	return nil
}

func (b *BoltDatabase) Close() error {
	if b.db == nil {
		return nil
	}
	if err := b.db.Close(); err != nil {
		b.logger.Error(context.Background(), "Failed to close bolt database", log.Fields{"error": err})
		return fmt.Errorf("failed to close bolt database: %w", err)
	}
	b.db = nil
	return nil
}

// InitSchema creates the buckets
func (b *BoltDatabase) InitSchema() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketSettings, bucketBackups, bucketRecent} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (b *BoltDatabase) SettingGet(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSettings)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		value = string(v)
		return nil
	})
	return value, err
}

func (b *BoltDatabase) SettingSet(key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSettings)).Put([]byte(key), []byte(value))
	})
}

func (b *BoltDatabase) SettingDelete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSettings)).Delete([]byte(key))
	})
}

func (b *BoltDatabase) BackupAdd(backup Backup) error {
	data, err := json.Marshal(backup)
	if err != nil {
		return fmt.Errorf("failed to encode backup record: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketBackups))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(marshalSeq(seq), data)
	})
}

func (b *BoltDatabase) BackupLatest() (*Backup, error) {
	var backup Backup
	err := b.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket([]byte(bucketBackups)).Cursor().Last()
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &backup)
	})
	if err != nil {
		return nil, err
	}
	return &backup, nil
}

func (b *BoltDatabase) RecentAdd(path string, opened time.Time) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRecent)).Put([]byte(path), marshalSeq(uint64(opened.UnixNano())))
	})
}

func (b *BoltDatabase) RecentList(limit int) ([]RecentFile, error) {
	var files []RecentFile
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRecent)).ForEach(func(k, v []byte) error {
			files = append(files, RecentFile{Path: string(k), Opened: time.Unix(0, int64(binary.BigEndian.Uint64(v)))})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent files: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Opened.After(files[j].Opened) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
