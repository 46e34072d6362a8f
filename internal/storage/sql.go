package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is the row layout of the SQL backend
type KVEntry struct {
	Partition string    `gorm:"primaryKey;size:191"`
	Key       string    `gorm:"primaryKey;column:entry_key;size:512"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// SQLBackend keeps entries in a relational table through gorm.
// It serves Postgres in production and SQLite for local-only setups.
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend migrates the kv table and returns the backend
func NewSQLBackend(db *gorm.DB) (*SQLBackend, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) ForDevice(deviceID string) Store {
	return &sqlStore{db: b.db, deviceID: deviceID}
}

func (b *SQLBackend) Shared() Store {
	return &sqlStore{db: b.db}
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op: the *gorm.DB is owned by the caller
func (b *SQLBackend) Close() error {
	return nil
}

type sqlStore struct {
	db       *gorm.DB
	deviceID string
}

func (s *sqlStore) Get(ctx context.Context, key string, shared bool) (*Entry, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	partition, err := partitionFor(s.deviceID, shared)
	if err != nil {
		return nil, err
	}

	var row KVEntry
	err = s.db.WithContext(ctx).
		Where("partition = ? AND entry_key = ?", partition, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("sql get failed: %w", err)
	}

	return &Entry{Key: row.Key, Value: row.Value, Shared: shared}, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string, shared bool) error {
	if err := checkKey(key); err != nil {
		return err
	}
	partition, err := partitionFor(s.deviceID, shared)
	if err != nil {
		return err
	}

	row := KVEntry{
		Partition: partition,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partition"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("sql set failed: %w", err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string, shared bool) error {
	if err := checkKey(key); err != nil {
		return err
	}
	partition, err := partitionFor(s.deviceID, shared)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Where("partition = ? AND entry_key = ?", partition, key).
		Delete(&KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("sql delete failed: %w", err)
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	partition, err := partitionFor(s.deviceID, shared)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	err = s.db.WithContext(ctx).
		Model(&KVEntry{}).
		Where("partition = ? AND entry_key LIKE ? ESCAPE '\\'", partition, escapeLike(prefix)+"%").
		Order("entry_key").
		Pluck("entry_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("sql list failed: %w", err)
	}

	// SQLite's LIKE ignores ASCII case
	return slices.DeleteFunc(keys, func(k string) bool {
		return !strings.HasPrefix(k, prefix)
	}), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
