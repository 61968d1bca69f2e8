package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tillworks/posedge/pkg/config"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
)

// Named collections the rest of the system is allowed to address.
const (
	CollectionInventory        = "inventory"
	CollectionMetadata         = "metadata"
	CollectionCart             = "cart"
	CollectionUnsyncedInvoices = "unsynced_invoices"
)

// Record is one durable entry inside a named collection. Values are stored
// as JSON so callers stay schema-free.
type Record struct {
	Collection string    `gorm:"column:collection;primaryKey"`
	Key        string    `gorm:"column:key;primaryKey"`
	Value      []byte    `gorm:"column:value;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Record) TableName() string { return "records" }

// Store adapts local durable storage to collection-scoped get/put/delete.
// There is no transactional guarantee across collections; callers must
// tolerate one write landing while a sibling write fails.
type Store struct {
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open boots the SQLite-backed store at the configured path.
func Open(ctx context.Context, cfg config.StoreConfig, logg *logger.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening local store")
	}

	if cfg.AutoMigrate {
		if err := conn.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "migrating local store")
		}
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "path", cfg.Path), "local store opened")
	}

	return &Store{conn: conn}, nil
}

// Get reads the raw JSON value stored under (collection, key). Absence is a
// normal outcome, reported through the boolean.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	var record Record
	err := s.conn.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading local store")
	}
	return record.Value, true, nil
}

// GetJSON reads and unmarshals the value stored under (collection, key).
func (s *Store) GetJSON(ctx context.Context, collection, key string, dest any) (bool, error) {
	raw, found, err := s.Get(ctx, collection, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding stored value")
	}
	return true, nil
}

// Put upserts value (JSON-encoded) under (collection, key).
func (s *Store) Put(ctx context.Context, collection, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding value for store")
	}

	record := Record{Collection: collection, Key: key, Value: raw}
	err = s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing local store")
	}
	return nil
}

// Delete removes the entry under (collection, key). Deleting a missing key
// is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	err := s.conn.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		Delete(&Record{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting from local store")
	}
	return nil
}

// List returns every record in a collection, oldest first.
func (s *Store) List(ctx context.Context, collection string) ([]Record, error) {
	var records []Record
	err := s.conn.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing local store")
	}
	return records, nil
}

// Ping verifies the datasource is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (s *Store) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
