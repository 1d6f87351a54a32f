package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lanewatch/lanewatch/internal/logger"
)

// slowQueryThreshold marks queries logged as slow by the gorm adapter
const slowQueryThreshold = 200 * time.Millisecond

// RecordModel is the gorm row of a Record
type RecordModel struct {
	ID         uint      `gorm:"primaryKey"`
	Port       string    `gorm:"size:64;not null;index:idx_records_port_captured,priority:1"`
	Number     string    `gorm:"size:64;not null;index"`
	CapturedAt time.Time `gorm:"not null;index:idx_records_port_captured,priority:2"`
	CreatedAt  time.Time
}

// TableName pins the table name
func (RecordModel) TableName() string {
	return "records"
}

// gormStore implements Store on any gorm dialect.
type gormStore struct {
	DB      *gorm.DB
	backend string
	log     logger.Logger
}

func newGormConfig(log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:  logger.NewGormLoggerAdapter(log, slowQueryThreshold),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Backend implements Store
func (s *gormStore) Backend() string { return s.backend }

// EnsureSchema runs AutoMigrate, which only creates missing tables, columns
// and indexes.
func (s *gormStore) EnsureSchema(ctx context.Context) error {
	if s.DB == nil {
		return writeError(fmt.Errorf("database connection is not initialized"), s.backend, "ensure_schema")
	}
	if err := s.DB.WithContext(ctx).AutoMigrate(&RecordModel{}); err != nil {
		return writeError(fmt.Errorf("failed to auto-migrate %s database: %w", s.backend, err), s.backend, "ensure_schema")
	}
	s.log.Debug("schema ready")
	return nil
}

// Append inserts all records in one transaction.
func (s *gormStore) Append(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	if s.DB == nil {
		return writeError(fmt.Errorf("database connection is not initialized"), s.backend, "append")
	}

	rows := make([]RecordModel, 0, len(records))
	for _, r := range records {
		rows = append(rows, RecordModel{Port: r.Port, Number: r.Number, CapturedAt: r.CapturedAt})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return writeError(err, s.backend, "append")
	}

	s.log.Debug("records appended", logger.Int("count", len(records)))
	return nil
}

// List returns every stored record in insertion order.
func (s *gormStore) List(ctx context.Context) ([]Record, error) {
	var rows []RecordModel
	if err := s.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{Port: r.Port, Number: r.Number, CapturedAt: r.CapturedAt})
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *gormStore) Close() error {
	if s.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.backend, err)
	}
	return nil
}
