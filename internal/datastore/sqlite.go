package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lanewatch/lanewatch/internal/logger"
)

// SQLiteStore implements Store on a SQLite database file
type SQLiteStore struct {
	gormStore
	Path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	log := GetLogger().With(logger.String("backend", BackendSQLite))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), newGormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	log.Info("sqlite database opened", logger.String("path", path))
	return &SQLiteStore{
		gormStore: gormStore{DB: db, backend: BackendSQLite, log: log},
		Path:      path,
	}, nil
}

var _ Store = (*SQLiteStore)(nil)
