package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/lanewatch/lanewatch/internal/logger"
)

// MySQLConfig holds the connection settings
type MySQLConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

// DSN renders the go-sql-driver connection string
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// MySQLStore implements Store on MySQL
type MySQLStore struct {
	gormStore
}

// OpenMySQL connects to the configured database.
func OpenMySQL(cfg MySQLConfig) (*MySQLStore, error) {
	log := GetLogger().With(logger.String("backend", BackendMySQL))

	db, err := gorm.Open(mysql.Open(cfg.DSN()), newGormConfig(log))
	if err != nil {
		log.Error("failed to open MySQL database",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Error(err))
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	log.Info("mysql database connected",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database))
	return &MySQLStore{gormStore: gormStore{DB: db, backend: BackendMySQL, log: log}}, nil
}

var _ Store = (*MySQLStore)(nil)
