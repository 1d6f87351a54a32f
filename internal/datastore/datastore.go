// Package datastore persists extracted numbers as append-only records.
//
// Three backends share the Store interface: a CSV file (the default), SQLite
// and MySQL. Every backend creates its schema on EnsureSchema without touching
// existing rows and commits the records of one Append call together or not at
// all.
package datastore

import (
	"context"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
)

// Backend names
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// ErrPersistenceWrite marks a failed write. The records of that call were not
// committed.
var ErrPersistenceWrite = errors.NewStd("persistence write failed")

// Record is one extracted number
type Record struct {
	Port       string
	Number     string
	CapturedAt time.Time
}

// NewRecords builds one record per number, all stamped with capturedAt.
func NewRecords(port string, capturedAt time.Time, numbers ...string) []Record {
	records := make([]Record, 0, len(numbers))
	for _, n := range numbers {
		records = append(records, Record{Port: port, Number: n, CapturedAt: capturedAt})
	}
	return records
}

// Store is an append-only record store.
type Store interface {
	// EnsureSchema creates the empty schema if it is missing. It never
	// modifies existing data and is safe to call repeatedly.
	EnsureSchema(ctx context.Context) error
	// Append commits records atomically. An empty call is a no-op.
	Append(ctx context.Context, records ...Record) error
	// Backend names the implementation
	Backend() string
	Close() error
}

// GetLogger returns the datastore module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// writeError wraps err as a persistence failure of backend.
func writeError(err error, backend, operation string) error {
	return errors.New(errors.Join(ErrPersistenceWrite, err)).
		Component("datastore").
		Category(errors.CategoryPersistence).
		Context("backend", backend).
		Context("operation", operation).
		Build()
}
