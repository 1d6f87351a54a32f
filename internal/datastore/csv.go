package datastore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lanewatch/lanewatch/internal/logger"
)

// CSVHeader is written to a new CSV store
var CSVHeader = []string{"port", "number", "timestamp"}

// CSVStore keeps records in a single CSV file. Appends rewrite the whole file
// through a temporary file and a rename, so readers see either the old or the
// new content. Appends within one process are serialized.
type CSVStore struct {
	path string
	mu   sync.Mutex
	log  logger.Logger
}

// NewCSVStore returns a store backed by path. The file is not touched until
// EnsureSchema or Append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{
		path: path,
		log:  GetLogger().With(logger.String("backend", BackendCSV)),
	}
}

// Path returns the CSV file path
func (s *CSVStore) Path() string {
	return s.path
}

// Backend implements Store
func (s *CSVStore) Backend() string { return BackendCSV }

// EnsureSchema creates the file with only the header when it does not exist.
// Parent directories are created as needed.
func (s *CSVStore) EnsureSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return writeError(err, BackendCSV, "ensure_schema")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensureSchemaLocked()
}

func (s *CSVStore) ensureSchemaLocked() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return writeError(err, BackendCSV, "stat")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return writeError(err, BackendCSV, "mkdir")
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return writeError(err, BackendCSV, "encode")
	}
	w.Flush()

	// O_EXCL keeps a file created concurrently by another process intact
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // path comes from config
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return writeError(err, BackendCSV, "create")
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return writeError(err, BackendCSV, "create")
	}
	if err := f.Close(); err != nil {
		return writeError(err, BackendCSV, "create")
	}

	s.log.Info("created record file", logger.String("path", s.path))
	return nil
}

// Append reads the current file, adds one row per record and atomically
// replaces the file. Columns follow the existing header, so a file created
// with only port and number keeps that shape.
func (s *CSVStore) Append(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return writeError(err, BackendCSV, "append")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSchemaLocked(); err != nil {
		return err
	}

	rows, err := s.readAll()
	if err != nil {
		return writeError(err, BackendCSV, "read")
	}

	header := CSVHeader
	if len(rows) > 0 {
		header = rows[0]
	} else {
		rows = append(rows, CSVHeader)
	}

	columns := columnIndex(header)
	for _, r := range records {
		rows = append(rows, encodeRow(r, columns, len(header)))
	}

	if err := s.replace(rows); err != nil {
		return writeError(err, BackendCSV, "write")
	}

	s.log.Debug("records appended", logger.Int("count", len(records)))
	return nil
}

func (s *CSVStore) readAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
		rows = append(rows, row)
	}
}

// replace writes rows to a temp file next to the target and renames it over.
func (s *CSVStore) replace(rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if info, err := os.Stat(s.path); err == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}
	committed = true
	return nil
}

// Close implements Store. The CSV store holds no open handles.
func (s *CSVStore) Close() error {
	return nil
}

// columnIndex maps known column names to their position in header.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

func encodeRow(r Record, columns map[string]int, width int) []string {
	row := make([]string, width)
	if i, ok := columns["port"]; ok {
		row[i] = r.Port
	}
	if i, ok := columns["number"]; ok {
		row[i] = r.Number
	}
	if i, ok := columns["timestamp"]; ok {
		row[i] = r.CapturedAt.Format(time.RFC3339)
	}
	return row
}

var _ Store = (*CSVStore)(nil)
