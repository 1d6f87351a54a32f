package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
)

var capturedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCSVStore_AppendGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truck_num.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.EnsureSchema(t.Context()))
	require.NoError(t, store.Append(t.Context(), NewRecords("CAM1", capturedAt, "45", "45", "7")...))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"))
	g.Assert(t, "csv_append_three", []byte(readFile(t, path)))
}

func TestCSVStore_EnsureSchemaCreatesHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "records.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.EnsureSchema(t.Context()))

	assert.Equal(t, "port,number,timestamp\n", readFile(t, path))
}

func TestCSVStore_EnsureSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.EnsureSchema(t.Context()))
	require.NoError(t, store.Append(t.Context(), NewRecords("CAM1", capturedAt, "7421")...))
	before := readFile(t, path)

	require.NoError(t, store.EnsureSchema(t.Context()))
	require.NoError(t, NewCSVStore(path).EnsureSchema(t.Context()), "a restarted process sees the same file")

	after := readFile(t, path)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, strings.Count(after, "port,number"))
}

func TestCSVStore_AppendWithoutRecordsIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.Append(t.Context()))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCSVStore_AppendCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.Append(t.Context(), NewRecords("CAM2", capturedAt, "12")...))

	assert.Equal(t, "port,number,timestamp\nCAM2,12,2025-03-14T09:30:00Z\n", readFile(t, path))
}

func TestCSVStore_PreservesExistingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truck_num.csv")
	require.NoError(t, os.WriteFile(path, []byte("port,number\nCAM1,100\n"), 0o644))

	store := NewCSVStore(path)
	require.NoError(t, store.EnsureSchema(t.Context()))
	require.NoError(t, store.Append(t.Context(), NewRecords("CAM1", capturedAt, "200")...))

	assert.Equal(t, "port,number\nCAM1,100\nCAM1,200\n", readFile(t, path))
}

func TestCSVStore_ReorderedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,Number,Port,note\n"), 0o644))

	require.NoError(t, NewCSVStore(path).Append(t.Context(), NewRecords("CAM1", capturedAt, "9")...))

	assert.Equal(t, "Timestamp,Number,Port,note\n2025-03-14T09:30:00Z,9,CAM1,\n", readFile(t, path))
}

func TestCSVStore_ConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.csv")
	store := NewCSVStore(path)
	require.NoError(t, store.EnsureSchema(t.Context()))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			assert.NoError(t, store.Append(t.Context(), NewRecords("CAM1", capturedAt, fmt.Sprint(i))...))
		})
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readFile(t, path)), "\n")
	assert.Len(t, lines, 21)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestCSVStore_CorruptFileFailsWithoutChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	corrupt := "port,number\nCAM1,\"45\n"
	require.NoError(t, os.WriteFile(path, []byte(corrupt), 0o644))

	err := NewCSVStore(path).Append(t.Context(), NewRecords("CAM1", capturedAt, "1")...)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistenceWrite))
	assert.True(t, errors.IsCategory(err, errors.CategoryPersistence))
	assert.Equal(t, corrupt, readFile(t, path))
}

func TestCSVStore_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := NewCSVStore(path).Append(ctx, NewRecords("CAM1", capturedAt, "1")...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistenceWrite))
}

func TestInstrument(t *testing.T) {
	m, err := metrics.NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	store := Instrument(NewCSVStore(filepath.Join(t.TempDir(), "records.csv")), m)
	require.NoError(t, store.EnsureSchema(t.Context()))
	require.NoError(t, store.Append(t.Context(), NewRecords("CAM1", capturedAt, "1", "2")...))

	assert.Equal(t, BackendCSV, store.Backend())
	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(BackendCSV, "append", metrics.StatusSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RecordsWritten.WithLabelValues(BackendCSV)), 0)

	plain := NewCSVStore("x.csv")
	assert.Same(t, plain, Instrument(plain, nil))
}
