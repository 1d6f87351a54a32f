package datastore

import (
	"context"
	"time"

	"github.com/lanewatch/lanewatch/internal/observability/metrics"
)

// instrumentedStore records metrics for every call of the wrapped store
type instrumentedStore struct {
	Store
	metrics *metrics.DatastoreMetrics
}

// Instrument wraps s so its operations are counted in m. A nil m returns s.
func Instrument(s Store, m *metrics.DatastoreMetrics) Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{Store: s, metrics: m}
}

func (s *instrumentedStore) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	err := s.Store.EnsureSchema(ctx)
	s.metrics.ObserveOperation(s.Backend(), "ensure_schema", time.Since(start).Seconds(), 0, err)
	return err
}

func (s *instrumentedStore) Append(ctx context.Context, records ...Record) error {
	start := time.Now()
	err := s.Store.Append(ctx, records...)
	s.metrics.ObserveOperation(s.Backend(), "append", time.Since(start).Seconds(), len(records), err)
	return err
}
