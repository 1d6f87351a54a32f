package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
	"github.com/lanewatch/lanewatch/internal/pipeline"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

type countingRunner struct {
	mu   sync.Mutex
	runs []trigger.Event
}

func (r *countingRunner) Run(_ context.Context, ev trigger.Event) pipeline.RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, ev)
	return pipeline.RunResult{RunID: "run", Outcome: pipeline.OutcomeCompleted}
}

func TestDispatcher_Handle(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := metrics.NewTestRecorder()
	runner := &countingRunner{}
	d := NewDispatcher(trigger.NewGate(10*time.Second), runner,
		WithRecorder(rec), WithClock(func() time.Time { return now }))

	res, dec := d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePoll, " Start\n"))
	assert.True(t, dec.Admitted)
	assert.Equal(t, pipeline.OutcomeCompleted, res.Outcome)

	now = now.Add(2 * time.Second)
	res, dec = d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePoll, "start"))
	assert.False(t, dec.Admitted)
	assert.Equal(t, trigger.ReasonCooldown, dec.Reason)
	assert.Empty(t, res.RunID)

	_, dec = d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePoll, "idle"))
	assert.Equal(t, trigger.ReasonMalformed, dec.Reason)

	now = now.Add(10 * time.Second)
	_, dec = d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePoll, "START"))
	assert.True(t, dec.Admitted)

	assert.Len(t, runner.runs, 2)
	assert.Equal(t, 2, rec.Operations(metrics.OpGate, string(trigger.ReasonAccepted)))
	assert.Equal(t, 1, rec.Operations(metrics.OpGate, string(trigger.ReasonCooldown)))
	assert.Equal(t, 1, rec.Operations(metrics.OpGate, string(trigger.ReasonMalformed)))
}

func TestDispatcher_DropLogLevels(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	buf := &bytes.Buffer{}
	d := NewDispatcher(trigger.NewGate(10*time.Second), &countingRunner{},
		WithClock(func() time.Time { return now }),
		WithLogger(logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)))

	d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePush, "start"))
	d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePush, "start"))
	d.Handle(t.Context(), trigger.NewEvent(trigger.SourcePush, "stop"))

	levels := map[string]string{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		if entry["msg"] == "trigger dropped" {
			levels[entry["reason"].(string)] = entry["level"].(string)
		}
	}
	assert.Equal(t, map[string]string{
		string(trigger.ReasonCooldown):  "INFO",
		string(trigger.ReasonMalformed): "DEBUG",
	}, levels)
}

func TestUnavailable(t *testing.T) {
	err := Unavailable(errors.NewStd("connection refused"), "poll", errors.CategoryHTTP)
	require.ErrorIs(t, err, ErrTransportUnavailable)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	assert.Contains(t, err.Error(), "connection refused")
}
