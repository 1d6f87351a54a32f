package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics_RecorderMapping(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(OpRun, "completed")
	r.RecordOperation(OpRun, "completed")
	r.RecordOperation(OpRun, "no_frame")
	r.RecordOperation(OpGate, "cooldown")
	r.RecordOperation(OpNumbers, "")
	r.RecordOperation(OpNumbers, "")
	r.RecordOperation(OpArchive, StatusSkipped)
	r.RecordError(OpPersist, "persistence")
	r.RecordDuration(OpCapture, 3.2)

	assert.InDelta(t, 2, testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("no_frame")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GateDecisions.WithLabelValues("cooldown")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.NumbersExtracted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StageOperations.WithLabelValues(OpArchive, StatusSkipped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StageErrors.WithLabelValues(OpPersist, "persistence")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestPipelineMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(reg)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(reg)
	require.Error(t, err)
}

func TestMQTTMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(reg)
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	m.IncrementMessagesReceived()
	m.IncrementMessagesDropped()
	m.IncrementMessagesDelivered()
	m.StartPublishTimer().ObserveDuration()

	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesReceived), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesDropped), 0)

	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)

	expected := `
# HELP mqtt_messages_delivered_total Total number of MQTT messages successfully delivered
# TYPE mqtt_messages_delivered_total counter
mqtt_messages_delivered_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mqtt_messages_delivered_total"))
}

func TestMQTTMetrics_SizesByDirection(t *testing.T) {
	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveMessageSize(4)
	m.ObserveMessageSize(4)
	m.ObserveReceivedSize(5)

	sampleCount := func(h prometheus.Histogram) uint64 {
		var pb dto.Metric
		require.NoError(t, h.Write(&pb))
		return pb.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(2), sampleCount(m.MessageSize))
	assert.Equal(t, uint64(1), sampleCount(m.ReceivedSize))
}

func TestPollMetrics(t *testing.T) {
	m, err := NewPollMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRequest("200", 0.01)
	m.ObserveRequest("200", 0.02)
	m.ObserveRequest("error", 2)

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("error")), 0)
}

func TestDatastoreMetrics(t *testing.T) {
	m, err := NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveOperation("csv", "append", 0.001, 3, nil)
	m.ObserveOperation("csv", "append", 0.001, 2, errors.New("disk full"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("csv", "append", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("csv", "append", StatusError)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RecordsWritten.WithLabelValues("csv")), 0)
}

func TestTestRecorder(t *testing.T) {
	r := NewTestRecorder()
	r.RecordOperation(OpRun, "completed")
	r.RecordDuration(OpExtract, 0.5)
	r.RecordError(OpPublish, "mqtt-publish")

	assert.Equal(t, 1, r.Operations(OpRun, "completed"))
	assert.Equal(t, 0, r.Operations(OpRun, "no_frame"))
	assert.Equal(t, []float64{0.5}, r.Durations(OpExtract))
	assert.Equal(t, 1, r.Errors(OpPublish, "mqtt-publish"))

	var _ Recorder = NopRecorder{}
}

func TestPipelineMetrics_StageHistogramPerStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	m.RecordDuration(OpCapture, 3.2)
	m.RecordDuration(OpCapture, 2.9)
	m.RecordDuration(OpExtract, 0.4)

	families, err := reg.Gather()
	require.NoError(t, err)

	var stage *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "lanewatch_pipeline_stage_duration_seconds" {
			stage = mf
		}
	}
	require.NotNil(t, stage, "stage histogram gathered")
	assert.Equal(t, dto.MetricType_HISTOGRAM, stage.GetType())

	counts := map[string]uint64{}
	for _, metric := range stage.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "stage" {
				counts[label.GetValue()] = metric.GetHistogram().GetSampleCount()
			}
		}
	}
	assert.Equal(t, map[string]uint64{OpCapture: 2, OpExtract: 1}, counts)
}
