package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/mqtt"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
	"github.com/lanewatch/lanewatch/internal/pipeline"
	looptest "github.com/lanewatch/lanewatch/internal/testutil"
	"github.com/lanewatch/lanewatch/internal/transport"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBroker struct {
	mu           sync.Mutex
	connectFails int
	connects     int
	subFails     int
	subscribes   int
	topic        string
	handler      mqtt.MessageHandler
	subscribed   chan struct{}
	disconnected bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subscribed: make(chan struct{})}
}

func (b *fakeBroker) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	if b.connects <= b.connectFails {
		return errors.NewStd("connection refused")
	}
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, topic string, h mqtt.MessageHandler) error {
	b.mu.Lock()
	b.subscribes++
	if b.subscribes <= b.subFails {
		b.mu.Unlock()
		return errors.NewStd("suback timeout")
	}
	b.topic = topic
	b.handler = h
	b.mu.Unlock()
	close(b.subscribed)
	return nil
}

func (b *fakeBroker) IsConnected() bool { return true }

func (b *fakeBroker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = true
}

func (b *fakeBroker) deliver(payload string) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	h(b.topic, []byte(payload))
}

// blockingRunner counts runs and optionally blocks until released
type blockingRunner struct {
	mu      sync.Mutex
	runs    int
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(context.Context, trigger.Event) pipeline.RunResult {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return pipeline.RunResult{Outcome: pipeline.OutcomeCompleted}
}

func (r *blockingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func startAdapter(t *testing.T, a *Adapter) (cancel func()) {
	t.Helper()
	return looptest.Start(t, a.Run)
}

func TestAdapter_TwoStartsWithinCooldownRunOnce(t *testing.T) {
	broker := newFakeBroker()
	runner := &blockingRunner{started: make(chan struct{}, 4)}
	clk := &clock{now: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
	rec := metrics.NewTestRecorder()
	d := transport.NewDispatcher(trigger.NewGate(10*time.Second), runner,
		transport.WithClock(clk.Now), transport.WithRecorder(rec))

	stop := startAdapter(t, New(broker, "cam1/esp", d))
	<-broker.subscribed
	assert.Equal(t, "cam1/esp", broker.topic)

	broker.deliver("start")
	<-runner.started

	clk.Advance(2 * time.Second)
	broker.deliver("start")
	require.Eventually(t, func() bool {
		return rec.Operations(metrics.OpGate, string(trigger.ReasonCooldown)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	stop()
	assert.Equal(t, 1, runner.count())
	assert.True(t, broker.disconnected)
}

func TestAdapter_MalformedPayloadDropped(t *testing.T) {
	broker := newFakeBroker()
	runner := &blockingRunner{}
	rec := metrics.NewTestRecorder()
	d := transport.NewDispatcher(trigger.NewGate(0), runner, transport.WithRecorder(rec))

	stop := startAdapter(t, New(broker, "cam1/esp", d))
	<-broker.subscribed

	broker.deliver("7421")
	broker.deliver("")
	require.Eventually(t, func() bool {
		return rec.Operations(metrics.OpGate, string(trigger.ReasonMalformed)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	stop()
	assert.Zero(t, runner.count())
}

func TestAdapter_FullQueueDrops(t *testing.T) {
	broker := newFakeBroker()
	runner := &blockingRunner{started: make(chan struct{}, 8), release: make(chan struct{})}
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	d := transport.NewDispatcher(trigger.NewGate(0), runner)

	stop := startAdapter(t, New(broker, "cam1/esp", d, WithQueueSize(2), WithMetrics(m)))
	<-broker.subscribed

	// first trigger occupies the worker, two fill the queue, the rest drop
	broker.deliver("start")
	<-runner.started
	for range 5 {
		broker.deliver("start")
	}
	assert.InDelta(t, 3, testutil.ToFloat64(m.MessagesDropped), 0)

	close(runner.release)
	require.Eventually(t, func() bool { return runner.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	stop()
}

func TestAdapter_InFlightRunFinishesOnCancel(t *testing.T) {
	broker := newFakeBroker()
	runner := &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := transport.NewDispatcher(trigger.NewGate(0), runner)

	stop := startAdapter(t, New(broker, "cam1/esp", d))
	<-broker.subscribed
	broker.deliver("start")
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("adapter stopped before the run finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(runner.release)
	<-stopped
	assert.Equal(t, 1, runner.count())
}

func TestAdapter_RetriesConnect(t *testing.T) {
	broker := newFakeBroker()
	broker.connectFails = 2
	d := transport.NewDispatcher(trigger.NewGate(0), &blockingRunner{})

	stop := startAdapter(t, New(broker, "cam1/esp", d, WithConnectBackoff(5*time.Millisecond)))
	looptest.WaitForChannel(t, broker.subscribed, 2*time.Second, "never subscribed")
	stop()

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.Equal(t, 3, broker.connects)
}

func TestAdapter_RetriesSubscribeWhileConnected(t *testing.T) {
	broker := newFakeBroker()
	broker.subFails = 2
	runner := &blockingRunner{started: make(chan struct{}, 1)}
	d := transport.NewDispatcher(trigger.NewGate(0), runner)

	stop := startAdapter(t, New(broker, "cam1/esp", d, WithConnectBackoff(5*time.Millisecond)))
	looptest.WaitForChannel(t, broker.subscribed, 2*time.Second, "subscription never retried")

	broker.deliver("start")
	<-runner.started
	stop()

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.Equal(t, 1, broker.connects, "a refused subscription does not reconnect")
	assert.Equal(t, 3, broker.subscribes)
}

func TestAdapter_CancelWhileSubscribing(t *testing.T) {
	broker := newFakeBroker()
	broker.subFails = 1 << 30
	d := transport.NewDispatcher(trigger.NewGate(0), &blockingRunner{})

	stop := startAdapter(t, New(broker, "cam1/esp", d, WithConnectBackoff(time.Hour)))
	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return broker.subscribes == 1
	}, 2*time.Second, 5*time.Millisecond)
	stop()

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.True(t, broker.disconnected)
}

func TestAdapter_CancelWhileConnecting(t *testing.T) {
	broker := newFakeBroker()
	broker.connectFails = 1 << 30
	d := transport.NewDispatcher(trigger.NewGate(0), &blockingRunner{})

	stop := startAdapter(t, New(broker, "cam1/esp", d, WithConnectBackoff(time.Hour)))
	time.Sleep(10 * time.Millisecond)
	stop()

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.False(t, broker.disconnected, "never connected, nothing to disconnect")
}
