package trigger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanewatch/lanewatch/internal/errors"
)

var t0 = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func push(payload string) Event {
	return Event{Source: SourcePush, Payload: payload, ReceivedAt: t0}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"start", "start"},
		{" Start\n", "start"},
		{"START", "start"},
		{"\tstArt \r\n", "start"},
		{"", ""},
		{"stop", "stop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestGate_FirstTriggerAlwaysEligible(t *testing.T) {
	g := NewGate(DefaultCooldown)

	d := g.Evaluate(push(" Start\n"), t0)

	assert.True(t, d.Admitted)
	assert.Equal(t, ReasonAccepted, d.Reason)
	assert.Equal(t, t0, g.LastAccepted())
	assert.NoError(t, d.Err())
}

func TestGate_Cooldown(t *testing.T) {
	tests := []struct {
		name     string
		second   time.Duration
		admitted bool
	}{
		{"two seconds later", 2 * time.Second, false},
		{"just before cooldown", 10*time.Second - time.Millisecond, false},
		{"exactly at cooldown", 10 * time.Second, true},
		{"after cooldown", 11 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(10 * time.Second)
			require.True(t, g.Admit(push("start"), t0))

			d := g.Evaluate(push("start"), t0.Add(tt.second))
			assert.Equal(t, tt.admitted, d.Admitted)
			if tt.admitted {
				assert.Equal(t, t0.Add(tt.second), g.LastAccepted())
			} else {
				assert.Equal(t, ReasonCooldown, d.Reason)
				assert.Equal(t, 10*time.Second-tt.second, d.Remaining)
				assert.Equal(t, t0, g.LastAccepted(), "rejection must not move the gate")
			}
		})
	}
}

func TestGate_MalformedPayloadDoesNotMutate(t *testing.T) {
	g := NewGate(10 * time.Second)

	for _, payload := range []string{"stop", "", "starting", "s t a r t"} {
		d := g.Evaluate(push(payload), t0)
		assert.False(t, d.Admitted, payload)
		assert.Equal(t, ReasonMalformed, d.Reason, payload)
		assert.True(t, errors.Is(d.Err(), ErrMalformedTrigger))
		assert.True(t, errors.IsCategory(d.Err(), errors.CategoryTrigger))
	}
	assert.True(t, g.LastAccepted().IsZero())

	// a malformed payload during cooldown does not extend it
	require.True(t, g.Admit(push("start"), t0))
	assert.False(t, g.Admit(push("noise"), t0.Add(5*time.Second)))
	assert.True(t, g.Admit(push("start"), t0.Add(10*time.Second)))
}

func TestGate_ClockStepBackward(t *testing.T) {
	g := NewGate(10 * time.Second)
	require.True(t, g.Admit(push("start"), t0))

	d := g.Evaluate(push("start"), t0.Add(-time.Hour))

	assert.False(t, d.Admitted)
	assert.Equal(t, ReasonCooldown, d.Reason)
	assert.Equal(t, 10*time.Second, d.Remaining)
	assert.Equal(t, t0, g.LastAccepted())
}

func TestGate_ZeroCooldownAdmitsEveryStart(t *testing.T) {
	g := NewGate(0)
	assert.True(t, g.Admit(push("start"), t0))
	assert.True(t, g.Admit(push("start"), t0))
	assert.True(t, g.Admit(push("start"), t0.Add(time.Nanosecond)))
}

func TestGate_CustomAcceptLiteral(t *testing.T) {
	g := NewGate(time.Second, WithAcceptLiteral(" GO "))

	assert.False(t, g.Admit(push("start"), t0))
	assert.True(t, g.Admit(push("go"), t0))
}

func TestGate_ConcurrentEvaluateAdmitsOnce(t *testing.T) {
	g := NewGate(time.Minute)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			if g.Admit(push("start"), t0) {
				admitted.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}
