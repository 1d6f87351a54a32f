package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
)

// DefaultCooldown is the minimum spacing between accepted triggers
const DefaultCooldown = 10 * time.Second

// DefaultAcceptLiteral is the payload that starts a capture
const DefaultAcceptLiteral = "start"

// ErrMalformedTrigger marks a payload that is not the accept literal.
var ErrMalformedTrigger = errors.NewStd("malformed trigger")

// Reason explains a gate decision
type Reason string

const (
	ReasonAccepted  Reason = "accepted"
	ReasonMalformed Reason = "malformed"
	ReasonCooldown  Reason = "cooldown"
)

// Decision is the outcome of evaluating one event
type Decision struct {
	Admitted bool
	Reason   Reason
	// Remaining is the cooldown left when Reason is ReasonCooldown
	Remaining time.Duration
}

// Err returns nil for admitted events and a categorized error otherwise.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonMalformed:
		return errors.New(ErrMalformedTrigger).
			Component("trigger").
			Category(errors.CategoryTrigger).
			Build()
	case ReasonCooldown:
		return errors.Newf("cooldown active, %s remaining", d.Remaining.Round(time.Millisecond)).
			Component("trigger").
			Category(errors.CategoryTrigger).
			Build()
	}
	return nil
}

// Gate debounces trigger events. It is safe for concurrent use.
type Gate struct {
	mu             sync.Mutex
	lastAcceptedAt time.Time
	cooldown       time.Duration
	accept         string
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithAcceptLiteral overrides the accepted payload.
func WithAcceptLiteral(literal string) GateOption {
	return func(g *Gate) {
		g.accept = Normalize(literal)
	}
}

// NewGate returns a gate that has never accepted a trigger. A negative
// cooldown is treated as zero.
func NewGate(cooldown time.Duration, opts ...GateOption) *Gate {
	if cooldown < 0 {
		cooldown = 0
	}
	g := &Gate{
		cooldown: cooldown,
		accept:   DefaultAcceptLiteral,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate decides whether event starts a capture at time now. When it does,
// now becomes the last accepted time. Rejections leave the gate unchanged.
func (g *Gate) Evaluate(event Event, now time.Time) Decision {
	if Normalize(event.Payload) != g.accept {
		return Decision{Reason: ReasonMalformed}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastAcceptedAt.IsZero() {
		elapsed := now.Sub(g.lastAcceptedAt)
		if elapsed < g.cooldown {
			// a clock that stepped backwards also lands here
			remaining := g.cooldown - elapsed
			if remaining > g.cooldown {
				remaining = g.cooldown
			}
			return Decision{Reason: ReasonCooldown, Remaining: remaining}
		}
	}

	g.lastAcceptedAt = now
	return Decision{Admitted: true, Reason: ReasonAccepted}
}

// Admit is Evaluate reduced to its verdict.
func (g *Gate) Admit(event Event, now time.Time) bool {
	return g.Evaluate(event, now).Admitted
}

// LastAccepted returns the time of the last accepted trigger, zero if none.
func (g *Gate) LastAccepted() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAcceptedAt
}

// Cooldown returns the configured cooldown
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

func (g *Gate) String() string {
	return fmt.Sprintf("Gate(accept=%q, cooldown=%s)", g.accept, g.cooldown)
}
