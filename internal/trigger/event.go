// Package trigger turns raw controller messages into capture decisions.
//
// A Gate owns the only mutable trigger state in the process: the time of the
// last accepted trigger. Both transports feed the same Gate.
package trigger

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Source identifies how a trigger reached the process
type Source string

const (
	SourcePush   Source = "push"
	SourcePoll   Source = "poll"
	SourceManual Source = "manual"
)

// Event is one received trigger message
type Event struct {
	Source     Source
	Payload    string
	ReceivedAt time.Time
}

// NewEvent builds an Event stamped with the current time
func NewEvent(source Source, payload string) Event {
	return Event{Source: source, Payload: payload, ReceivedAt: time.Now()}
}

// Normalize trims surrounding whitespace and case-folds the payload.
func Normalize(payload string) string {
	// a Caser is stateful, one per call
	return cases.Fold().String(strings.TrimSpace(payload))
}
