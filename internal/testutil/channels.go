// Package testutil holds helpers for testing the long-running loops: the
// trigger transports, the metrics endpoint and the app.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second
)

// WaitForChannel waits for a signal on ch or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// Start runs run in a goroutine with a context derived from the test. The
// returned stop func cancels it and requires run to return nil within
// DefaultTestTimeout. stop may be called more than once.
func Start(t *testing.T, run func(context.Context) error) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	var stopped bool
	return func() {
		t.Helper()
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(DefaultTestTimeout):
			require.Fail(t, "loop did not stop after cancel")
		}
	}
}
