package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(client.Close)
	return client
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func closeResponseBody(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		t.Logf("failed to close response body: %v", err)
	}
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "lanewatch-test/1.0"})
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "lanewatch-test/1.0", client.userAgent)
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		cfg := Config{}
		client := New(&cfg)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.NotEmpty(t, client.userAgent)
		assert.Equal(t, Config{}, cfg, "caller config must not be mutated")
	})
}

func TestDo_NilRequest(t *testing.T) {
	_, err := New(nil).Do(t.Context(), nil)
	require.Error(t, err)
}

func TestGet_UserAgentAndBody(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("start"))
	})
	client := newTestClient(t, nil)

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "start", string(body))
}

func TestGet_BodyReadableAfterReturn(t *testing.T) {
	payload := strings.Repeat("0", 1<<20)
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	})
	// the default timeout context stays alive until the body is closed
	client := newTestClient(t, &Config{DefaultTimeout: 5 * time.Second})

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, body, len(payload))
}

func TestDo_DefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	resp, err := client.Get(t.Context(), server.URL)
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_ContextDeadlineOverridesDefault(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t, &Config{DefaultTimeout: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDo_ContextCancellation(t *testing.T) {
	client := newTestClient(t, nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	resp, err := client.Get(ctx, "http://192.0.2.1/trigger")
	defer closeResponseBody(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCustomTransport(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "http://controller.local/trigger",
		httpmock.NewStringResponder(http.StatusOK, "Start"))

	client := newTestClient(t, &Config{Transport: transport})

	resp, err := client.Get(t.Context(), "http://controller.local/trigger")
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Start", string(body))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestClose(t *testing.T) {
	client := New(nil)
	client.Close()
	client.Close()
}
