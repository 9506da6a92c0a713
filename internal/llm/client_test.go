package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		Model:         "test-model",
		Timeout:       5 * time.Second,
		RatePerSecond: 100,
	})
}

func TestClient_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"score\":0.4}"}}]}`))
	})

	content, err := client.Complete(context.Background(), "be terse", "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"score":0.4}`, content)
}

func TestClient_Disabled(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost"})
	assert.False(t, client.IsEnabled())

	_, err := client.Complete(context.Background(), "", "hello")
	assert.ErrorIs(t, err, ErrDisabled)

	var nilClient *Client
	assert.False(t, nilClient.IsEnabled())
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		target    error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
		{name: "server error", status: http.StatusBadGateway, transient: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"bad"}`, transient: false},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, target: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "", "hello")
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Complete(context.Background(), "", "hello")
		require.Error(t, err)
	}

	_, err := client.Complete(context.Background(), "", "hello")
	require.Error(t, err)
	assert.Equal(t, 5, calls, "open breaker should short-circuit further calls")
}
