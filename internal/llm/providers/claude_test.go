package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/resilience"
)

func newClaudeTestServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, "claude-test", payload["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newClaudeTestProvider(serverURL string) *ClaudeProvider {
	cfg := config.Default()
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.Model = "claude-test"
	cfg.LLM.BaseURL = serverURL + "/"
	return NewClaudeProvider(cfg)
}

func TestClaudeProvider_Generate(t *testing.T) {
	var calls int32
	server := newClaudeTestServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [
			{"type": "text", "text": "Here you go: "},
			{"type": "text", "text": "{\"title\":\"Backend Engineer\"}"}
		],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 12, "output_tokens": 9}
	}`, &calls)

	out, err := newClaudeTestProvider(server.URL).Generate(context.Background(), "extract the job")
	require.NoError(t, err)
	assert.Equal(t, `Here you go: {"title":"Backend Engineer"}`, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClaudeProvider_EmptyReplyIsPermanent(t *testing.T) {
	var calls int32
	server := newClaudeTestServer(t, http.StatusOK, `{
		"id": "msg_02",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 12, "output_tokens": 0}
	}`, &calls)

	guard := resilience.NewGuard("llm", resilience.Policy{MaxAttempts: 3}, nil, nil)
	err := guard.Do(context.Background(), "llm", func(ctx context.Context) error {
		_, err := newClaudeTestProvider(server.URL).Generate(ctx, "extract the job")
		return err
	})

	require.ErrorIs(t, err, ErrEmptyReply)
	assert.True(t, resilience.IsPermanent(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClaudeProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantPermanent bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"bad request", http.StatusBadRequest, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"overloaded", 529, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := newClaudeTestServer(t, tt.status, `{"type":"error","error":{"type":"api_error","message":"nope"}}`, &calls)

			_, err := newClaudeTestProvider(server.URL).Generate(context.Background(), "prompt")
			require.Error(t, err)

			var statusErr *resilience.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantPermanent, resilience.IsPermanent(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "sdk retries must be disabled")
		})
	}
}

func TestClaudeProvider_HealthRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""

	err := NewClaudeProvider(cfg).IsHealthy(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "claude", NewClaudeProvider(cfg).GetProviderName())
}
