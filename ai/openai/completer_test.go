package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(host),
		ai.WithAPIKey("test-key"),
		ai.WithChatModel("test-chat"),
		ai.WithEmbeddingModel("test-embed"),
	)
}

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *Completer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	c, err := newCompleter(cfg, newHTTPClient(cfg))
	require.NoError(t, err)
	return c
}

const completionJSON = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "test-chat",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "A HELOC is a line of credit."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18}
}`

func TestCompleter_Complete(t *testing.T) {
	var body map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionJSON)
	})

	completion, err := c.Complete(t.Context(), &ai.CompletionRequest{
		Messages:    []core.ChatMessage{{Role: core.RoleUser, Content: "What is a HELOC?"}},
		MaxTokens:   150,
		Temperature: 0.7,
		Extra: map[string]json.RawMessage{
			"top_p":      json.RawMessage(`0.9`),
			"max_tokens": json.RawMessage(`999`),
			"user":       json.RawMessage(`"abc"`),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", completion.ID)
	assert.Equal(t, "test-chat", completion.Model)
	assert.Equal(t, "A HELOC is a line of credit.", completion.Content)
	assert.Contains(t, string(completion.Raw), `"chatcmpl-1"`)

	// Model falls back to the configured chat model.
	assert.Equal(t, "test-chat", body["model"])
	// Explicit fields win over pass-through ones.
	assert.EqualValues(t, 150, body["max_tokens"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-6)
	assert.InDelta(t, 0.9, body["top_p"], 1e-6)
	assert.Equal(t, "abc", body["user"])
	assert.NotEqual(t, true, body["stream"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "What is a HELOC?", messages[0].(map[string]any)["content"])
}

func TestCompleter_Stream(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"F1", "F2", "F3"} {
			fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-1\",\"object\":\"chat.completion.chunk\",\"model\":\"test-chat\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := c.Stream(t.Context(), &ai.CompletionRequest{
		Model:    "test-chat",
		Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var got []string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk.Content)
		assert.Contains(t, string(chunk.Raw), "chat.completion.chunk")
	}
	assert.Equal(t, []string{"F1", "F2", "F3"}, got)

	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
}

func TestCompleter_APIError(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"rate_limit","code":"rate_limit_exceeded"}}`)
	})
	req := &ai.CompletionRequest{Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}}}

	t.Run("complete", func(t *testing.T) {
		_, err := c.Complete(t.Context(), req)
		require.Error(t, err)

		apiErr, ok := ai.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "quota exceeded", apiErr.Message)
		assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
		assert.Equal(t, "rate_limit", apiErr.Type)
	})

	t.Run("stream", func(t *testing.T) {
		_, err := c.Stream(t.Context(), req)
		require.Error(t, err)

		apiErr, ok := ai.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	})
}

func TestCompleter_UnparseableErrorBody(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})

	_, err := c.Complete(t.Context(), &ai.CompletionRequest{
		Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
	})
	apiErr, ok := ai.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Body)
}

func TestCompleter_InvalidParams(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	_, err := c.Complete(t.Context(), &ai.CompletionRequest{
		Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
		Extra:    map[string]json.RawMessage{"top_p": json.RawMessage(`"high"`)},
	})
	assert.ErrorIs(t, err, ai.ErrInvalidParams)

	_, err = c.Stream(t.Context(), nil)
	assert.ErrorIs(t, err, ai.ErrInvalidParams)
}

func TestCompleter_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionJSON)
	})

	_, err := c.Complete(t.Context(), &ai.CompletionRequest{
		Messages:    []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
		MaxTokens:   150,
		Temperature: 0,
	})
	require.NoError(t, err)

	temperature, ok := body["temperature"]
	require.True(t, ok, "temperature missing from %v", body)
	assert.InDelta(t, 0, temperature, 1e-6)
}

func TestCompleter_ForwardsUnmodelledFields(t *testing.T) {
	extra := map[string]json.RawMessage{
		"top_p":      json.RawMessage(`0.5`),
		"extra_body": json.RawMessage(`{"google":{"thinking_config":{"thinking_budget":0}}}`),
		"x_custom":   json.RawMessage(`["a","b"]`),
		// Owned by the completer, never taken from the pass-through set.
		"model":      json.RawMessage(`"other-model"`),
		"max_tokens": json.RawMessage(`7`),
	}

	check := func(t *testing.T, body map[string]any, stream bool) {
		t.Helper()
		assert.InDelta(t, 0.5, body["top_p"], 1e-6)
		assert.Equal(t, map[string]any{"google": map[string]any{"thinking_config": map[string]any{"thinking_budget": float64(0)}}}, body["extra_body"])
		assert.Equal(t, []any{"a", "b"}, body["x_custom"])
		assert.Equal(t, "test-chat", body["model"])
		_, hasMaxTokens := body["max_tokens"]
		assert.False(t, hasMaxTokens)
		if stream {
			assert.Equal(t, true, body["stream"])
		}
	}

	t.Run("complete", func(t *testing.T) {
		var body map[string]any
		c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, completionJSON)
		})

		_, err := c.Complete(t.Context(), &ai.CompletionRequest{
			Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
			Extra:    extra,
		})
		require.NoError(t, err)
		check(t, body, false)
	})

	t.Run("stream", func(t *testing.T) {
		var body map[string]any
		c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
		})

		stream, err := c.Stream(t.Context(), &ai.CompletionRequest{
			Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
			Extra:    extra,
		})
		require.NoError(t, err)
		defer stream.Close()
		check(t, body, true)
	})
}

func TestPassthroughTransport(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), r.ContentLength)
		got = nil
		require.NoError(t, json.Unmarshal(data, &got))
	}))
	defer srv.Close()

	client := &http.Client{Transport: &passthroughTransport{base: http.DefaultTransport}}
	ctx := withPassthrough(t.Context(), map[string]json.RawMessage{
		"a": json.RawMessage(`"extra"`),
		"b": json.RawMessage(`2`),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, strings.NewReader(`{"a":"kept"}`))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.JSONEq(t, `"kept"`, string(got["a"]))
	assert.JSONEq(t, `2`, string(got["b"]))

	t.Run("no fields leaves body untouched", func(t *testing.T) {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL, strings.NewReader(`{"a":1}`))
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Len(t, got, 1)
	})
}
