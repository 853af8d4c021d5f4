package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionRequestShape(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "hello"}}},
		})
	}))
	defer server.Close()

	c := New(server.URL, "sk-test", nil)
	content, err := c.ChatCompletion(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, 150, 0.7)
	require.NoError(t, err)

	assert.Equal(t, "hello", content)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, DefaultModel, gotBody["model"])
	assert.Equal(t, float64(150), gotBody["max_tokens"])
	assert.Equal(t, 0.7, gotBody["temperature"])
}

func TestChatCompletionErrorPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "Rate limit reached"}})
	}))
	defer server.Close()

	c := New(server.URL, "sk-test", nil)
	_, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, 150, 0.7)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Rate limit reached", apiErr.Message)
}

func TestChatCompletionNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := New(server.URL, "sk-test", nil)
	_, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, 150, 0.7)
	assert.Error(t, err)
}
