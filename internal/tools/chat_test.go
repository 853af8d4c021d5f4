package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionCall struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// aiStub serves scripted completion replies in order and records each
// request body. Every hit also appends to the shared event log.
type aiStub struct {
	t       *testing.T
	server  *httptest.Server
	replies []string
	calls   []completionCall
	events  *[]string
}

func newAIStub(t *testing.T, events *[]string, replies ...string) *aiStub {
	a := &aiStub{t: t, replies: replies, events: events}
	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call completionCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		a.calls = append(a.calls, call)
		*a.events = append(*a.events, "ai")

		require.Less(t, len(a.calls)-1, len(a.replies), "more completion calls than scripted replies")
		reply := a.replies[len(a.calls)-1]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(a.server.Close)
	return a
}

func TestChatDirectResponseSkipsDataFetch(t *testing.T) {
	var events []string
	ai := newAIStub(t, &events, `{"tool": "none", "response": "Hello! How can I help?"}`)
	bank := newBankStub(t)
	tb := newTestToolbox(t, bank.server.URL, ai.server.URL)

	result, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "hi", "accountId": "acc_1",
	})
	require.NoError(t, err)
	assert.Equal(t, ChatResult{Response: "Hello! How can I help?"}, result)
	assert.Len(t, ai.calls, 1, "a direct answer must not trigger the formatting hop")
	assert.Empty(t, bank.requests, "a direct answer must not fetch data")
}

func TestChatTwoHopPipeline(t *testing.T) {
	var events []string
	ai := newAIStub(t, &events,
		"Sure, let me check.\n```json\n{\"tool\": \"getBalance\", \"params\": {\"accountId\": \"acc_1\"}}\n```",
		"Your balance is £123.45.",
	)
	bank := newBankStub(t)
	bank.mux.HandleFunc("/balance", func(w http.ResponseWriter, _ *http.Request) {
		events = append(events, "bank")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"balance": 12345, "total_balance": 12345, "currency": "GBP", "spend_today": 0,
		})
	})
	tb := newTestToolbox(t, bank.server.URL, ai.server.URL)

	result, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "what's my balance?", "accountId": "acc_1",
	})
	require.NoError(t, err)
	assert.Equal(t, ChatResult{Response: "Your balance is £123.45."}, result)

	// Strictly sequential: selection, fetch, formatting.
	require.Equal(t, []string{"ai", "bank", "ai"}, events)

	require.Len(t, ai.calls, 2)
	assert.Equal(t, selectionMaxTokens, ai.calls[0].MaxTokens)
	assert.Equal(t, defaultMaxTokens, ai.calls[1].MaxTokens)
	assert.Contains(t, ai.calls[1].Messages[0].Content, "123.45", "formatting hop must carry the fetched data")
}

func TestChatMaxTokensClamped(t *testing.T) {
	var events []string
	ai := newAIStub(t, &events,
		`{"tool": "getUserInfo", "params": {}}`,
		"You are user_default.",
	)
	bank := newBankStub(t)
	tb := newTestToolbox(t, bank.server.URL, ai.server.URL)

	_, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "who am I?", "accountId": "acc_1", "maxTokens": float64(100000),
	})
	require.NoError(t, err)
	require.Len(t, ai.calls, 2)
	assert.Equal(t, selectionMaxTokens, ai.calls[0].MaxTokens, "selection hop always requests 150 tokens")
	assert.Equal(t, maxMaxTokens, ai.calls[1].MaxTokens, "formatting hop clamps the caller's value")
}

func TestChatHistoryPassedThrough(t *testing.T) {
	var events []string
	ai := newAIStub(t, &events, `{"tool": "none", "response": "As I said, hello."}`)
	bank := newBankStub(t)
	tb := newTestToolbox(t, bank.server.URL, ai.server.URL)

	_, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "say it again", "accountId": "acc_1",
		"history": []any{
			map[string]any{"role": "user", "content": "hello"},
			map[string]any{"role": "assistant", "content": "hi there"},
		},
	})
	require.NoError(t, err)
	require.Len(t, ai.calls, 1)

	messages := ai.calls[0].Messages
	require.Len(t, messages, 4, "system + 2 history turns + new message")
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "hello", messages[1].Content)
	assert.Equal(t, "hi there", messages[2].Content)
	assert.Equal(t, "say it again", messages[3].Content)
}

func TestChatUnparsableDecision(t *testing.T) {
	var events []string
	ai := newAIStub(t, &events, "I think you should check your balance sometime.")
	bank := newBankStub(t)
	tb := newTestToolbox(t, bank.server.URL, ai.server.URL)

	_, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "hm", "accountId": "acc_1",
	})

	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, http.StatusInternalServerError, toolErr.Status)
	assert.Equal(t, "Failed to parse AI response", toolErr.Message)
	assert.Empty(t, bank.requests)
}

func TestChatUnknownDecidedTool(t *testing.T) {
	var events []string
	ai := newAIStub(t, &events, `{"tool": "transferFunds", "params": {}}`)
	bank := newBankStub(t)
	tb := newTestToolbox(t, bank.server.URL, ai.server.URL)

	_, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "send money", "accountId": "acc_1",
	})

	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, http.StatusNotFound, toolErr.Status)
	assert.Len(t, ai.calls, 1, "no formatting hop after a failed fetch")
}

func TestChatRequiresMessageAndAccount(t *testing.T) {
	tb := newTestToolbox(t, "http://bank.invalid", "http://ai.invalid")

	for _, params := range []map[string]any{
		{"accountId": "acc_1"},
		{"message": "hi"},
	} {
		_, err := tb.Execute(context.Background(), "chatWithAI", params)
		var toolErr *Error
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, http.StatusBadRequest, toolErr.Status)
	}
}

func TestChatUpstreamAIErrorPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "Rate limit reached"}})
	}))
	defer server.Close()
	bank := newBankStub(t)
	tb := newTestToolbox(t, bank.server.URL, server.URL)

	_, err := tb.Execute(context.Background(), "chatWithAI", map[string]any{
		"message": "hi", "accountId": "acc_1",
	})

	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, http.StatusTooManyRequests, toolErr.Status)
	assert.Equal(t, "Rate limit reached", toolErr.Message)
}
