package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"monzo-mcp/internal/openai"
)

const (
	// currentDateAnchor pins "today" for the model so relative-time
	// questions ("this week", "since Monday") resolve deterministically.
	currentDateAnchor = "2025-01-15"

	selectionMaxTokens = 150
	defaultMaxTokens   = 150
	maxMaxTokens       = 4096
	chatTemperature    = 0.7
)

// ChatResult is the final payload of the chat pipeline.
type ChatResult struct {
	Response string `json:"response"`
}

// toolDecision is what the selection hop must produce: either a tool to
// call with params, or tool "none" with a direct response.
type toolDecision struct {
	Tool     string         `json:"tool"`
	Params   map[string]any `json:"params"`
	Response string         `json:"response"`
}

const selectionPrompt = `You are a tool-selection assistant for a personal banking app.
You can call exactly one of these tools to answer the user's question:
- listAccounts(): list the user's bank accounts
- getBalance(accountId): current balance, total balance and spend today for an account
- listTransactions(accountId, limit, since): recent transactions; limit defaults to 5, max 50; since is an optional RFC3339 lower bound
- getPots(accountId): the user's savings pots
- getUserInfo(): the user's id

The user's account id is %s. The current date is %s.
Reply with only a JSON object. To call a tool: {"tool": "<name>", "params": {...}}.
If no tool is needed, answer directly: {"tool": "none", "response": "<your answer>"}.`

const formattingPrompt = `You are a friendly assistant for a personal banking app.
The user asked: %s
This data was fetched to answer them: %s
The current date is %s.
Answer conversationally in plain language. You may sum, average or compare
the numbers in the data if that helps. Do not mention tools or JSON.`

// ChatWithAI runs the fixed two-hop pipeline: ask the model which tool to
// call, execute it, then ask the model to phrase the answer. The hops are
// strictly sequential; the second depends on the first's decision.
func (t *Toolbox) ChatWithAI(ctx context.Context, params map[string]any) (any, error) {
	message, err := requireString(params, "message")
	if err != nil {
		return nil, err
	}
	accountID, err := requireString(params, "accountId")
	if err != nil {
		return nil, err
	}
	history := historyTurns(params)
	maxTokens := getInt(params, "maxTokens")
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if maxTokens > maxMaxTokens {
		maxTokens = maxMaxTokens
	}

	// Hop 1: tool selection.
	system := fmt.Sprintf(selectionPrompt, accountID, currentDateAnchor)
	messages := make([]openai.Message, 0, len(history)+2)
	messages = append(messages, openai.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, openai.Message{Role: "user", Content: message})

	reply, err := t.ai.ChatCompletion(ctx, messages, selectionMaxTokens, chatTemperature)
	if err != nil {
		return nil, t.aiError(err)
	}
	raw, err := openai.ExtractJSON(reply)
	if err != nil {
		t.log.Error().Err(err).Str("reply", reply).Msg("no usable decision in AI reply")
		return nil, &Error{Status: http.StatusInternalServerError, Message: "Failed to parse AI response"}
	}
	var decision toolDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: "Failed to parse AI response"}
	}
	if decision.Tool == "none" {
		return ChatResult{Response: decision.Response}, nil
	}

	// Hop 2: data fetch with the model's chosen tool and params.
	t.log.Info().Str("tool", decision.Tool).Msg("AI selected tool")
	data, err := t.executeData(ctx, decision.Tool, decision.Params)
	if err != nil {
		return nil, err
	}
	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	// Hop 3: answer formatting. The raw text comes back as-is.
	system = fmt.Sprintf(formattingPrompt, message, serialized, currentDateAnchor)
	messages = make([]openai.Message, 0, len(history)+2)
	messages = append(messages, openai.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, openai.Message{Role: "user", Content: message})

	answer, err := t.ai.ChatCompletion(ctx, messages, maxTokens, chatTemperature)
	if err != nil {
		return nil, t.aiError(err)
	}
	return ChatResult{Response: answer}, nil
}

// historyTurns converts the caller-supplied history into completion turns.
// The gateway passes history through untouched; malformed entries are
// dropped rather than rejected.
func historyTurns(params map[string]any) []openai.Message {
	raw, ok := params["history"].([]any)
	if !ok {
		return nil
	}
	turns := make([]openai.Message, 0, len(raw))
	for _, it := range raw {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		role := getString(m, "role")
		content := getString(m, "content")
		if role == "" || content == "" {
			continue
		}
		turns = append(turns, openai.Message{Role: role, Content: content})
	}
	return turns
}

func (t *Toolbox) aiError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		t.log.Error().Int("status", apiErr.StatusCode).Msg(apiErr.Message)
		return &Error{Status: apiErr.StatusCode, Message: apiErr.Message}
	}
	t.log.Error().Err(err).Msg("completion request failed")
	return err
}
