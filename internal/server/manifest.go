package server

import "net/http"

// handleManifest returns the static declaration of the six tools. The
// manifest is hardcoded; it changes only when the gateway's surface does.
func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": manifest})
}

var manifest = []Tool{
	{
		Name:        "listAccounts",
		Description: "List the user's bank accounts",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Returns: "Array of {id, description, created, userId}",
	},
	{
		Name:        "getBalance",
		Description: "Get the current balance for an account",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"accountId": map[string]any{"type": "string", "description": "Account to query"},
			},
			"required": []string{"accountId"},
		},
		Returns: "{balance, totalBalance, currency, spendToday} in pounds",
	},
	{
		Name:        "listTransactions",
		Description: "List recent transactions for an account",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"accountId": map[string]any{"type": "string", "description": "Account to query"},
				"limit":     map[string]any{"type": "integer", "default": 5, "maximum": 50},
				"since":     map[string]any{"type": "string", "format": "date-time", "description": "Only return transactions after this time"},
			},
			"required": []string{"accountId"},
		},
		Returns: "Array of {id, amount, description, date, currency, merchant, category, notes}, amounts in pounds",
	},
	{
		Name:        "getPots",
		Description: "List the user's savings pots",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"accountId": map[string]any{"type": "string", "description": "Current account the pots belong to"},
			},
			"required": []string{"accountId"},
		},
		Returns: "Array of {id, name, balance} in pounds, deleted pots excluded",
	},
	{
		Name:        "getUserInfo",
		Description: "Get the configured user's id",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Returns: "{userId}",
	},
	{
		Name:        "chatWithAI",
		Description: "Ask a natural-language question about the user's finances",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message":   map[string]any{"type": "string", "description": "The user's question"},
				"accountId": map[string]any{"type": "string", "description": "Account the question is about"},
				"history":   map[string]any{"type": "array", "items": map[string]any{"type": "object"}, "description": "Prior {role, content} turns", "default": []any{}},
				"maxTokens": map[string]any{"type": "integer", "default": 150, "maximum": 4096},
			},
			"required": []string{"message", "accountId"},
		},
		Returns: "{response}",
	},
}
