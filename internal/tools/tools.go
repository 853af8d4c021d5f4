// Package tools implements the gateway's six operations. The same registry
// serves the direct dispatch endpoint and the chat pipeline's data-fetch
// hop, so both paths behave identically.
package tools

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"monzo-mcp/internal/config"
	"monzo-mcp/internal/monzo"
	"monzo-mcp/internal/openai"
)

// Error is a tool failure with the HTTP status the gateway should return.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	errNotFound      = &Error{Status: http.StatusNotFound, Message: "Tool not found"}
	errInvalidFormat = &Error{Status: http.StatusInternalServerError, Message: "Invalid response format"}
)

// Toolbox holds the upstream clients and configuration the operations need.
type Toolbox struct {
	cfg  *config.Config
	bank *monzo.Client
	ai   *openai.Client
	log  zerolog.Logger
}

func NewToolbox(cfg *config.Config, bank *monzo.Client, ai *openai.Client, log zerolog.Logger) *Toolbox {
	return &Toolbox{cfg: cfg, bank: bank, ai: ai, log: log}
}

// Execute dispatches by exact tool name. Unknown names fail with 404.
func (t *Toolbox) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	if name == "chatWithAI" {
		return t.ChatWithAI(ctx, params)
	}
	return t.executeData(ctx, name, params)
}

// executeData dispatches the five data-fetching operations. The chat
// pipeline uses this directly so a model cannot select chatWithAI and
// recurse.
func (t *Toolbox) executeData(ctx context.Context, name string, params map[string]any) (any, error) {
	switch name {
	case "listAccounts":
		return t.ListAccounts(ctx)
	case "getBalance":
		return t.GetBalance(ctx, params)
	case "listTransactions":
		return t.ListTransactions(ctx, params)
	case "getPots":
		return t.GetPots(ctx, params)
	case "getUserInfo":
		return t.GetUserInfo()
	default:
		return nil, errNotFound
	}
}

// Account is the normalized projection of an upstream account record.
type Account struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Created     string `json:"created"`
	UserID      string `json:"userId"`
}

// ListAccounts fetches the account list and reduces each record to the
// gateway's shape. Accounts without an owner fall back to the configured
// user id.
func (t *Toolbox) ListAccounts(ctx context.Context) (any, error) {
	body, err := t.bank.Accounts(ctx)
	if err != nil {
		return nil, t.bankError("listAccounts", err)
	}
	raw, ok := body["accounts"].([]any)
	if !ok {
		return nil, errInvalidFormat
	}
	accounts := make([]Account, 0, len(raw))
	for _, it := range raw {
		m, _ := it.(map[string]any)
		accounts = append(accounts, Account{
			ID:          getString(m, "id"),
			Description: getString(m, "description"),
			Created:     getString(m, "created"),
			UserID:      ownerUserID(m, t.cfg.MonzoUserID),
		})
	}
	return accounts, nil
}

// Balance is the normalized balance summary, monetary fields in pounds.
type Balance struct {
	Balance      float64 `json:"balance"`
	TotalBalance float64 `json:"totalBalance"`
	Currency     string  `json:"currency"`
	SpendToday   float64 `json:"spendToday"`
}

func (t *Toolbox) GetBalance(ctx context.Context, params map[string]any) (any, error) {
	accountID, err := requireString(params, "accountId")
	if err != nil {
		return nil, err
	}
	body, err := t.bank.Balance(ctx, accountID)
	if err != nil {
		return nil, t.bankError("getBalance", err)
	}
	if _, ok := body["balance"]; !ok {
		return nil, errInvalidFormat
	}
	return Balance{
		Balance:      getNumber(body, "balance") / 100,
		TotalBalance: getNumber(body, "total_balance") / 100,
		Currency:     getString(body, "currency"),
		SpendToday:   getNumber(body, "spend_today") / 100,
	}, nil
}

const (
	defaultTransactionLimit = 5
	maxTransactionLimit     = 50
)

// Transaction is the normalized projection of an upstream transaction.
type Transaction struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Currency    string  `json:"currency"`
	Merchant    string  `json:"merchant,omitempty"`
	Category    string  `json:"category"`
	Notes       string  `json:"notes"`
}

// ListTransactions fetches up to limit transactions. The effective limit is
// min(requested, 50); an unset or zero value means the default of 5. An
// empty since filter is omitted from the upstream query.
func (t *Toolbox) ListTransactions(ctx context.Context, params map[string]any) (any, error) {
	accountID, err := requireString(params, "accountId")
	if err != nil {
		return nil, err
	}
	limit := getInt(params, "limit")
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	since := getString(params, "since")

	body, err := t.bank.Transactions(ctx, accountID, limit, since)
	if err != nil {
		return nil, t.bankError("listTransactions", err)
	}
	raw, ok := body["transactions"].([]any)
	if !ok {
		return nil, errInvalidFormat
	}
	txns := make([]Transaction, 0, len(raw))
	for _, it := range raw {
		m, _ := it.(map[string]any)
		txns = append(txns, Transaction{
			ID:          getString(m, "id"),
			Amount:      getNumber(m, "amount") / 100,
			Description: getString(m, "description"),
			Date:        getString(m, "created"),
			Currency:    getString(m, "currency"),
			Merchant:    merchantName(m),
			Category:    getString(m, "category"),
			Notes:       getString(m, "notes"),
		})
	}
	return txns, nil
}

// Pot is the normalized projection of a live (non-deleted) pot.
type Pot struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// GetPots fetches the pots for an account, dropping deleted ones before any
// mapping happens.
func (t *Toolbox) GetPots(ctx context.Context, params map[string]any) (any, error) {
	accountID, err := requireString(params, "accountId")
	if err != nil {
		return nil, err
	}
	body, err := t.bank.Pots(ctx, accountID)
	if err != nil {
		return nil, t.bankError("getPots", err)
	}
	raw, ok := body["pots"].([]any)
	if !ok {
		return nil, errInvalidFormat
	}
	pots := make([]Pot, 0, len(raw))
	for _, it := range raw {
		m, _ := it.(map[string]any)
		if deleted, _ := m["deleted"].(bool); deleted {
			continue
		}
		pots = append(pots, Pot{
			ID:      getString(m, "id"),
			Name:    getString(m, "name"),
			Balance: getNumber(m, "balance") / 100,
		})
	}
	return pots, nil
}

// UserInfo is answered from configuration alone; no upstream call.
type UserInfo struct {
	UserID string `json:"userId"`
}

func (t *Toolbox) GetUserInfo() (any, error) {
	return UserInfo{UserID: t.cfg.MonzoUserID}, nil
}

// bankError maps an upstream failure onto the gateway's error contract:
// non-2xx statuses pass through with their message, anything else (network,
// decode) becomes a plain error that surfaces as a generic 500.
func (t *Toolbox) bankError(tool string, err error) error {
	var apiErr *monzo.APIError
	if errors.As(err, &apiErr) {
		t.log.Error().Str("tool", tool).Int("status", apiErr.StatusCode).Msg(apiErr.Message)
		return &Error{Status: apiErr.StatusCode, Message: apiErr.Message}
	}
	t.log.Error().Str("tool", tool).Err(err).Msg("monzo request failed")
	return err
}

func ownerUserID(m map[string]any, fallback string) string {
	if owners, ok := m["owners"].([]any); ok && len(owners) > 0 {
		if owner, ok := owners[0].(map[string]any); ok {
			if id := getString(owner, "user_id"); id != "" {
				return id
			}
		}
	}
	return fallback
}

// merchantName handles the three shapes Monzo returns for merchant: an
// expanded object, a bare id string, or null.
func merchantName(m map[string]any) string {
	switch v := m["merchant"].(type) {
	case map[string]any:
		return getString(v, "name")
	case string:
		return v
	}
	return ""
}

func requireString(params map[string]any, key string) (string, error) {
	v, _ := params[key].(string)
	if v == "" {
		return "", &Error{Status: http.StatusBadRequest, Message: "Missing required parameter: " + key}
	}
	return v, nil
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getNumber(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func getInt(m map[string]any, key string) int {
	return int(getNumber(m, key))
}
