// Package monzo provides a minimal client for the Monzo REST API endpoints
// the gateway uses: accounts, balance, transactions, and pots.
package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError carries a non-2xx upstream status and the message Monzo returned
// with it, when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("monzo api status %d: %s", e.StatusCode, e.Message)
}

// Client is a bearer-token HTTP client for the Monzo API.
type Client struct {
	BaseURL     string
	AccessToken string
	HTTP        *http.Client
}

// New returns a new client. If httpClient is nil, a default with 10s timeout is used.
func New(baseURL, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), AccessToken: accessToken, HTTP: httpClient}
}

// Accounts lists the accounts visible to the configured token.
func (c *Client) Accounts(ctx context.Context) (map[string]any, error) {
	return c.get(ctx, "/accounts", nil)
}

// Balance fetches the balance summary for one account.
func (c *Client) Balance(ctx context.Context, accountID string) (map[string]any, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	return c.get(ctx, "/balance", q)
}

// Transactions lists up to limit transactions for the account, expanded with
// merchant details. A non-empty since is forwarded as a lower time bound; an
// empty since is omitted from the query entirely.
func (c *Client) Transactions(ctx context.Context, accountID string, limit int, since string) (map[string]any, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("expand[]", "merchant")
	if since != "" {
		q.Set("since", since)
	}
	return c.get(ctx, "/transactions", q)
}

// Pots lists the pots attached to the given current account, deleted ones
// included; callers filter those out.
func (c *Client) Pots(ctx context.Context, accountID string) (map[string]any, error) {
	q := url.Values{}
	q.Set("current_account_id", accountID)
	return c.get(ctx, "/pots", q)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	reqURL := c.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body map[string]any
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "Monzo API error"
		if decodeErr == nil {
			if m, ok := body["message"].(string); ok && m != "" {
				msg = m
			}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode monzo response: %w", decodeErr)
	}
	return body, nil
}
