// Package metadata fetches off-chain token metadata from a token-list API.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://lite-api.jup.ag/tokens/v1"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("metadata http %d", e.StatusCode)
	}
	return fmt.Sprintf("metadata http %d: %s", e.StatusCode, b)
}

// TokenInfo is the subset of the token-list record the dashboard shows
type TokenInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// Token looks up metadata for a single mint. A 404 from the list API is
// reported as an HTTPError so callers can fall back to synthesized names.
func (c *Client) Token(ctx context.Context, mint string) (*TokenInfo, error) {
	if strings.TrimSpace(mint) == "" {
		return nil, fmt.Errorf("mint is required")
	}

	u := c.BaseURL + "/token/" + mint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out TokenInfo
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode token metadata response: %w", err)
	}
	return &out, nil
}
