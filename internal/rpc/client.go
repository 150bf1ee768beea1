package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP client with retry and timeout support for Solana RPC
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a new RPC client with retry support
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// Call makes a JSON-RPC call with retry logic
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		resp, err := c.doRequest(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		if err := json.Unmarshal(resp, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// GetAccountInfo fetches raw account data (base64) for an address.
// A nil result with a nil error means the account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	params := []interface{}{
		address,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": "confirmed",
		},
	}

	var result AccountInfoResponse
	if err := c.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.Result.Value == nil {
		return nil, nil
	}

	data, err := result.Result.Value.DecodeData()
	if err != nil {
		return nil, err
	}

	return &AccountInfo{
		Owner:    result.Result.Value.Owner,
		Lamports: result.Result.Value.Lamports,
		Data:     data,
	}, nil
}

// GetProgramAccounts fetches all accounts owned by a program, optionally
// constrained by dataSize / memcmp filters.
func (c *Client) GetProgramAccounts(ctx context.Context, programID string, filters []ProgramFilter) ([]ProgramAccount, error) {
	opts := map[string]interface{}{
		"encoding":   "base64",
		"commitment": "confirmed",
	}
	if len(filters) > 0 {
		opts["filters"] = filters
	}
	params := []interface{}{programID, opts}

	var result ProgramAccountsResponse
	if err := c.Call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}

	out := make([]ProgramAccount, 0, len(result.Result))
	for _, entry := range result.Result {
		data, err := entry.Account.DecodeData()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", entry.Pubkey, err)
		}
		out = append(out, ProgramAccount{
			Pubkey: entry.Pubkey,
			Owner:  entry.Account.Owner,
			Data:   data,
		})
	}
	return out, nil
}

// GetTokenAccountBalance fetches the raw token amount held by a token account
func (c *Client) GetTokenAccountBalance(ctx context.Context, address string) (*TokenAmount, error) {
	params := []interface{}{
		address,
		map[string]interface{}{"commitment": "confirmed"},
	}

	var result TokenBalanceResponse
	if err := c.Call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}

	return &result.Result.Value, nil
}

// GetTokenAccountsByOwner fetches all parsed token accounts an owner holds
// under a given token program.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, tokenProgram string) ([]ParsedTokenAccount, error) {
	params := []interface{}{
		owner,
		map[string]interface{}{"programId": tokenProgram},
		map[string]interface{}{
			"encoding":   "jsonParsed",
			"commitment": "confirmed",
		},
	}

	var result TokenAccountsByOwnerResponse
	if err := c.Call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}

	out := make([]ParsedTokenAccount, 0, len(result.Result.Value))
	for _, entry := range result.Result.Value {
		info := entry.Account.Data.Parsed.Info
		out = append(out, ParsedTokenAccount{
			Pubkey:   entry.Pubkey,
			Mint:     info.Mint,
			Amount:   info.TokenAmount.Amount,
			Decimals: info.TokenAmount.Decimals,
		})
	}
	return out, nil
}

// GetLatestBlockhash fetches the most recent blockhash
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": "confirmed"},
	}

	var result BlockhashResponse
	if err := c.Call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", result.Error
	}
	return result.Result.Value.Blockhash, nil
}

// SendTransaction broadcasts a serialized transaction and returns its signature
func (c *Client) SendTransaction(ctx context.Context, txBytes []byte, opts SendOptions) (string, error) {
	rpcOpts := map[string]interface{}{
		"encoding":            "base64",
		"skipPreflight":       opts.SkipPreflight,
		"preflightCommitment": opts.PreflightCommitment,
	}
	if opts.MaxRetries != nil {
		rpcOpts["maxRetries"] = *opts.MaxRetries
	}
	params := []interface{}{base64.StdEncoding.EncodeToString(txBytes), rpcOpts}

	var result SendTransactionResponse
	if err := c.Call(ctx, "sendTransaction", params, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", result.Error
	}
	return result.Result, nil
}

// GetSignatureStatus fetches the confirmation status for a single signature.
// A nil status means the transaction is not yet visible to the cluster.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	}

	var result SignatureStatusesResponse
	if err := c.Call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if len(result.Result.Value) == 0 || result.Result.Value[0] == nil {
		return nil, nil
	}
	return result.Result.Value[0], nil
}

// GetTransactionLogs fetches the execution log lines of a landed transaction
func (c *Client) GetTransactionLogs(ctx context.Context, signature string) ([]string, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result TransactionResponse
	if err := c.Call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.Result == nil || result.Result.Meta == nil {
		return nil, fmt.Errorf("transaction %s not found", signature)
	}
	return result.Result.Meta.LogMessages, nil
}
