package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// QuoteResponse carries a priced swap for the dashboard
type QuoteResponse struct {
	Pool        string  `json:"pool"`
	InputMint   string  `json:"inputMint"`
	OutputMint  string  `json:"outputMint"`
	AmountIn    uint64  `json:"amountIn"`
	AmountOut   uint64  `json:"amountOut"`
	MinReceived uint64  `json:"minReceived"`
	FeeBps      uint64  `json:"feeBps"`
	SlippageBps uint64  `json:"slippageBps"`
	Rate        float64 `json:"rate"`
	PriceImpact float64 `json:"priceImpact"`
}

// DepositRequest is one side of a pool creation request
type DepositRequest struct {
	Mint    string `json:"mint"`
	Amount  uint64 `json:"amount"`
	Account string `json:"account,omitempty"` // defaults to the creator's ATA
}

// CreatePoolRequest asks the server to prepare a creation transaction
type CreatePoolRequest struct {
	Creator  string         `json:"creator"`
	Config   string         `json:"config"`
	DepositA DepositRequest `json:"depositA"`
	DepositB DepositRequest `json:"depositB"`
	OpenTime uint64         `json:"openTime,omitempty"`
}

// SubmitPoolRequest posts back the countersigned creation transaction
type SubmitPoolRequest struct {
	Transaction string `json:"transaction"` // base64 wire format
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about creation data
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
