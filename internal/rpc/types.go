package rpc

import (
	"encoding/base64"
	"fmt"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// AccountInfo is a decoded account fetched via getAccountInfo
type AccountInfo struct {
	Owner    string
	Lamports uint64
	Data     []byte
}

// rawAccount is the base64-encoded account envelope shared by
// getAccountInfo and getProgramAccounts responses.
type rawAccount struct {
	Lamports uint64        `json:"lamports"`
	Owner    string        `json:"owner"`
	Data     []interface{} `json:"data"` // [payload, encoding]
}

// DecodeData decodes the base64 payload of the account data field
func (a *rawAccount) DecodeData() ([]byte, error) {
	if len(a.Data) < 2 {
		return nil, fmt.Errorf("unexpected account data shape")
	}
	payload, ok := a.Data[0].(string)
	if !ok {
		return nil, fmt.Errorf("account data payload is not a string")
	}
	enc, ok := a.Data[1].(string)
	if !ok || enc != "base64" {
		return nil, fmt.Errorf("unexpected account data encoding %v", a.Data[1])
	}
	return base64.StdEncoding.DecodeString(payload)
}

// AccountInfoResponse is the response from getAccountInfo
type AccountInfoResponse struct {
	Result struct {
		Value *rawAccount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// ProgramFilter narrows a getProgramAccounts scan
type ProgramFilter struct {
	DataSize uint64        `json:"dataSize,omitempty"`
	MemCmp   *MemCmpFilter `json:"memcmp,omitempty"`
}

// MemCmpFilter matches accounts whose data contains the given base58 bytes at offset
type MemCmpFilter struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"`
}

// ProgramAccount is one decoded entry from getProgramAccounts
type ProgramAccount struct {
	Pubkey string
	Owner  string
	Data   []byte
}

// ProgramAccountsResponse is the response from getProgramAccounts
type ProgramAccountsResponse struct {
	Result []struct {
		Pubkey  string     `json:"pubkey"`
		Account rawAccount `json:"account"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

// TokenBalanceResponse is the response from getTokenAccountBalance
type TokenBalanceResponse struct {
	Result struct {
		Value TokenAmount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// ParsedTokenAccount is one token account from getTokenAccountsByOwner (jsonParsed)
type ParsedTokenAccount struct {
	Pubkey   string
	Mint     string
	Amount   string
	Decimals int
}

// TokenAccountsByOwnerResponse is the response from getTokenAccountsByOwner
type TokenAccountsByOwnerResponse struct {
	Result struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string      `json:"mint"`
							TokenAmount TokenAmount `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// BlockhashResponse is the response from getLatestBlockhash
type BlockhashResponse struct {
	Result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// SendOptions configures transaction broadcast behavior
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
}

// DefaultSendOptions returns recommended send settings
func DefaultSendOptions() SendOptions {
	maxRetries := 3
	return SendOptions{
		SkipPreflight:       false,
		PreflightCommitment: "processed",
		MaxRetries:          &maxRetries,
	}
}

// SendTransactionResponse is the response from sendTransaction
type SendTransactionResponse struct {
	Result string    `json:"result"`
	Error  *RPCError `json:"error"`
}

// SignatureStatus is one entry from getSignatureStatuses
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// SignatureStatusesResponse is the response from getSignatureStatuses.
// Entries are nil for signatures the cluster has not seen.
type SignatureStatusesResponse struct {
	Result struct {
		Value []*SignatureStatus `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// TransactionResponse is the response from getTransaction
type TransactionResponse struct {
	Result *struct {
		Meta *struct {
			Err         interface{} `json:"err"`
			LogMessages []string    `json:"logMessages"`
		} `json:"meta"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
