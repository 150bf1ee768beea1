package models

import "time"

// PoolCreationEvent is one pool creation attempt as seen by the gateway.
// Status is "confirmed" or "failed"; failed attempts keep their error kind
// so the dashboard can surface actionable reasons.
type PoolCreationEvent struct {
	Signature string    `json:"signature"`
	Timestamp time.Time `json:"timestamp"`
	Pool      string    `json:"pool"`
	Creator   string    `json:"creator"`
	Token0    string    `json:"token_0"`
	Token1    string    `json:"token_1"`
	Config    string    `json:"config"`
	Amount0   uint64    `json:"amount_0"`
	Amount1   uint64    `json:"amount_1"`
	Status    string    `json:"status"`
	ErrorKind string    `json:"error_kind,omitempty"`
}
