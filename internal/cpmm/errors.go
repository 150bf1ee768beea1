package cpmm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for outcomes that are normal control flow for callers.
var (
	// ErrNotFound means the pool/config/account does not exist on chain.
	// Distinct from transport failures, which are reported as *TransportError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidToken means the requested mint is not part of the pool.
	ErrInvalidToken = errors.New("mint is not part of the pool")

	// ErrInsufficientLiquidity means one of the pool vaults is empty, which
	// makes the pool unusable in either direction.
	ErrInsufficientLiquidity = errors.New("pool has insufficient liquidity")

	// ErrIdentityOrdering means a pool identity was constructed with mints in
	// non-canonical order. This indicates a derivation bug upstream, not bad
	// user input.
	ErrIdentityOrdering = errors.New("token mints are not in canonical order")
)

// ValidationError reports malformed input rejected before any network call
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps an RPC-level failure (unreachable node, timeout).
// Callers may retry; the underlying cause is preserved for diagnostics.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExecErrorKind classifies why a broadcast transaction failed on chain
type ExecErrorKind string

const (
	// ExecMissingAccount: an address in the instruction was absent or did not
	// match what the program derived for itself.
	ExecMissingAccount ExecErrorKind = "missing_account"
	// ExecTransferHookRejected: the transfer hook program refused the transfer.
	ExecTransferHookRejected ExecErrorKind = "transfer_hook_rejected"
	// ExecOther: unrecognized failure, raw logs carried verbatim.
	ExecOther ExecErrorKind = "other"
)

// OnChainExecutionError means the transaction was accepted by the cluster but
// its execution failed. The raw log lines are retained so the caller can show
// full diagnostics alongside the classified summary.
type OnChainExecutionError struct {
	Kind      ExecErrorKind
	Signature string
	// Address is the offending account for ExecMissingAccount, when the logs
	// expose it. Empty otherwise.
	Address string
	Summary string
	Logs    []string
}

func (e *OnChainExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transaction %s failed on chain (%s)", e.Signature, e.Kind)
	if e.Summary != "" {
		fmt.Fprintf(&b, ": %s", e.Summary)
	}
	if e.Address != "" {
		fmt.Fprintf(&b, " [account %s]", e.Address)
	}
	return b.String()
}
