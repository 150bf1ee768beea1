package cpmm

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
)

// PoolIdentity is the immutable identity of a pool: program, canonically
// ordered token pair, and fee-tier config account. The on-chain program
// asserts Token0 < Token1 (byte-lexicographic) rather than fixing the order
// itself, so the invariant is enforced at construction here.
type PoolIdentity struct {
	Program solana.PublicKey `json:"program"`
	Token0  solana.PublicKey `json:"token0"`
	Token1  solana.PublicKey `json:"token1"`
	Config  solana.PublicKey `json:"config"`
}

// NewPoolIdentity builds a PoolIdentity, rejecting non-canonical mint order.
// Callers that hold an arbitrary pair should go through SortMints first; an
// ordering failure here points at a derivation bug, not at user input.
func NewPoolIdentity(program, token0, token1, config solana.PublicKey) (PoolIdentity, error) {
	if token0.Equals(token1) {
		return PoolIdentity{}, &ValidationError{Field: "mints", Reason: "token0 and token1 must differ"}
	}
	if !mintLess(token0, token1) {
		return PoolIdentity{}, ErrIdentityOrdering
	}
	return PoolIdentity{Program: program, Token0: token0, Token1: token1, Config: config}, nil
}

// mintLess orders two mints byte-lexicographically on their 32-byte form
func mintLess(a, b solana.PublicKey) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// SortMints returns the pair in canonical order. Idempotent.
func SortMints(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if mintLess(b, a) {
		return b, a
	}
	return a, b
}

// SamePair reports whether (a, b) and (token0, token1) name the same pair in
// either order.
func SamePair(a, b, token0, token1 solana.PublicKey) bool {
	return (a.Equals(token0) && b.Equals(token1)) || (a.Equals(token1) && b.Equals(token0))
}

// Deposit is one side of a pool creation: the mint, the initial amount, and
// the creator's source token account for that mint.
type Deposit struct {
	Mint    solana.PublicKey `json:"mint"`
	Amount  uint64           `json:"amount"`
	Account solana.PublicKey `json:"account"`
}

// NormalizeDeposits orders two deposits so the first mint is canonical
// token0. The amount and source account travel with their mint; swapping
// only the mints would fund the wrong vaults.
func NormalizeDeposits(a, b Deposit) (Deposit, Deposit) {
	if mintLess(b.Mint, a.Mint) {
		return b, a
	}
	return a, b
}
