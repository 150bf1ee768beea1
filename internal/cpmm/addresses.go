package cpmm

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Well-known program IDs the derivation engine addresses against.
var (
	// CPMM constant-product swap program (mainnet)
	DefaultPoolProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

	TokenProgramID     = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

	associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// PDA seed labels. These must match the on-chain program byte for byte; a
// wrong label derives a wrong address that the program only rejects at
// execution time with a generic account mismatch.
const (
	authoritySeed   = "vault_and_lp_mint_auth_seed"
	lpMintSeed      = "pool_lp_mint"
	vaultSeed       = "pool_vault"
	observationSeed = "observation"
	ammConfigSeed   = "amm_config"

	hookWhitelistSeed  = "white_list"
	hookExtraMetasSeed = "extra-account-metas"
)

// anchorAccountDiscriminator returns the 8-byte Anchor discriminator for an
// account type. Computed rather than hardcoded so it is exact by construction.
func anchorAccountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

// anchorInstructionDiscriminator returns the 8-byte Anchor discriminator for
// a global instruction.
func anchorInstructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// DerivedAddresses is the full set of program-owned accounts for one pool
// instance. Purely derived from (program, hook program, pool key, mints,
// creator); recomputing with the same inputs always yields the same result.
type DerivedAddresses struct {
	Authority             solana.PublicKey `json:"authority"`
	LpMint                solana.PublicKey `json:"lpMint"`
	Vault0                solana.PublicKey `json:"vault0"`
	Vault1                solana.PublicKey `json:"vault1"`
	Observation           solana.PublicKey `json:"observation"`
	CreatorLpTokenAccount solana.PublicKey `json:"creatorLpTokenAccount"`

	HookWhitelist0  solana.PublicKey `json:"hookWhitelist0"`
	HookWhitelist1  solana.PublicKey `json:"hookWhitelist1"`
	HookExtraMetas0 solana.PublicKey `json:"hookExtraMetas0"`
	HookExtraMetas1 solana.PublicKey `json:"hookExtraMetas1"`
}

// Engine derives every program-owned account address for a pool program.
// It is stateless; the only failure mode is the bounded bump search running
// out, which FindProgramAddress reports as an error.
type Engine struct {
	program     solana.PublicKey
	hookProgram solana.PublicKey
}

// NewEngine creates a derivation engine for the given pool and transfer-hook
// programs. Both are required: hook support accounts are derived for every
// pool whether or not its tokens carry hooks.
func NewEngine(program, hookProgram solana.PublicKey) (*Engine, error) {
	if program.IsZero() {
		return nil, &ValidationError{Field: "program", Reason: "must not be zero"}
	}
	if hookProgram.IsZero() {
		return nil, &ValidationError{Field: "hookProgram", Reason: "must not be zero"}
	}
	return &Engine{program: program, hookProgram: hookProgram}, nil
}

// Program returns the pool program this engine derives against
func (e *Engine) Program() solana.PublicKey { return e.program }

// HookProgram returns the transfer-hook program this engine derives against
func (e *Engine) HookProgram() solana.PublicKey { return e.hookProgram }

// Authority derives the shared vault-and-LP-mint authority PDA
func (e *Engine) Authority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(authoritySeed)},
		e.program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool authority: %w", err)
	}
	return addr, nil
}

// LpMint derives the LP mint PDA for a pool instance
func (e *Engine) LpMint(pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(lpMintSeed), pool.Bytes()},
		e.program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive lp mint: %w", err)
	}
	return addr, nil
}

// Vault derives the token vault PDA for (pool, mint)
func (e *Engine) Vault(pool, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(vaultSeed), pool.Bytes(), mint.Bytes()},
		e.program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive vault for %s: %w", mint, err)
	}
	return addr, nil
}

// Observation derives the price observation account PDA for a pool instance
func (e *Engine) Observation(pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(observationSeed), pool.Bytes()},
		e.program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive observation account: %w", err)
	}
	return addr, nil
}

// AmmConfigAddress derives the fee-tier config PDA for an index.
// The index is encoded big-endian, matching the on-chain seed layout.
func (e *Engine) AmmConfigAddress(index uint16) (solana.PublicKey, error) {
	idx := make([]byte, 2)
	binary.BigEndian.PutUint16(idx, index)
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(ammConfigSeed), idx},
		e.program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive amm config %d: %w", index, err)
	}
	return addr, nil
}

// HookWhitelist derives the transfer-hook whitelist PDA for a mint
func (e *Engine) HookWhitelist(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(hookWhitelistSeed), mint.Bytes()},
		e.hookProgram,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive hook whitelist for %s: %w", mint, err)
	}
	return addr, nil
}

// HookExtraMetas derives the transfer-hook extra-account-metas PDA for a mint
func (e *Engine) HookExtraMetas(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(hookExtraMetasSeed), mint.Bytes()},
		e.hookProgram,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive hook extra metas for %s: %w", mint, err)
	}
	return addr, nil
}

// AssociatedTokenAddress derives the ATA PDA for (owner, tokenProgram, mint).
// Unlike the pool PDAs this lives under the associated token program, and the
// token program is part of the seeds, so legacy and 2022 mints get distinct
// accounts.
func AssociatedTokenAddress(owner, tokenProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		associatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token account: %w", err)
	}
	return addr, nil
}

// ForPool derives the complete address set for a pool instance. pool is the
// fresh pool-instance key; identity carries the canonically ordered mints.
func (e *Engine) ForPool(identity PoolIdentity, pool, creator solana.PublicKey) (*DerivedAddresses, error) {
	authority, err := e.Authority()
	if err != nil {
		return nil, err
	}
	lpMint, err := e.LpMint(pool)
	if err != nil {
		return nil, err
	}
	vault0, err := e.Vault(pool, identity.Token0)
	if err != nil {
		return nil, err
	}
	vault1, err := e.Vault(pool, identity.Token1)
	if err != nil {
		return nil, err
	}
	observation, err := e.Observation(pool)
	if err != nil {
		return nil, err
	}
	// LP tokens are always minted under the legacy token program
	creatorLp, err := AssociatedTokenAddress(creator, TokenProgramID, lpMint)
	if err != nil {
		return nil, err
	}
	wl0, err := e.HookWhitelist(identity.Token0)
	if err != nil {
		return nil, err
	}
	wl1, err := e.HookWhitelist(identity.Token1)
	if err != nil {
		return nil, err
	}
	em0, err := e.HookExtraMetas(identity.Token0)
	if err != nil {
		return nil, err
	}
	em1, err := e.HookExtraMetas(identity.Token1)
	if err != nil {
		return nil, err
	}

	return &DerivedAddresses{
		Authority:             authority,
		LpMint:                lpMint,
		Vault0:                vault0,
		Vault1:                vault1,
		Observation:           observation,
		CreatorLpTokenAccount: creatorLp,
		HookWhitelist0:        wl0,
		HookWhitelist1:        wl1,
		HookExtraMetas0:       em0,
		HookExtraMetas1:       em1,
	}, nil
}
