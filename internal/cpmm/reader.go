package cpmm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/adeelqureshi/solana-pool-gateway/internal/rpc"
)

// AccountReader reads the pool program's record types from the chain.
// Discovery and the creation orchestrator depend on this interface so tests
// can substitute a fixture-backed reader.
type AccountReader interface {
	// ListPoolStates returns every pool account the program owns.
	ListPoolStates(ctx context.Context) ([]*PoolStateV1, error)
	// FetchPoolState fetches one pool by address. Returns ErrNotFound when
	// the account does not exist.
	FetchPoolState(ctx context.Context, address solana.PublicKey) (*PoolStateV1, error)
	// FetchAmmConfig fetches one fee-tier config by address. Returns
	// ErrNotFound when the account does not exist.
	FetchAmmConfig(ctx context.Context, address solana.PublicKey) (*AmmConfigV1, error)
	// MintProgram returns the token program that owns a mint account.
	MintProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
}

// BalanceFetcher reads live token-account balances
type BalanceFetcher interface {
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// ProgramReader implements AccountReader and BalanceFetcher over the RPC client
type ProgramReader struct {
	rpc     *rpc.Client
	program solana.PublicKey
	logger  *logrus.Logger
}

// NewProgramReader creates a reader scoped to one pool program
func NewProgramReader(client *rpc.Client, program solana.PublicKey, logger *logrus.Logger) *ProgramReader {
	if logger == nil {
		logger = logrus.New()
	}
	return &ProgramReader{rpc: client, program: program, logger: logger}
}

// ListPoolStates scans the program's accounts, filtered server-side by the
// pool state discriminator so config/observation accounts are skipped.
func (r *ProgramReader) ListPoolStates(ctx context.Context) ([]*PoolStateV1, error) {
	filters := []rpc.ProgramFilter{
		{MemCmp: &rpc.MemCmpFilter{Offset: 0, Bytes: base58.Encode(poolStateDiscriminator)}},
	}

	accounts, err := r.rpc.GetProgramAccounts(ctx, r.program.String(), filters)
	if err != nil {
		return nil, &TransportError{Op: "list pool states", Err: err}
	}

	pools := make([]*PoolStateV1, 0, len(accounts))
	for _, acc := range accounts {
		addr, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("bad pubkey in scan result: %w", err)
		}
		state, err := DecodePoolStateV1(addr, acc.Data)
		if err != nil {
			// A malformed record should not poison the whole scan
			r.logger.WithError(err).WithField("address", acc.Pubkey).Warn("skipping undecodable pool account")
			continue
		}
		pools = append(pools, state)
	}
	return pools, nil
}

// FetchPoolState fetches and decodes one pool account
func (r *ProgramReader) FetchPoolState(ctx context.Context, address solana.PublicKey) (*PoolStateV1, error) {
	info, err := r.rpc.GetAccountInfo(ctx, address.String())
	if err != nil {
		return nil, &TransportError{Op: "fetch pool state", Err: err}
	}
	if info == nil {
		return nil, ErrNotFound
	}
	if info.Owner != r.program.String() {
		return nil, fmt.Errorf("account %s is not owned by the pool program", address)
	}
	return DecodePoolStateV1(address, info.Data)
}

// FetchAmmConfig fetches and decodes one fee-tier config account
func (r *ProgramReader) FetchAmmConfig(ctx context.Context, address solana.PublicKey) (*AmmConfigV1, error) {
	info, err := r.rpc.GetAccountInfo(ctx, address.String())
	if err != nil {
		return nil, &TransportError{Op: "fetch amm config", Err: err}
	}
	if info == nil {
		return nil, ErrNotFound
	}
	return DecodeAmmConfigV1(address, info.Data)
}

// MintProgram returns the owner program of a mint account, which tells us
// whether the mint is legacy SPL Token or Token-2022.
func (r *ProgramReader) MintProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := r.rpc.GetAccountInfo(ctx, mint.String())
	if err != nil {
		return solana.PublicKey{}, &TransportError{Op: "fetch mint", Err: err}
	}
	if info == nil {
		return solana.PublicKey{}, fmt.Errorf("mint %s: %w", mint, ErrNotFound)
	}
	owner, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("mint %s has malformed owner: %w", mint, err)
	}
	return owner, nil
}

// TokenBalance fetches the raw amount held by a token account
func (r *ProgramReader) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	amount, err := r.rpc.GetTokenAccountBalance(ctx, account.String())
	if err != nil {
		return 0, &TransportError{Op: "fetch token balance", Err: err}
	}
	value, err := strconv.ParseUint(amount.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token balance for %s is not a uint64: %w", account, err)
	}
	return value, nil
}
