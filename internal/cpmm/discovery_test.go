package cpmm

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeelqureshi/solana-pool-gateway/internal/cache"
)

// fakeReader serves pool and config fixtures without touching RPC
type fakeReader struct {
	pools    []*PoolStateV1
	configs  map[solana.PublicKey]*AmmConfigV1
	balances map[solana.PublicKey]uint64
	mints    map[solana.PublicKey]solana.PublicKey

	balanceErr error
	listErr    error
}

func (f *fakeReader) ListPoolStates(_ context.Context) ([]*PoolStateV1, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pools, nil
}

func (f *fakeReader) FetchPoolState(_ context.Context, address solana.PublicKey) (*PoolStateV1, error) {
	for _, p := range f.pools {
		if p.Address.Equals(address) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeReader) FetchAmmConfig(_ context.Context, address solana.PublicKey) (*AmmConfigV1, error) {
	if cfg, ok := f.configs[address]; ok {
		return cfg, nil
	}
	return nil, ErrNotFound
}

func (f *fakeReader) MintProgram(_ context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	if prog, ok := f.mints[mint]; ok {
		return prog, nil
	}
	return TokenProgramID, nil
}

func (f *fakeReader) TokenBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balances[account], nil
}

func testPool(t *testing.T, config solana.PublicKey) *PoolStateV1 {
	t.Helper()
	lo, hi := SortMints(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	return &PoolStateV1{
		Address:     solana.NewWallet().PublicKey(),
		AmmConfig:   config,
		Token0Mint:  lo,
		Token1Mint:  hi,
		Token0Vault: solana.NewWallet().PublicKey(),
		Token1Vault: solana.NewWallet().PublicKey(),
	}
}

func newTestDiscovery(reader *fakeReader) *Discovery {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewDiscovery(reader, reader, cache.NewMemory(nil), logger)
}

func TestFindByTokenPairEitherOrder(t *testing.T) {
	config := solana.NewWallet().PublicKey()
	pool := testPool(t, config)
	reader := &fakeReader{
		pools: []*PoolStateV1{pool},
		balances: map[solana.PublicKey]uint64{
			pool.Token0Vault: 1000,
			pool.Token1Vault: 2000,
		},
	}
	d := newTestDiscovery(reader)
	ctx := context.Background()

	rec, err := d.FindByTokenPair(ctx, pool.Token0Mint, pool.Token1Mint, config)
	require.NoError(t, err)
	assert.Equal(t, pool.Address, rec.State.Address)

	// Reversed query order finds the same pool
	rec, err = d.FindByTokenPair(ctx, pool.Token1Mint, pool.Token0Mint, config)
	require.NoError(t, err)
	assert.Equal(t, pool.Address, rec.State.Address)

	require.NotNil(t, rec.Balance0)
	require.NotNil(t, rec.Balance1)
	assert.Equal(t, uint64(1000), *rec.Balance0)
	assert.Equal(t, uint64(2000), *rec.Balance1)
}

func TestFindByTokenPairConfigFilter(t *testing.T) {
	configA := solana.NewWallet().PublicKey()
	configB := solana.NewWallet().PublicKey()
	pool := testPool(t, configA)
	d := newTestDiscovery(&fakeReader{pools: []*PoolStateV1{pool}})
	ctx := context.Background()

	_, err := d.FindByTokenPair(ctx, pool.Token0Mint, pool.Token1Mint, configB)
	assert.ErrorIs(t, err, ErrNotFound)

	// Zero config matches any fee tier
	rec, err := d.FindByTokenPair(ctx, pool.Token0Mint, pool.Token1Mint, solana.PublicKey{})
	require.NoError(t, err)
	assert.Equal(t, pool.Address, rec.State.Address)
}

func TestFindByTokenPairFirstMatchWins(t *testing.T) {
	config := solana.NewWallet().PublicKey()
	first := testPool(t, config)
	// A second pool over the very same pair and config
	second := &PoolStateV1{
		Address:     solana.NewWallet().PublicKey(),
		AmmConfig:   config,
		Token0Mint:  first.Token0Mint,
		Token1Mint:  first.Token1Mint,
		Token0Vault: solana.NewWallet().PublicKey(),
		Token1Vault: solana.NewWallet().PublicKey(),
	}
	d := newTestDiscovery(&fakeReader{pools: []*PoolStateV1{first, second}})

	rec, err := d.FindByTokenPair(context.Background(), first.Token0Mint, first.Token1Mint, config)
	require.NoError(t, err)
	assert.Equal(t, first.Address, rec.State.Address)
}

func TestFindByTokenPairValidation(t *testing.T) {
	d := newTestDiscovery(&fakeReader{})
	mint := solana.NewWallet().PublicKey()
	var valErr *ValidationError

	_, err := d.FindByTokenPair(context.Background(), mint, mint, solana.PublicKey{})
	assert.ErrorAs(t, err, &valErr)

	_, err = d.FindByTokenPair(context.Background(), solana.PublicKey{}, mint, solana.PublicKey{})
	assert.ErrorAs(t, err, &valErr)
}

func TestBalanceFailureIsNotFatal(t *testing.T) {
	config := solana.NewWallet().PublicKey()
	pool := testPool(t, config)
	reader := &fakeReader{
		pools:      []*PoolStateV1{pool},
		balanceErr: &TransportError{Op: "getTokenAccountBalance", Err: errors.New("rpc down")},
	}
	d := newTestDiscovery(reader)

	rec, err := d.FindByTokenPair(context.Background(), pool.Token0Mint, pool.Token1Mint, config)
	require.NoError(t, err)
	assert.Nil(t, rec.Balance0)
	assert.Nil(t, rec.Balance1)
}

func TestFindByAddressNotFoundVsTransport(t *testing.T) {
	pool := testPool(t, solana.NewWallet().PublicKey())
	d := newTestDiscovery(&fakeReader{pools: []*PoolStateV1{pool}})
	ctx := context.Background()

	rec, err := d.FindByAddress(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.Address, rec.State.Address)

	_, err = d.FindByAddress(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByAddressUsesCache(t *testing.T) {
	pool := testPool(t, solana.NewWallet().PublicKey())
	reader := &fakeReader{pools: []*PoolStateV1{pool}}
	d := newTestDiscovery(reader)
	ctx := context.Background()

	_, err := d.FindByAddress(ctx, pool.Address)
	require.NoError(t, err)

	// Second lookup is served from cache even if the reader degrades
	reader.pools = nil
	rec, err := d.FindByAddress(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool.Address, rec.State.Address)
}

func TestConfigLookup(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	reader := &fakeReader{
		configs: map[solana.PublicKey]*AmmConfigV1{
			addr: {Address: addr, Index: 4, TradeFeeRate: 25},
		},
	}
	d := newTestDiscovery(reader)

	cfg, err := d.Config(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), cfg.Index)
	assert.Equal(t, uint64(25), cfg.TradeFeeBps())

	_, err = d.Config(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)
}
