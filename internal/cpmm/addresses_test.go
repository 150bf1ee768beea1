package cpmm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultPoolProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	return engine
}

func TestNewEngineValidation(t *testing.T) {
	var valErr *ValidationError

	_, err := NewEngine(solana.PublicKey{}, solana.NewWallet().PublicKey())
	assert.ErrorAs(t, err, &valErr)

	_, err = NewEngine(DefaultPoolProgramID, solana.PublicKey{})
	assert.ErrorAs(t, err, &valErr)
}

func TestAuthorityIsSharedAcrossPools(t *testing.T) {
	engine := testEngine(t)

	// The authority PDA depends only on the program, never on the pool
	first, err := engine.Authority()
	require.NoError(t, err)
	second, err := engine.Authority()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, first.IsZero())

	// It is owned by the derivation, not on the ed25519 curve
	assert.False(t, first.IsOnCurve())
}

func TestDerivationIsDeterministic(t *testing.T) {
	engine := testEngine(t)
	pool := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	first, err := engine.Vault(pool, mint)
	require.NoError(t, err)
	second, err := engine.Vault(pool, mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different pool key derives an unrelated vault
	other, err := engine.Vault(solana.NewWallet().PublicKey(), mint)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestAmmConfigAddressIndexEncoding(t *testing.T) {
	engine := testEngine(t)

	addr0, err := engine.AmmConfigAddress(0)
	require.NoError(t, err)
	addr1, err := engine.AmmConfigAddress(1)
	require.NoError(t, err)
	addr256, err := engine.AmmConfigAddress(256)
	require.NoError(t, err)

	assert.NotEqual(t, addr0, addr1)
	// Big-endian seed encoding: index 1 and index 256 differ in distinct
	// bytes and must never collide.
	assert.NotEqual(t, addr1, addr256)
}

func TestAssociatedTokenAddressMatchesLibrary(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	got, err := AssociatedTokenAddress(owner, TokenProgramID, mint)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAssociatedTokenAddressPerProgram(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	legacy, err := AssociatedTokenAddress(owner, TokenProgramID, mint)
	require.NoError(t, err)
	t22, err := AssociatedTokenAddress(owner, Token2022ProgramID, mint)
	require.NoError(t, err)

	// The token program is part of the seeds, so the same mint gets a
	// different ATA under each program.
	assert.NotEqual(t, legacy, t22)
}

func TestForPoolDerivesFullSet(t *testing.T) {
	engine := testEngine(t)
	creator := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()
	lo, hi := SortMints(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())

	identity, err := NewPoolIdentity(engine.Program(), lo, hi, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	addrs, err := engine.ForPool(identity, pool, creator)
	require.NoError(t, err)

	// Every derived account must be distinct and non-zero
	seen := map[solana.PublicKey]bool{}
	for _, key := range []solana.PublicKey{
		addrs.Authority, addrs.LpMint, addrs.Vault0, addrs.Vault1,
		addrs.Observation, addrs.CreatorLpTokenAccount,
		addrs.HookWhitelist0, addrs.HookWhitelist1,
		addrs.HookExtraMetas0, addrs.HookExtraMetas1,
	} {
		assert.False(t, key.IsZero())
		assert.False(t, seen[key], "duplicate derived address %s", key)
		seen[key] = true
	}

	// Hook accounts live under the hook program, one pair per mint
	wl0, err := engine.HookWhitelist(lo)
	require.NoError(t, err)
	assert.Equal(t, wl0, addrs.HookWhitelist0)
}

func TestAnchorDiscriminators(t *testing.T) {
	// Discriminators are the first 8 bytes of sha256 over the Anchor
	// namespace string. Pin the pool state value so a rename breaks loudly.
	assert.Len(t, anchorAccountDiscriminator("PoolState"), 8)
	assert.Equal(t, anchorAccountDiscriminator("PoolState"), poolStateDiscriminator)
	assert.NotEqual(t, poolStateDiscriminator, ammConfigDiscriminator)
	assert.NotEqual(t, anchorAccountDiscriminator("PoolState"), anchorInstructionDiscriminator("PoolState"))
}
