package cpmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// InitializeParams carries everything the initialize instruction references.
// Token0Program and Token1Program are the owning token programs of the
// canonically ordered mints; CreatorToken0 and CreatorToken1 are the
// creator's source token accounts in the same order.
type InitializeParams struct {
	Creator     solana.PublicKey
	Pool        solana.PublicKey
	FeeReceiver solana.PublicKey

	Identity  PoolIdentity
	Addresses DerivedAddresses

	CreatorToken0 solana.PublicKey
	CreatorToken1 solana.PublicKey
	Token0Program solana.PublicKey
	Token1Program solana.PublicKey

	InitAmount0 uint64
	InitAmount1 uint64
	OpenTime    uint64
}

// BuildInitialize assembles the pool initialize instruction. The account
// order is fixed by the on-chain program; the pool account is a fresh keypair
// and must sign alongside the creator. Transfer-hook support accounts for
// both mints are appended as remaining accounts so hooked transfers can
// resolve them.
func BuildInitialize(hookProgram solana.PublicKey, p InitializeParams) solana.Instruction {
	data := make([]byte, 0, 8+3*8)
	data = append(data, anchorInstructionDiscriminator("initialize")...)
	data = binary.LittleEndian.AppendUint64(data, p.InitAmount0)
	data = binary.LittleEndian.AppendUint64(data, p.InitAmount1)
	data = binary.LittleEndian.AppendUint64(data, p.OpenTime)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Creator, true, true),
		solana.NewAccountMeta(p.Identity.Config, false, false),
		solana.NewAccountMeta(p.Addresses.Authority, false, false),
		solana.NewAccountMeta(p.Pool, true, true),
		solana.NewAccountMeta(p.Identity.Token0, false, false),
		solana.NewAccountMeta(p.Identity.Token1, false, false),
		solana.NewAccountMeta(p.Addresses.LpMint, true, false),
		solana.NewAccountMeta(p.CreatorToken0, true, false),
		solana.NewAccountMeta(p.CreatorToken1, true, false),
		solana.NewAccountMeta(p.Addresses.CreatorLpTokenAccount, true, false),
		solana.NewAccountMeta(p.Addresses.Vault0, true, false),
		solana.NewAccountMeta(p.Addresses.Vault1, true, false),
		solana.NewAccountMeta(p.FeeReceiver, true, false),
		solana.NewAccountMeta(p.Addresses.Observation, true, false),
		solana.NewAccountMeta(TokenProgramID, false, false),
		solana.NewAccountMeta(p.Token0Program, false, false),
		solana.NewAccountMeta(p.Token1Program, false, false),
		solana.NewAccountMeta(associatedTokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}

	// Remaining accounts for the transfer hook, three per mint.
	accounts = append(accounts,
		solana.NewAccountMeta(hookProgram, false, false),
		solana.NewAccountMeta(p.Addresses.HookWhitelist0, true, false),
		solana.NewAccountMeta(p.Addresses.HookExtraMetas0, false, false),
		solana.NewAccountMeta(hookProgram, false, false),
		solana.NewAccountMeta(p.Addresses.HookWhitelist1, true, false),
		solana.NewAccountMeta(p.Addresses.HookExtraMetas1, false, false),
	)

	return solana.NewInstruction(p.Identity.Program, accounts, data)
}
