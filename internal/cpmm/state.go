package cpmm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Tagged on-chain record layouts. Versioned explicitly so a future layout
// change shows up as a new type, not as silent misparsing of loose maps.

var (
	poolStateDiscriminator = anchorAccountDiscriminator("PoolState")
	ammConfigDiscriminator = anchorAccountDiscriminator("AmmConfig")
)

// PoolStateV1 is the decoded pool account as the program lays it out today
type PoolStateV1 struct {
	Address solana.PublicKey `json:"address"`

	AmmConfig     solana.PublicKey `json:"ammConfig"`
	PoolCreator   solana.PublicKey `json:"poolCreator"`
	Token0Vault   solana.PublicKey `json:"token0Vault"`
	Token1Vault   solana.PublicKey `json:"token1Vault"`
	LpMint        solana.PublicKey `json:"lpMint"`
	Token0Mint    solana.PublicKey `json:"token0Mint"`
	Token1Mint    solana.PublicKey `json:"token1Mint"`
	Token0Program solana.PublicKey `json:"token0Program"`
	Token1Program solana.PublicKey `json:"token1Program"`
	Observation   solana.PublicKey `json:"observation"`

	AuthBump       uint8 `json:"authBump"`
	Status         uint8 `json:"status"`
	LpMintDecimals uint8 `json:"lpMintDecimals"`
	Mint0Decimals  uint8 `json:"mint0Decimals"`
	Mint1Decimals  uint8 `json:"mint1Decimals"`

	LpSupply           uint64 `json:"lpSupply"`
	ProtocolFeesToken0 uint64 `json:"protocolFeesToken0"`
	ProtocolFeesToken1 uint64 `json:"protocolFeesToken1"`
	FundFeesToken0     uint64 `json:"fundFeesToken0"`
	FundFeesToken1     uint64 `json:"fundFeesToken1"`
	OpenTime           uint64 `json:"openTime"`
}

// poolStateMinLen is the fixed prefix of the account: discriminator, ten
// pubkeys, five u8 fields, six u64 fields. Trailing padding is ignored.
const poolStateMinLen = 8 + 10*32 + 5 + 6*8

// DecodePoolStateV1 parses a pool account's raw data
func DecodePoolStateV1(address solana.PublicKey, data []byte) (*PoolStateV1, error) {
	if len(data) < poolStateMinLen {
		return nil, fmt.Errorf("pool state %s: data too short (%d bytes)", address, len(data))
	}
	if !hasDiscriminator(data, poolStateDiscriminator) {
		return nil, fmt.Errorf("pool state %s: discriminator mismatch", address)
	}

	s := &PoolStateV1{Address: address}
	off := 8
	for _, dst := range []*solana.PublicKey{
		&s.AmmConfig, &s.PoolCreator, &s.Token0Vault, &s.Token1Vault,
		&s.LpMint, &s.Token0Mint, &s.Token1Mint,
		&s.Token0Program, &s.Token1Program, &s.Observation,
	} {
		*dst = solana.PublicKeyFromBytes(data[off : off+32])
		off += 32
	}

	s.AuthBump = data[off]
	s.Status = data[off+1]
	s.LpMintDecimals = data[off+2]
	s.Mint0Decimals = data[off+3]
	s.Mint1Decimals = data[off+4]
	off += 5

	for _, dst := range []*uint64{
		&s.LpSupply, &s.ProtocolFeesToken0, &s.ProtocolFeesToken1,
		&s.FundFeesToken0, &s.FundFeesToken1, &s.OpenTime,
	} {
		*dst = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}

	return s, nil
}

// AmmConfigV1 is the decoded fee-tier config account. Fee rates use a 10000
// denominator (basis points).
type AmmConfigV1 struct {
	Address solana.PublicKey `json:"address"`

	Bump              uint8  `json:"bump"`
	DisableCreatePool bool   `json:"disableCreatePool"`
	Index             uint16 `json:"index"`

	TradeFeeRate    uint64 `json:"tradeFeeRate"`
	ProtocolFeeRate uint64 `json:"protocolFeeRate"`
	FundFeeRate     uint64 `json:"fundFeeRate"`
	CreatePoolFee   uint64 `json:"createPoolFee"`

	ProtocolOwner solana.PublicKey `json:"protocolOwner"`
	FundOwner     solana.PublicKey `json:"fundOwner"`
}

// TradeFeeBps returns the swap fee in basis points.
func (c *AmmConfigV1) TradeFeeBps() uint64 { return c.TradeFeeRate }

const ammConfigMinLen = 8 + 1 + 1 + 2 + 4*8 + 2*32

// DecodeAmmConfigV1 parses a config account's raw data
func DecodeAmmConfigV1(address solana.PublicKey, data []byte) (*AmmConfigV1, error) {
	if len(data) < ammConfigMinLen {
		return nil, fmt.Errorf("amm config %s: data too short (%d bytes)", address, len(data))
	}
	if !hasDiscriminator(data, ammConfigDiscriminator) {
		return nil, fmt.Errorf("amm config %s: discriminator mismatch", address)
	}

	c := &AmmConfigV1{Address: address}
	c.Bump = data[8]
	c.DisableCreatePool = data[9] != 0
	c.Index = binary.LittleEndian.Uint16(data[10:12])

	off := 12
	for _, dst := range []*uint64{
		&c.TradeFeeRate, &c.ProtocolFeeRate, &c.FundFeeRate, &c.CreatePoolFee,
	} {
		*dst = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}

	c.ProtocolOwner = solana.PublicKeyFromBytes(data[off : off+32])
	c.FundOwner = solana.PublicKeyFromBytes(data[off+32 : off+64])

	return c, nil
}

func hasDiscriminator(data, disc []byte) bool {
	if len(data) < 8 {
		return false
	}
	for i := 0; i < 8; i++ {
		if data[i] != disc[i] {
			return false
		}
	}
	return true
}
