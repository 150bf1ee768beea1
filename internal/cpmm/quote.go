package cpmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// DefaultSlippageBps is applied when a quote request does not set a tolerance.
const DefaultSlippageBps = 50

const bpsDenominator = 10000

// SwapQuote is a priced swap against current vault balances. All integer
// amounts are raw token units, rounding is always toward zero.
type SwapQuote struct {
	Pool             solana.PublicKey `json:"pool"`
	InputMint        solana.PublicKey `json:"inputMint"`
	OutputMint       solana.PublicKey `json:"outputMint"`
	AmountIn         uint64           `json:"amountIn"`
	AmountInAfterFee uint64           `json:"amountInAfterFee"`
	AmountOut        uint64           `json:"amountOut"`
	MinReceived      uint64           `json:"minReceived"`
	FeeBps           uint64           `json:"feeBps"`
	SlippageBps      uint64           `json:"slippageBps"`
	Rate             float64          `json:"rate"`
	PriceImpact      float64          `json:"priceImpact"`
}

// Quoter prices swaps using the constant product formula with the trade fee
// taken from the pool's amm config.
type Quoter struct {
	discovery *Discovery
	balances  BalanceFetcher
}

func NewQuoter(discovery *Discovery, balances BalanceFetcher) *Quoter {
	return &Quoter{discovery: discovery, balances: balances}
}

// Quote prices a swap of amountIn units of inputMint against the given pool.
// slippageBps caps how far below the quoted output the minimum received may
// fall; zero selects DefaultSlippageBps.
func (q *Quoter) Quote(ctx context.Context, pool, inputMint solana.PublicKey, amountIn uint64, slippageBps uint64) (*SwapQuote, error) {
	if amountIn == 0 {
		return nil, &ValidationError{Field: "amountIn", Reason: "must be positive"}
	}
	if slippageBps == 0 {
		slippageBps = DefaultSlippageBps
	}
	if slippageBps >= bpsDenominator {
		return nil, &ValidationError{Field: "slippageBps", Reason: "must be below 10000"}
	}

	rec, err := q.discovery.FindByAddress(ctx, pool)
	if err != nil {
		return nil, err
	}
	st := rec.State

	var outputMint, inVault, outVault solana.PublicKey
	switch {
	case inputMint.Equals(st.Token0Mint):
		outputMint, inVault, outVault = st.Token1Mint, st.Token0Vault, st.Token1Vault
	case inputMint.Equals(st.Token1Mint):
		outputMint, inVault, outVault = st.Token0Mint, st.Token1Vault, st.Token0Vault
	default:
		return nil, fmt.Errorf("mint %s is not traded by pool %s: %w", inputMint, pool, ErrInvalidToken)
	}

	cfg, err := q.discovery.Config(ctx, st.AmmConfig)
	if err != nil {
		return nil, err
	}

	reserveIn, err := q.balances.TokenBalance(ctx, inVault)
	if err != nil {
		return nil, err
	}
	reserveOut, err := q.balances.TokenBalance(ctx, outVault)
	if err != nil {
		return nil, err
	}
	if reserveIn == 0 || reserveOut == 0 {
		return nil, fmt.Errorf("pool %s has an empty vault: %w", pool, ErrInsufficientLiquidity)
	}

	feeBps := cfg.TradeFeeBps()
	if feeBps >= bpsDenominator {
		return nil, fmt.Errorf("amm config %s carries a trade fee of %d bps, refusing to price", cfg.Address, feeBps)
	}
	afterFee, amountOut := constantProductOut(amountIn, reserveIn, reserveOut, feeBps)
	if amountOut == 0 {
		return nil, fmt.Errorf("amount %d is too small to price: %w", amountIn, ErrInsufficientLiquidity)
	}

	minReceived := applyBpsFloor(amountOut, bpsDenominator-slippageBps)

	return &SwapQuote{
		Pool:             pool,
		InputMint:        inputMint,
		OutputMint:       outputMint,
		AmountIn:         amountIn,
		AmountInAfterFee: afterFee,
		AmountOut:        amountOut,
		MinReceived:      minReceived,
		FeeBps:           feeBps,
		SlippageBps:      slippageBps,
		Rate:             float64(amountOut) / float64(amountIn),
		PriceImpact:      priceImpact(afterFee, amountOut, reserveIn, reserveOut),
	}, nil
}

// constantProductOut computes the swap output under x*y=k. The fee is taken
// from the input before the curve is applied and both divisions floor.
func constantProductOut(amountIn, reserveIn, reserveOut, feeBps uint64) (afterFee, amountOut uint64) {
	in := new(big.Int).SetUint64(amountIn)
	in.Mul(in, big.NewInt(int64(bpsDenominator-feeBps)))
	in.Div(in, big.NewInt(bpsDenominator))
	afterFee = in.Uint64()

	num := new(big.Int).Mul(in, new(big.Int).SetUint64(reserveOut))
	den := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), in)
	num.Div(num, den)
	amountOut = num.Uint64()
	return afterFee, amountOut
}

func applyBpsFloor(amount, bps uint64) uint64 {
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, new(big.Int).SetUint64(bps))
	v.Div(v, big.NewInt(bpsDenominator))
	return v.Uint64()
}

// priceImpact compares the execution rate against the marginal pool rate.
// The result is clamped to zero so rounding can never report a negative
// impact.
func priceImpact(afterFee, amountOut, reserveIn, reserveOut uint64) float64 {
	if afterFee == 0 || reserveIn == 0 {
		return 0
	}
	execRate := float64(amountOut) / float64(afterFee)
	idealRate := float64(reserveOut) / float64(reserveIn)
	if idealRate == 0 {
		return 0
	}
	impact := 1 - execRate/idealRate
	if impact < 0 {
		return 0
	}
	return impact
}
