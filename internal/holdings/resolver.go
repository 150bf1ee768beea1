// Package holdings resolves a wallet's token balances across both token
// programs into a single deduplicated portfolio view.
package holdings

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adeelqureshi/solana-pool-gateway/internal/metadata"
	"github.com/adeelqureshi/solana-pool-gateway/internal/rpc"
)

const (
	tokenProgram     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// Holding is one mint's aggregate position for an owner
type Holding struct {
	Mint         string `json:"mint"`
	TokenAccount string `json:"tokenAccount"`
	Amount       uint64 `json:"amount"`
	Decimals     int    `json:"decimals"`
	Program      string `json:"program"`

	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Icon   string `json:"icon"`
}

// TokenScanner lists parsed token accounts for an owner under one program
type TokenScanner interface {
	GetTokenAccountsByOwner(ctx context.Context, owner, tokenProgram string) ([]rpc.ParsedTokenAccount, error)
}

// MetadataSource resolves off-chain token metadata by mint
type MetadataSource interface {
	Token(ctx context.Context, mint string) (*metadata.TokenInfo, error)
}

// Resolver builds the holdings view. Metadata enrichment only runs for
// Token-2022 mints since the dashboard renders legacy mints from its own
// static list.
type Resolver struct {
	scanner TokenScanner
	meta    MetadataSource
	logger  *logrus.Logger
}

func NewResolver(scanner TokenScanner, meta MetadataSource, logger *logrus.Logger) *Resolver {
	return &Resolver{scanner: scanner, meta: meta, logger: logger}
}

// Resolve scans both token programs for the owner and merges results by
// mint. Zero balances are dropped. When the same mint somehow appears under
// both programs the later scan wins, which makes the Token-2022 record
// authoritative.
func (r *Resolver) Resolve(ctx context.Context, owner string) ([]Holding, error) {
	byMint := make(map[string]Holding)
	var order []string

	for _, program := range []string{tokenProgram, token2022Program} {
		accounts, err := r.scanner.GetTokenAccountsByOwner(ctx, owner, program)
		if err != nil {
			return nil, err
		}
		for _, acc := range accounts {
			amount, err := strconv.ParseUint(acc.Amount, 10, 64)
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"account": acc.Pubkey,
					"amount":  acc.Amount,
				}).Warn("Skipping token account with unparseable amount")
				continue
			}
			if amount == 0 {
				continue
			}
			if _, seen := byMint[acc.Mint]; !seen {
				order = append(order, acc.Mint)
			}
			byMint[acc.Mint] = Holding{
				Mint:         acc.Mint,
				TokenAccount: acc.Pubkey,
				Amount:       amount,
				Decimals:     acc.Decimals,
				Program:      program,
			}
		}
	}

	out := make([]Holding, 0, len(order))
	for _, mint := range order {
		out = append(out, byMint[mint])
	}

	r.enrich(ctx, out)
	return out, nil
}

// enrich fills names and symbols concurrently. Lookup failures fall back to
// a name synthesized from the mint address and never fail the resolve.
func (r *Resolver) enrich(ctx context.Context, holdings []Holding) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i := range holdings {
		h := &holdings[i]
		if h.Program != token2022Program || r.meta == nil {
			h.Name, h.Symbol = synthesizeName(h.Mint)
			continue
		}
		g.Go(func() error {
			info, err := r.meta.Token(gctx, h.Mint)
			if err != nil || info == nil || info.Name == "" {
				if err != nil {
					r.logger.WithFields(logrus.Fields{
						"mint":  h.Mint,
						"error": err.Error(),
					}).Debug("Token metadata lookup failed")
				}
				h.Name, h.Symbol = synthesizeName(h.Mint)
				return nil
			}
			h.Name, h.Symbol = info.Name, info.Symbol
			h.Icon = info.LogoURI
			return nil
		})
	}
	_ = g.Wait()
}

// synthesizeName derives a stable placeholder from the mint address
func synthesizeName(mint string) (name, symbol string) {
	short := mint
	if len(short) > 8 {
		short = short[:4] + ".." + short[len(short)-4:]
	}
	sym := mint
	if len(sym) > 4 {
		sym = sym[:4]
	}
	return "Token " + short, sym
}
