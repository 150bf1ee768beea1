package cpmm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adeelqureshi/solana-pool-gateway/internal/cache"
)

const (
	poolCacheTTL   = 30 * time.Second
	configCacheTTL = 5 * time.Minute
)

// PoolRecord is a decoded pool account plus best-effort vault balances.
// A nil balance means the lookup failed and the caller should treat the
// figure as unknown rather than zero.
type PoolRecord struct {
	State    PoolStateV1 `json:"state"`
	Balance0 *uint64     `json:"balance0,omitempty"`
	Balance1 *uint64     `json:"balance1,omitempty"`
}

// Discovery locates pools and fee configs on chain. Results are cached in
// the injected KV so repeated dashboard refreshes do not hammer the RPC node.
type Discovery struct {
	reader   AccountReader
	balances BalanceFetcher
	kv       cache.KV
	logger   *logrus.Logger
}

func NewDiscovery(reader AccountReader, balances BalanceFetcher, kv cache.KV, logger *logrus.Logger) *Discovery {
	if kv == nil {
		kv = cache.NewMemory(nil)
	}
	return &Discovery{reader: reader, balances: balances, kv: kv, logger: logger}
}

// FindByTokenPair returns the first pool whose mint pair matches a and b in
// either order and whose amm config matches config. Returns ErrNotFound when
// no pool matches. When several pools exist for the same pair and config the
// choice follows RPC enumeration order, which is not stable across nodes.
func (d *Discovery) FindByTokenPair(ctx context.Context, a, b, config solana.PublicKey) (*PoolRecord, error) {
	if a.IsZero() || b.IsZero() {
		return nil, &ValidationError{Field: "token", Reason: "mint must not be the zero address"}
	}
	if a.Equals(b) {
		return nil, &ValidationError{Field: "token", Reason: "mints must differ"}
	}

	key := fmt.Sprintf("pool:pair:%s:%s:%s", a, b, config)
	if rec, ok := d.cached(ctx, key); ok {
		return rec, nil
	}

	states, err := d.reader.ListPoolStates(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range states {
		if !pairMatches(st, a, b) {
			continue
		}
		if !config.IsZero() && !st.AmmConfig.Equals(config) {
			continue
		}
		rec := d.withBalances(ctx, *st)
		d.store(ctx, key, rec, poolCacheTTL)
		return rec, nil
	}
	return nil, fmt.Errorf("pool for pair %s/%s: %w", a, b, ErrNotFound)
}

// FindByAddress fetches and decodes a single pool account.
func (d *Discovery) FindByAddress(ctx context.Context, address solana.PublicKey) (*PoolRecord, error) {
	key := "pool:addr:" + address.String()
	if rec, ok := d.cached(ctx, key); ok {
		return rec, nil
	}

	st, err := d.reader.FetchPoolState(ctx, address)
	if err != nil {
		return nil, err
	}
	rec := d.withBalances(ctx, *st)
	d.store(ctx, key, rec, poolCacheTTL)
	return rec, nil
}

// Config fetches the amm config account at the given address.
func (d *Discovery) Config(ctx context.Context, address solana.PublicKey) (*AmmConfigV1, error) {
	key := "config:" + address.String()
	if raw, ok, err := d.kv.Get(ctx, key); err == nil && ok {
		var cfg AmmConfigV1
		if json.Unmarshal(raw, &cfg) == nil {
			return &cfg, nil
		}
	}

	cfg, err := d.reader.FetchAmmConfig(ctx, address)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(cfg); err == nil {
		if err := d.kv.Set(ctx, key, raw, configCacheTTL); err != nil {
			d.logger.WithError(err).Warn("Failed to cache amm config")
		}
	}
	return cfg, nil
}

func pairMatches(st *PoolStateV1, a, b solana.PublicKey) bool {
	return (st.Token0Mint.Equals(a) && st.Token1Mint.Equals(b)) ||
		(st.Token0Mint.Equals(b) && st.Token1Mint.Equals(a))
}

// withBalances fills vault balances concurrently. Balance failures are
// logged and leave the field nil, they never fail the lookup.
func (d *Discovery) withBalances(ctx context.Context, st PoolStateV1) *PoolRecord {
	rec := &PoolRecord{State: st}
	if d.balances == nil {
		return rec
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec.Balance0 = d.fetchBalance(gctx, st.Token0Vault)
		return nil
	})
	g.Go(func() error {
		rec.Balance1 = d.fetchBalance(gctx, st.Token1Vault)
		return nil
	})
	_ = g.Wait()
	return rec
}

func (d *Discovery) fetchBalance(ctx context.Context, vault solana.PublicKey) *uint64 {
	amount, err := d.balances.TokenBalance(ctx, vault)
	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"vault": vault.String(),
			"error": err.Error(),
		}).Warn("Failed to fetch vault balance")
		return nil
	}
	return &amount
}

func (d *Discovery) cached(ctx context.Context, key string) (*PoolRecord, bool) {
	raw, ok, err := d.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var rec PoolRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (d *Discovery) store(ctx context.Context, key string, rec *PoolRecord, ttl time.Duration) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := d.kv.Set(ctx, key, raw, ttl); err != nil {
		d.logger.WithError(err).Warn("Failed to cache pool record")
	}
}
