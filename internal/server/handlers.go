package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/adeelqureshi/solana-pool-gateway/internal/ai"
	"github.com/adeelqureshi/solana-pool-gateway/internal/cache"
	"github.com/adeelqureshi/solana-pool-gateway/internal/cpmm"
	"github.com/adeelqureshi/solana-pool-gateway/internal/flags"
	"github.com/adeelqureshi/solana-pool-gateway/internal/holdings"
	"github.com/adeelqureshi/solana-pool-gateway/internal/models"
	"github.com/adeelqureshi/solana-pool-gateway/internal/storage"
)

// pendingCreationTTL bounds how long a prepared creation can wait for its
// countersigned submit before the server forgets the draft.
const pendingCreationTTL = 10 * time.Minute

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       *cpmm.Engine          // PDA derivation engine
	Discovery    *cpmm.Discovery       // Pool and config lookup
	Quoter       *cpmm.Quoter          // Swap pricing
	Orchestrator *cpmm.Orchestrator    // Two-phase pool creation
	Holdings     *holdings.Resolver    // Wallet portfolio resolver
	Creations    storage.CreationCache // Redis-backed recent creations feed
	Store        storage.CreationStore // ClickHouse creation history (optional)
	Pending      cache.KV              // Prepared creations awaiting submit
	Flags        *flags.Store          // Redis-backed feature flags store
	AI           *ai.Agent             // AI agent for natural language queries
	AIBaseConfig ai.AgentConfig        // Base configuration for AI agents
	DevMode      bool                  // Enable detailed error responses in development
	Logger       *logrus.Logger        // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// PoolByPair locates a pool for a token pair and fee config.
// Accepts token0, token1 and optional config query parameters.
func (h *Handlers) PoolByPair(c echo.Context) error {
	token0, err := parseAddress(c.QueryParam("token0"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token0", nil)
	}
	token1, err := parseAddress(c.QueryParam("token1"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token1", nil)
	}
	var config solana.PublicKey
	if raw := c.QueryParam("config"); raw != "" {
		config, err = parseAddress(raw)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid config", nil)
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rec, err := h.Discovery.FindByTokenPair(ctx, token0, token1, config)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// PoolByAddress fetches a single pool account
func (h *Handlers) PoolByAddress(c echo.Context) error {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rec, err := h.Discovery.FindByAddress(ctx, address)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ConfigByIndex derives the config address for a fee-tier index and fetches it
func (h *Handlers) ConfigByIndex(c echo.Context) error {
	idx, err := strconv.ParseUint(c.Param("index"), 10, 16)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid index", map[string]any{"index": "must be 0-65535"})
	}

	address, err := h.Engine.AmmConfigAddress(uint16(idx))
	if err != nil {
		return h.domainError(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	cfg, err := h.Discovery.Config(ctx, address)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// Quote prices a swap against a pool.
// Accepts pool, inputMint, amountIn and optional slippageBps query parameters.
func (h *Handlers) Quote(c echo.Context) error {
	pool, err := parseAddress(c.QueryParam("pool"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", nil)
	}
	inputMint, err := parseAddress(c.QueryParam("inputMint"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid inputMint", nil)
	}
	amountIn, err := strconv.ParseUint(c.QueryParam("amountIn"), 10, 64)
	if err != nil || amountIn == 0 {
		return h.err(c, http.StatusBadRequest, "invalid amountIn", map[string]any{"amountIn": "must be a positive integer"})
	}
	var slippageBps uint64
	if raw := c.QueryParam("slippageBps"); raw != "" {
		slippageBps, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", nil)
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	quote, err := h.Quoter.Quote(ctx, pool, inputMint, amountIn, slippageBps)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, QuoteResponse{
		Pool:        quote.Pool.String(),
		InputMint:   quote.InputMint.String(),
		OutputMint:  quote.OutputMint.String(),
		AmountIn:    quote.AmountIn,
		AmountOut:   quote.AmountOut,
		MinReceived: quote.MinReceived,
		FeeBps:      quote.FeeBps,
		SlippageBps: quote.SlippageBps,
		Rate:        quote.Rate,
		PriceImpact: quote.PriceImpact,
	})
}

// HoldingsByOwner returns the wallet's deduplicated token balances
func (h *Handlers) HoldingsByOwner(c echo.Context) error {
	owner, err := parseAddress(c.Param("owner"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	items, err := h.Holdings.Resolve(ctx, owner.String())
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// CreatePool prepares a pool creation: normalizes the deposits, derives the
// account set, and returns a transaction partially signed with the fresh pool
// keypair for the creator to countersign.
func (h *Handlers) CreatePool(c echo.Context) error {
	if h.Flags != nil && !h.Flags.Enabled(c.Request().Context(), flags.GateCreationEnabled, true) {
		return h.err(c, http.StatusServiceUnavailable, "pool creation is disabled", nil)
	}

	var req CreatePoolRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	creation, err := h.buildCreationRequest(req)
	if err != nil {
		return h.domainError(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	out, err := h.Orchestrator.Prepare(ctx, *creation)
	if err != nil {
		return h.domainError(c, err)
	}

	// Pools over Token-2022 mints carry transfer hooks; a separate gate lets
	// operators pause just those without blocking plain SPL pools.
	if h.Flags != nil && !h.Flags.Enabled(ctx, flags.GateHookedTokens, true) {
		if out.Token0Program.Equals(cpmm.Token2022ProgramID) || out.Token1Program.Equals(cpmm.Token2022ProgramID) {
			return h.err(c, http.StatusServiceUnavailable, "creation over hooked tokens is disabled", nil)
		}
	}

	h.rememberPending(ctx, out)
	return c.JSON(http.StatusOK, out)
}

// SubmitPool broadcasts a countersigned creation transaction, waits for
// confirmation and records the outcome in the creation history.
func (h *Handlers) SubmitPool(c echo.Context) error {
	var req SubmitPoolRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	result, err := h.Orchestrator.Submit(ctx, req.Transaction)
	if err != nil {
		if result != nil {
			h.recordCreation(ctx, result, err)
		}
		return h.domainError(c, err)
	}

	h.recordCreation(ctx, result, nil)
	return c.JSON(http.StatusOK, result)
}

// RecentCreations returns the most recent pool creation events with optional
// limit parameter (default: 50, range: 1-200)
func (h *Handlers) RecentCreations(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 50
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Creations.GetRecentCreations(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get creations", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about creation history using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	var tmp *ai.Agent
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		tmp = a
		agent = a
		defer func() {
			_ = tmp.Close() // Clean up temporary agent
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}

func (h *Handlers) buildCreationRequest(req CreatePoolRequest) (*cpmm.CreationRequest, error) {
	creator, err := parseAddress(req.Creator)
	if err != nil {
		return nil, &cpmm.ValidationError{Field: "creator", Reason: "invalid address"}
	}
	config, err := parseAddress(req.Config)
	if err != nil {
		return nil, &cpmm.ValidationError{Field: "config", Reason: "invalid address"}
	}
	depA, err := parseDeposit(req.DepositA, "depositA")
	if err != nil {
		return nil, err
	}
	depB, err := parseDeposit(req.DepositB, "depositB")
	if err != nil {
		return nil, err
	}

	return &cpmm.CreationRequest{
		Creator:  creator,
		Config:   config,
		DepositA: depA,
		DepositB: depB,
		OpenTime: req.OpenTime,
	}, nil
}

// rememberPending stashes the prepared creation so the submit leg can link a
// signature back to the pair and deposit amounts. Best effort only.
func (h *Handlers) rememberPending(ctx context.Context, creation *cpmm.PoolCreation) {
	if h.Pending == nil {
		return
	}
	data, err := json.Marshal(creation)
	if err != nil {
		return
	}
	if err := h.Pending.Set(ctx, "creation:pending:"+creation.Pool.String(), data, pendingCreationTTL); err != nil {
		h.Logger.WithError(err).Warn("Failed to stash pending creation")
	}
}

// recordCreation writes the outcome of a submit to the recent feed and the
// persistent history. Failures here are logged, never surfaced to the client.
func (h *Handlers) recordCreation(ctx context.Context, result *cpmm.SubmitResult, submitErr error) {
	event := &models.PoolCreationEvent{
		Signature: result.Signature,
		Timestamp: time.Now().UTC(),
		Pool:      result.Pool.String(),
		Status:    "confirmed",
	}
	if submitErr != nil {
		event.Status = "failed"
		var execErr *cpmm.OnChainExecutionError
		if errors.As(submitErr, &execErr) {
			event.ErrorKind = string(execErr.Kind)
		}
	}

	if h.Pending != nil {
		if data, ok, err := h.Pending.Get(ctx, "creation:pending:"+event.Pool); err == nil && ok {
			var pending cpmm.PoolCreation
			if json.Unmarshal(data, &pending) == nil {
				event.Creator = pending.Creator.String()
				event.Token0 = pending.Identity.Token0.String()
				event.Token1 = pending.Identity.Token1.String()
				event.Config = pending.Identity.Config.String()
				event.Amount0 = pending.Deposit0.Amount
				event.Amount1 = pending.Deposit1.Amount
			}
			_ = h.Pending.Delete(ctx, "creation:pending:"+event.Pool)
		}
	}

	if h.Creations != nil {
		if err := h.Creations.AddRecentCreation(ctx, event); err != nil {
			h.Logger.WithError(err).Warn("Failed to cache creation event")
		}
	}
	if h.Store != nil {
		if err := h.Store.InsertCreation(ctx, event); err != nil {
			h.Logger.WithError(err).Warn("Failed to persist creation event")
		}
	}
}

func parseAddress(raw string) (solana.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return solana.PublicKey{}, errors.New("empty address")
	}
	return solana.PublicKeyFromBase58(raw)
}

func parseDeposit(req DepositRequest, field string) (cpmm.Deposit, error) {
	mint, err := parseAddress(req.Mint)
	if err != nil {
		return cpmm.Deposit{}, &cpmm.ValidationError{Field: field + ".mint", Reason: "invalid address"}
	}
	dep := cpmm.Deposit{Mint: mint, Amount: req.Amount}
	if req.Account != "" {
		account, err := parseAddress(req.Account)
		if err != nil {
			return cpmm.Deposit{}, &cpmm.ValidationError{Field: field + ".account", Reason: "invalid address"}
		}
		dep.Account = account
	}
	return dep, nil
}
