package cpmm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/adeelqureshi/solana-pool-gateway/internal/chain"
	"github.com/adeelqureshi/solana-pool-gateway/internal/rpc"
)

// CreationPhase tracks how far a pool creation has progressed
type CreationPhase string

const (
	PhaseDraft               CreationPhase = "draft"
	PhaseNormalized          CreationPhase = "normalized"
	PhaseAddressesDerived    CreationPhase = "addresses_derived"
	PhaseInstructionBuilt    CreationPhase = "instruction_built"
	PhaseServerPartialSigned CreationPhase = "server_partial_signed"
	PhaseSubmitted           CreationPhase = "submitted"
	PhaseConfirmed           CreationPhase = "confirmed"
	PhaseFailed              CreationPhase = "failed"
)

const confirmTimeout = 60 * time.Second

// CreationRequest is the client's ask to open a new pool. Deposits may
// arrive in either order; their token accounts are optional and default to
// the creator's associated token accounts.
type CreationRequest struct {
	Creator  solana.PublicKey
	Config   solana.PublicKey
	DepositA Deposit
	DepositB Deposit
	OpenTime uint64
}

// PoolCreation is the server-side view of one creation attempt. Pool is a
// fresh keypair's public key, minted per attempt and abandoned if the
// attempt fails; retries get a new identity.
type PoolCreation struct {
	Phase     CreationPhase    `json:"phase"`
	Pool      solana.PublicKey `json:"pool"`
	Creator   solana.PublicKey `json:"creator"`
	Identity  PoolIdentity     `json:"identity"`
	Addresses DerivedAddresses `json:"addresses"`

	Deposit0 Deposit `json:"deposit0"`
	Deposit1 Deposit `json:"deposit1"`
	OpenTime uint64  `json:"openTime"`

	Token0Program solana.PublicKey `json:"token0Program"`
	Token1Program solana.PublicKey `json:"token1Program"`

	// Base64 wire transaction carrying the pool keypair's signature. The
	// creator signs the remaining slot client side and posts it back.
	TransactionBase64 string `json:"transaction"`
}

// SubmitResult is the outcome of broadcasting a client-signed creation
type SubmitResult struct {
	Signature string           `json:"signature"`
	Pool      solana.PublicKey `json:"pool"`
	Confirmed bool             `json:"confirmed"`
}

// Orchestrator runs the two-phase pool creation flow. The server never holds
// the creator's key: Prepare partially signs with the throwaway pool keypair
// and returns the transaction for the client to countersign, Submit
// broadcasts the countersigned result.
type Orchestrator struct {
	engine      *Engine
	reader      AccountReader
	submitter   *chain.Submitter
	feeReceiver solana.PublicKey
	logger      *logrus.Logger
}

func NewOrchestrator(engine *Engine, reader AccountReader, submitter *chain.Submitter, feeReceiver solana.PublicKey, logger *logrus.Logger) (*Orchestrator, error) {
	if feeReceiver.IsZero() {
		return nil, &ValidationError{Field: "feeReceiver", Reason: "must not be zero"}
	}
	return &Orchestrator{
		engine:      engine,
		reader:      reader,
		submitter:   submitter,
		feeReceiver: feeReceiver,
		logger:      logger,
	}, nil
}

// Prepare walks a creation request through normalization, derivation and
// instruction building, then partially signs with a fresh pool keypair.
func (o *Orchestrator) Prepare(ctx context.Context, req CreationRequest) (*PoolCreation, error) {
	if req.Creator.IsZero() {
		return nil, &ValidationError{Field: "creator", Reason: "must not be zero"}
	}
	if req.Config.IsZero() {
		return nil, &ValidationError{Field: "config", Reason: "must not be zero"}
	}
	if req.DepositA.Amount == 0 || req.DepositB.Amount == 0 {
		return nil, &ValidationError{Field: "deposit", Reason: "initial amounts must be positive"}
	}

	dep0, dep1 := NormalizeDeposits(req.DepositA, req.DepositB)
	identity, err := NewPoolIdentity(o.engine.Program(), dep0.Mint, dep1.Mint, req.Config)
	if err != nil {
		return nil, err
	}

	creation := &PoolCreation{
		Phase:    PhaseNormalized,
		Creator:  req.Creator,
		Identity: identity,
		Deposit0: dep0,
		Deposit1: dep1,
		OpenTime: req.OpenTime,
	}

	// Fresh keypair per attempt. The secret never outlives this call; a
	// failed attempt abandons the address entirely.
	poolWallet := solana.NewWallet()
	creation.Pool = poolWallet.PublicKey()

	addrs, err := o.engine.ForPool(identity, creation.Pool, req.Creator)
	if err != nil {
		return nil, err
	}
	creation.Addresses = *addrs
	creation.Phase = PhaseAddressesDerived

	token0Program, err := o.reader.MintProgram(ctx, dep0.Mint)
	if err != nil {
		return nil, err
	}
	token1Program, err := o.reader.MintProgram(ctx, dep1.Mint)
	if err != nil {
		return nil, err
	}
	creation.Token0Program = token0Program
	creation.Token1Program = token1Program

	creatorToken0, err := depositAccount(dep0, req.Creator, token0Program)
	if err != nil {
		return nil, err
	}
	creatorToken1, err := depositAccount(dep1, req.Creator, token1Program)
	if err != nil {
		return nil, err
	}

	ix := BuildInitialize(o.engine.HookProgram(), InitializeParams{
		Creator:       req.Creator,
		Pool:          creation.Pool,
		FeeReceiver:   o.feeReceiver,
		Identity:      identity,
		Addresses:     creation.Addresses,
		CreatorToken0: creatorToken0,
		CreatorToken1: creatorToken1,
		Token0Program: token0Program,
		Token1Program: token1Program,
		InitAmount0:   dep0.Amount,
		InitAmount1:   dep1.Amount,
		OpenTime:      req.OpenTime,
	})
	creation.Phase = PhaseInstructionBuilt

	tx, err := o.submitter.BuildTransaction(ctx, req.Creator, []solana.Instruction{ix})
	if err != nil {
		return nil, err
	}

	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(creation.Pool) {
			return &poolWallet.PrivateKey
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign with pool keypair: %w", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	creation.TransactionBase64 = base64.StdEncoding.EncodeToString(txBytes)
	creation.Phase = PhaseServerPartialSigned

	o.logger.WithFields(logrus.Fields{
		"pool":    creation.Pool.String(),
		"creator": req.Creator.String(),
		"token0":  dep0.Mint.String(),
		"token1":  dep1.Mint.String(),
	}).Info("Pool creation prepared")

	return creation, nil
}

// Submit broadcasts a countersigned creation transaction and waits for
// confirmation. Execution failures come back as *OnChainExecutionError with
// classified logs.
func (o *Orchestrator) Submit(ctx context.Context, signedTxBase64 string) (*SubmitResult, error) {
	tx, err := decodeSignedTransaction(signedTxBase64)
	if err != nil {
		return nil, err
	}
	pool, err := poolAccountOf(tx, o.engine.Program())
	if err != nil {
		return nil, err
	}

	sig, err := o.submitter.Send(ctx, tx, rpc.DefaultSendOptions())
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Signature: sig, Pool: pool}

	if err := o.submitter.Confirm(ctx, sig, "confirmed", confirmTimeout); err != nil {
		if errors.Is(err, chain.ErrExecutionFailed) {
			return result, o.classifyFailure(ctx, sig)
		}
		return result, fmt.Errorf("confirm %s: %w", sig, err)
	}

	result.Confirmed = true
	o.logger.WithFields(logrus.Fields{
		"signature": sig,
		"pool":      pool.String(),
	}).Info("Pool creation confirmed")

	return result, nil
}

func (o *Orchestrator) classifyFailure(ctx context.Context, sig string) error {
	logs, err := o.submitter.Logs(ctx, sig)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to fetch logs for failed creation")
	}
	return ClassifyExecutionLogs(sig, logs, o.engine.HookProgram().String())
}

func depositAccount(dep Deposit, creator, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	if !dep.Account.IsZero() {
		return dep.Account, nil
	}
	return AssociatedTokenAddress(creator, tokenProgram, dep.Mint)
}

func decodeSignedTransaction(encoded string) (*solana.Transaction, error) {
	if encoded == "" {
		return nil, &ValidationError{Field: "transaction", Reason: "must not be empty"}
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &ValidationError{Field: "transaction", Reason: "invalid base64"}
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, &ValidationError{Field: "transaction", Reason: "malformed transaction"}
	}
	for _, s := range tx.Signatures {
		if s.IsZero() {
			return nil, &ValidationError{Field: "transaction", Reason: "missing required signature"}
		}
	}
	return tx, nil
}

// poolAccountOf picks the pool account back out of a submitted transaction:
// the second writable signer of the initialize instruction. The fee payer is
// always the first account, so the pool key sits right after it.
func poolAccountOf(tx *solana.Transaction, program solana.PublicKey) (solana.PublicKey, error) {
	msg := tx.Message
	found := false
	for _, ix := range msg.Instructions {
		prog, err := msg.Program(ix.ProgramIDIndex)
		if err != nil || !prog.Equals(program) {
			continue
		}
		found = true
		break
	}
	if !found {
		return solana.PublicKey{}, &ValidationError{Field: "transaction", Reason: "no pool program instruction"}
	}
	if int(msg.Header.NumRequiredSignatures) < 2 || len(msg.AccountKeys) < 2 {
		return solana.PublicKey{}, &ValidationError{Field: "transaction", Reason: "missing pool signer"}
	}
	return msg.AccountKeys[1], nil
}
