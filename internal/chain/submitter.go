// Package chain turns built instructions into confirmed transactions. It
// holds no signing keys; callers sign before handing a transaction over.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/adeelqureshi/solana-pool-gateway/internal/rpc"
)

// ErrExecutionFailed marks a transaction that landed on chain but failed
// during execution, as opposed to one that never confirmed.
var ErrExecutionFailed = errors.New("transaction execution failed")

// Submitter sends signed transactions and polls them to confirmation
type Submitter struct {
	rpc    *rpc.Client
	logger *logrus.Logger
}

func NewSubmitter(client *rpc.Client, logger *logrus.Logger) *Submitter {
	return &Submitter{rpc: client, logger: logger}
}

// LatestBlockhash fetches a recent blockhash for transaction assembly
func (s *Submitter) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	raw, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, err
	}
	hash, err := solana.HashFromBase58(raw)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash format: %w", err)
	}
	return hash, nil
}

// BuildTransaction assembles an unsigned transaction with a fresh blockhash
func (s *Submitter) BuildTransaction(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := s.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// Send serializes and broadcasts a fully signed transaction
func (s *Submitter) Send(ctx context.Context, tx *solana.Transaction, opts rpc.SendOptions) (string, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	sig, err := s.rpc.SendTransaction(ctx, txBytes, opts)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"signature": sig,
		"size":      len(txBytes),
	}).Info("Transaction sent")
	return sig, nil
}

// Confirm polls a signature until it reaches the requested commitment.
// An on-chain failure returns ErrExecutionFailed; never reaching the
// commitment before the timeout returns a plain timeout error.
func (s *Submitter) Confirm(ctx context.Context, signature, commitment string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		status, err := s.rpc.GetSignatureStatus(ctx, signature)
		if err != nil {
			return fmt.Errorf("failed to check signature: %w", err)
		}

		if status != nil {
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrExecutionFailed, status.Err)
			}
			if commitmentReached(status.ConfirmationStatus, commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("transaction confirmation timeout after %v", timeout)
}

// Logs fetches the execution log messages of a landed transaction
func (s *Submitter) Logs(ctx context.Context, signature string) ([]string, error) {
	return s.rpc.GetTransactionLogs(ctx, signature)
}

func commitmentReached(status, want string) bool {
	if status == "" {
		return false
	}
	switch want {
	case "confirmed":
		return status == "confirmed" || status == "finalized"
	case "finalized":
		return status == "finalized"
	default:
		return true
	}
}
