package cpmm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeelqureshi/solana-pool-gateway/internal/chain"
	"github.com/adeelqureshi/solana-pool-gateway/internal/rpc"
)

// rpcStub answers JSON-RPC methods from canned responses
type rpcStub struct {
	responses map[string]string
}

func (s *rpcStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	w.Header().Set("Content-Type", "application/json")
	if resp, ok := s.responses[req.Method]; ok {
		_, _ = w.Write([]byte(resp))
		return
	}
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
}

func newTestOrchestrator(t *testing.T, reader AccountReader, responses map[string]string) (*Orchestrator, solana.PublicKey) {
	t.Helper()

	srv := httptest.NewServer(&rpcStub{responses: responses})
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  logger,
	})

	engine, err := NewEngine(DefaultPoolProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	feeReceiver := solana.NewWallet().PublicKey()
	orch, err := NewOrchestrator(engine, reader, chain.NewSubmitter(client, logger), feeReceiver, logger)
	require.NoError(t, err)
	return orch, feeReceiver
}

func blockhashResponse() string {
	hash := solana.NewWallet().PublicKey().String()
	return `{"jsonrpc":"2.0","id":1,"result":{"value":{"blockhash":"` + hash + `","lastValidBlockHeight":100}}}`
}

func testCreationRequest(creator solana.PublicKey) CreationRequest {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	return CreationRequest{
		Creator:  creator,
		Config:   solana.NewWallet().PublicKey(),
		DepositA: Deposit{Mint: a, Amount: 1_000_000},
		DepositB: Deposit{Mint: b, Amount: 2_000_000},
	}
}

func TestPrepareBuildsPartiallySignedTransaction(t *testing.T) {
	creator := solana.NewWallet()
	orch, _ := newTestOrchestrator(t, &fakeReader{}, map[string]string{
		"getLatestBlockhash": blockhashResponse(),
	})

	out, err := orch.Prepare(context.Background(), testCreationRequest(creator.PublicKey()))
	require.NoError(t, err)
	assert.Equal(t, PhaseServerPartialSigned, out.Phase)
	assert.False(t, out.Pool.IsZero())
	assert.Equal(t, TokenProgramID, out.Token0Program)
	assert.Equal(t, TokenProgramID, out.Token1Program)

	raw, err := base64.StdEncoding.DecodeString(out.TransactionBase64)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)

	// Creator pays fees and signs first; the pool keypair holds the
	// second signer slot and has already signed server side.
	require.GreaterOrEqual(t, len(tx.Message.AccountKeys), 2)
	assert.Equal(t, creator.PublicKey(), tx.Message.AccountKeys[0])
	assert.Equal(t, out.Pool, tx.Message.AccountKeys[1])
	require.Len(t, tx.Signatures, 2)
	assert.True(t, tx.Signatures[0].IsZero(), "creator slot must stay open for the client")
	assert.False(t, tx.Signatures[1].IsZero(), "pool keypair must have signed")
}

func TestPrepareMintsFreshIdentityPerAttempt(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	orch, _ := newTestOrchestrator(t, &fakeReader{}, map[string]string{
		"getLatestBlockhash": blockhashResponse(),
	})
	req := testCreationRequest(creator)

	first, err := orch.Prepare(context.Background(), req)
	require.NoError(t, err)
	second, err := orch.Prepare(context.Background(), req)
	require.NoError(t, err)

	// Same request, different pool instance each time
	assert.NotEqual(t, first.Pool, second.Pool)
	assert.NotEqual(t, first.Addresses.LpMint, second.Addresses.LpMint)
	// The canonical identity is the same
	assert.Equal(t, first.Identity, second.Identity)
}

func TestPrepareNormalizesDeposits(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeReader{}, map[string]string{
		"getLatestBlockhash": blockhashResponse(),
	})
	req := testCreationRequest(solana.NewWallet().PublicKey())

	out, err := orch.Prepare(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, mintLess(out.Deposit0.Mint, out.Deposit1.Mint))
	assert.Equal(t, out.Identity.Token0, out.Deposit0.Mint)
	assert.Equal(t, out.Identity.Token1, out.Deposit1.Mint)
}

func TestPrepareInstructionAccounts(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	orch, feeReceiver := newTestOrchestrator(t, &fakeReader{}, map[string]string{
		"getLatestBlockhash": blockhashResponse(),
	})

	out, err := orch.Prepare(context.Background(), testCreationRequest(creator))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(out.TransactionBase64)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)

	require.Len(t, tx.Message.Instructions, 1)
	ix := tx.Message.Instructions[0]

	program, err := tx.Message.Program(ix.ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, DefaultPoolProgramID, program)

	// 20 fixed accounts plus 3 hook accounts per mint
	assert.Len(t, ix.Accounts, 26)

	keys := make(map[solana.PublicKey]bool)
	for _, idx := range ix.Accounts {
		keys[tx.Message.AccountKeys[idx]] = true
	}
	for name, key := range map[string]solana.PublicKey{
		"creator":      creator,
		"pool":         out.Pool,
		"fee receiver": feeReceiver,
		"lp mint":      out.Addresses.LpMint,
		"vault0":       out.Addresses.Vault0,
		"vault1":       out.Addresses.Vault1,
		"observation":  out.Addresses.Observation,
		"whitelist0":   out.Addresses.HookWhitelist0,
		"whitelist1":   out.Addresses.HookWhitelist1,
	} {
		assert.True(t, keys[key], "instruction must reference %s", name)
	}
}

func TestPrepareValidation(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeReader{}, nil)
	var valErr *ValidationError

	req := testCreationRequest(solana.NewWallet().PublicKey())
	req.DepositA.Amount = 0
	_, err := orch.Prepare(context.Background(), req)
	assert.ErrorAs(t, err, &valErr)

	req = testCreationRequest(solana.PublicKey{})
	_, err = orch.Prepare(context.Background(), req)
	assert.ErrorAs(t, err, &valErr)

	req = testCreationRequest(solana.NewWallet().PublicKey())
	req.DepositB.Mint = req.DepositA.Mint
	_, err = orch.Prepare(context.Background(), req)
	assert.ErrorAs(t, err, &valErr)
}

func TestSubmitConfirmedFlow(t *testing.T) {
	creator := solana.NewWallet()
	sig := "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
	responses := map[string]string{
		"getLatestBlockhash":   blockhashResponse(),
		"sendTransaction":      `{"jsonrpc":"2.0","id":1,"result":"` + sig + `"}`,
		"getSignatureStatuses": `{"jsonrpc":"2.0","id":1,"result":{"value":[{"slot":5,"confirmations":10,"confirmationStatus":"confirmed"}]}}`,
	}
	orch, _ := newTestOrchestrator(t, &fakeReader{}, responses)

	out, err := orch.Prepare(context.Background(), testCreationRequest(creator.PublicKey()))
	require.NoError(t, err)

	// Countersign as the creator, as the client would
	raw, err := base64.StdEncoding.DecodeString(out.TransactionBase64)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(creator.PublicKey()) {
			return &creator.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	signed, err := tx.MarshalBinary()
	require.NoError(t, err)

	result, err := orch.Submit(context.Background(), base64.StdEncoding.EncodeToString(signed))
	require.NoError(t, err)
	assert.Equal(t, sig, result.Signature)
	assert.Equal(t, out.Pool, result.Pool)
	assert.True(t, result.Confirmed)
}

func TestSubmitRejectsUnsignedTransaction(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeReader{}, map[string]string{
		"getLatestBlockhash": blockhashResponse(),
	})

	out, err := orch.Prepare(context.Background(), testCreationRequest(solana.NewWallet().PublicKey()))
	require.NoError(t, err)

	// The raw prepare output still misses the creator signature
	var valErr *ValidationError
	_, err = orch.Submit(context.Background(), out.TransactionBase64)
	assert.ErrorAs(t, err, &valErr)

	_, err = orch.Submit(context.Background(), "not base64!")
	assert.ErrorAs(t, err, &valErr)

	_, err = orch.Submit(context.Background(), "")
	assert.ErrorAs(t, err, &valErr)
}
