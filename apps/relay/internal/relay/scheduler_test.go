package relay

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/chains"
	"celomind/apps/relay/internal/escrow"
	"celomind/apps/relay/internal/model"
)

const (
	testRecipient = "0x1111111111111111111111111111111111111111"
	// A syntactically real source deposit hash.
	testSourceHash = "0x" + "deadbeef" + "deadbeef" + "deadbeef" + "deadbeef" + "deadbeef" + "deadbeef" + "deadbeef" + "deadbeef"
)

var testGasReserve = big.NewInt(1_000_000)

type harness struct {
	ledger     *fakeLedger
	clients    map[string]*fakeChainClient
	settlement *fakeSettlementStore
	scheduler  *Scheduler
	registry   *chains.Registry
}

func newHarness(t *testing.T, records ...model.SwapRecord) *harness {
	t.Helper()

	logger := zap.NewNop()
	registry := chains.NewRegistry("http://celo", "http://base", "http://arbitrum", "http://optimism")

	fakes := make(map[string]*fakeChainClient)
	clients := make(map[string]ChainClient)
	for _, name := range registry.ChainNames() {
		fake := newFakeChainClient(name)
		fakes[name] = fake
		clients[name] = fake
	}

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	account, err := escrow.NewAccount(hex.EncodeToString(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey).Hex())
	require.NoError(t, err)

	preflight := NewPreflightChecker(clients, account.Address(), testGasReserve, logger)
	oracle := NewConfirmationOracle(clients, 1, logger)
	dispatcher := NewDispatcher(DefaultMatrix(registry), clients, account, preflight, logger)

	ledger := newFakeLedger(records...)
	settlement := &fakeSettlementStore{}
	scheduler := NewScheduler(ledger, oracle, preflight, dispatcher, settlement, time.Second, logger)

	return &harness{
		ledger:     ledger,
		clients:    fakes,
		settlement: settlement,
		scheduler:  scheduler,
		registry:   registry,
	}
}

func pendingSwap(id, sourceChain, targetChain, sourceTxHash, targetAmount string) model.SwapRecord {
	return model.SwapRecord{
		SwapID:           id,
		SourceChain:      sourceChain,
		TargetChain:      targetChain,
		SourceTxHash:     sourceTxHash,
		SourceAmount:     targetAmount,
		TargetAmount:     targetAmount,
		RecipientAddress: testRecipient,
		Status:           model.StatusPending,
	}
}

// fund gives the escrow enough gas and payout token on a chain.
func (h *harness) fund(t *testing.T, chain, symbol string, tokenBalance, nativeBalance *big.Int) {
	t.Helper()
	token, exists := h.registry.GetToken(chain, symbol)
	require.True(t, exists)
	h.clients[chain].tokenBalances[token.Address] = tokenBalance
	h.clients[chain].native = nativeBalance
}

func (h *harness) confirmSource(chain, txHash string, count uint64) {
	h.clients[chain].confirmations[common.HexToHash(txHash)] = count
}

func TestSchedulerCompletesConfirmedFeasibleSwap(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"))
	h.confirmSource("base", testSourceHash, 1)
	h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), big.NewInt(2_000_000))

	h.scheduler.RunCycle(context.Background())

	record, err := h.ledger.GetByID("s1")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, record.Status)
	require.NotNil(t, record.TargetTxHash)
	require.NotEmpty(t, *record.TargetTxHash)

	sent := h.clients["arbitrum"].sent
	require.Len(t, sent, 1)
	require.Equal(t, common.HexToAddress(testRecipient), sent[0].recipient)
	// 100.0 USDC at 6 decimals
	require.Zero(t, sent[0].amount.Cmp(big.NewInt(100_000_000)))

	require.Len(t, h.settlement.events, 1)
	require.Equal(t, "swap_completed", h.settlement.events[0].EventType)
	require.Equal(t, *record.TargetTxHash, h.settlement.events[0].TargetTxHash)

	// A settled record is terminal; later cycles must not touch it again.
	updatesAfterFirstCycle := h.ledger.updateCalls
	h.scheduler.RunCycle(context.Background())
	require.Equal(t, updatesAfterFirstCycle, h.ledger.updateCalls)
	require.Len(t, h.clients["arbitrum"].sent, 1)
}

func TestSchedulerLeavesUnconfirmedSwapPending(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"))
	h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), big.NewInt(2_000_000))
	// No confirmation registered: the receipt lookup fails like a
	// not-yet-mined deposit would.

	for i := 0; i < 3; i++ {
		h.scheduler.RunCycle(context.Background())
	}

	record, _ := h.ledger.GetByID("s1")
	require.Equal(t, model.StatusPending, record.Status)
	require.Empty(t, h.clients["arbitrum"].sent)

	// Deposit confirms, next cycle settles it.
	h.confirmSource("base", testSourceHash, 1)
	h.scheduler.RunCycle(context.Background())

	record, _ = h.ledger.GetByID("s1")
	require.Equal(t, model.StatusCompleted, record.Status)
	require.Len(t, h.clients["arbitrum"].sent, 1)
}

func TestPlaceholderSourceHashNeverDispatched(t *testing.T) {
	placeholders := []string{
		"pending-3f2a",
		"PENDING",
		"deadbeef", // not 0x-prefixed
		"0x1234",   // too short
		"",
	}

	for i, placeholder := range placeholders {
		id := fmt.Sprintf("s%d", i)
		h := newHarness(t, pendingSwap(id, "base", "arbitrum", placeholder, "100.0"))
		h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), big.NewInt(2_000_000))

		for cycle := 0; cycle < 5; cycle++ {
			h.scheduler.RunCycle(context.Background())
		}

		record, _ := h.ledger.GetByID(id)
		require.Equal(t, model.StatusPending, record.Status, "placeholder %q must stay pending", placeholder)
		require.Empty(t, h.clients["arbitrum"].sent, "placeholder %q must never dispatch", placeholder)
	}
}

func TestUnsupportedChainPairFailsPermanently(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "unsupported-chain", testSourceHash, "100.0"))
	h.confirmSource("base", testSourceHash, 1)

	h.scheduler.RunCycle(context.Background())

	record, _ := h.ledger.GetByID("s1")
	require.Equal(t, model.StatusFailed, record.Status)
	require.NotNil(t, record.ErrorNote)
	require.Contains(t, *record.ErrorNote, "unsupported chain pair")

	for _, client := range h.clients {
		require.Empty(t, client.sent)
	}
	require.Len(t, h.settlement.events, 1)
	require.Equal(t, "swap_failed", h.settlement.events[0].EventType)

	// Failed is terminal: a second cycle neither retries nor rewrites.
	updatesAfterFirstCycle := h.ledger.updateCalls
	h.scheduler.RunCycle(context.Background())
	require.Equal(t, updatesAfterFirstCycle, h.ledger.updateCalls)
	require.Equal(t, model.StatusFailed, record.Status)
}

func TestInsufficientPayoutTokenLeavesPending(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"))
	h.confirmSource("base", testSourceHash, 1)
	// Escrow holds only 50 USDC against a 100 USDC payout.
	h.fund(t, "arbitrum", "USDC", big.NewInt(50_000_000), big.NewInt(2_000_000))

	h.scheduler.RunCycle(context.Background())

	record, _ := h.ledger.GetByID("s1")
	require.Equal(t, model.StatusPending, record.Status)
	require.Empty(t, h.clients["arbitrum"].sent)

	// Escrow is topped up; the swap settles on the next cycle.
	h.fund(t, "arbitrum", "USDC", big.NewInt(150_000_000), big.NewInt(2_000_000))
	h.scheduler.RunCycle(context.Background())

	record, _ = h.ledger.GetByID("s1")
	require.Equal(t, model.StatusCompleted, record.Status)
	require.Len(t, h.clients["arbitrum"].sent, 1)
}

func TestGasBelowReserveBlocksUntilTopUp(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"))
	h.confirmSource("base", testSourceHash, 1)
	// Native balance exactly at the reserve is still insufficient; the
	// balance must exceed it.
	h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), new(big.Int).Set(testGasReserve))

	for i := 0; i < 4; i++ {
		h.scheduler.RunCycle(context.Background())
	}

	record, _ := h.ledger.GetByID("s1")
	require.Equal(t, model.StatusPending, record.Status)
	require.Empty(t, h.clients["arbitrum"].sent)

	h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), big.NewInt(2_000_000))
	h.scheduler.RunCycle(context.Background())

	record, _ = h.ledger.GetByID("s1")
	require.Equal(t, model.StatusCompleted, record.Status)
	require.Len(t, h.clients["arbitrum"].sent, 1)
}

func TestAtMostOnePayoutWhenLedgerWriteFails(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"))
	h.confirmSource("base", testSourceHash, 1)
	h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), big.NewInt(2_000_000))

	// First completion write fails after the payout broadcast: the record
	// stays pending while the transfer is already on its way.
	h.ledger.failUpdates = 1
	h.scheduler.RunCycle(context.Background())

	record, _ := h.ledger.GetByID("s1")
	require.Equal(t, model.StatusPending, record.Status)
	require.Len(t, h.clients["arbitrum"].sent, 1)

	// The next cycle re-observes the pending record but must only finish
	// the bookkeeping, not pay again.
	h.scheduler.RunCycle(context.Background())

	record, _ = h.ledger.GetByID("s1")
	require.Equal(t, model.StatusCompleted, record.Status)
	require.NotNil(t, record.TargetTxHash)
	require.Len(t, h.clients["arbitrum"].sent, 1)
}

func TestCycleContinuesPastFailingRecord(t *testing.T) {
	h := newHarness(t,
		pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"),
		pendingSwap("s2", "base", "celo", testSourceHash, "25.0"),
	)
	h.confirmSource("base", testSourceHash, 1)
	h.fund(t, "arbitrum", "USDC", big.NewInt(200_000_000), big.NewInt(2_000_000))
	cusdBalance, _ := new(big.Int).SetString("100000000000000000000", 10) // 100 cUSD at 18 decimals
	h.fund(t, "celo", "cUSD", cusdBalance, big.NewInt(2_000_000))

	// Broadcasts on arbitrum blow up; the celo swap in the same batch
	// must still settle.
	h.clients["arbitrum"].sendErr = fmt.Errorf("rpc timeout")

	h.scheduler.RunCycle(context.Background())

	first, _ := h.ledger.GetByID("s1")
	require.Equal(t, model.StatusPending, first.Status)

	second, _ := h.ledger.GetByID("s2")
	require.Equal(t, model.StatusCompleted, second.Status)
	require.Len(t, h.clients["celo"].sent, 1)

	expected, _ := new(big.Int).SetString("25000000000000000000", 10) // 25 cUSD at 18 decimals
	require.Zero(t, h.clients["celo"].sent[0].amount.Cmp(expected))
}

func TestLedgerUpdateStatusIdempotent(t *testing.T) {
	h := newHarness(t, pendingSwap("s1", "base", "arbitrum", testSourceHash, "100.0"))

	txHash := "0x" + strings.Repeat("ab", 32)
	require.NoError(t, h.ledger.UpdateStatus("s1", model.StatusCompleted, nil, &txHash))
	first, _ := h.ledger.GetByID("s1")

	require.NoError(t, h.ledger.UpdateStatus("s1", model.StatusCompleted, nil, &txHash))
	second, _ := h.ledger.GetByID("s1")

	require.Equal(t, first.Status, second.Status)
	require.Equal(t, *first.TargetTxHash, *second.TargetTxHash)
}
