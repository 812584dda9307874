package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"celomind/apps/relay/internal/chains"
	"celomind/apps/relay/internal/model"
)

// Scheduler drives pending swaps through confirmation check, preflight,
// dispatch and status update on a fixed interval. All processing is
// strictly sequential: every payout shares the escrow account's nonce and
// balance, so there is deliberately no per-swap concurrency.
type Scheduler struct {
	ledger     Ledger
	oracle     *ConfirmationOracle
	preflight  *PreflightChecker
	dispatcher *Dispatcher
	settlement SettlementStore
	interval   time.Duration
	logger     *zap.Logger

	// sentPayouts remembers broadcast hashes by swap id so a swap whose
	// ledger write failed after a successful broadcast is not paid twice
	// when the next cycle re-observes it still pending.
	sentPayouts map[string]string
}

func NewScheduler(
	ledger Ledger,
	oracle *ConfirmationOracle,
	preflight *PreflightChecker,
	dispatcher *Dispatcher,
	settlement SettlementStore,
	interval time.Duration,
	logger *zap.Logger) *Scheduler {
	return &Scheduler{
		ledger:      ledger,
		oracle:      oracle,
		preflight:   preflight,
		dispatcher:  dispatcher,
		settlement:  settlement,
		interval:    interval,
		logger:      logger,
		sentPayouts: make(map[string]string),
	}
}

// Start runs the poll loop until the context is cancelled. The cycle runs
// in this single goroutine off the ticker channel, so a cycle that
// outlasts the interval simply coalesces the missed ticks; two cycles can
// never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting swap relay scheduler", zap.Duration("interval", s.interval))

	s.StartupDiagnostic(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Relay scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle processes every pending swap once. Errors are contained per
// record; a failing swap never aborts the batch and the cycle always
// returns control to the loop so the next tick fires.
func (s *Scheduler) RunCycle(ctx context.Context) {
	pending, err := s.ledger.ListPending()
	if err != nil {
		s.logger.Error("Failed to list pending swaps", zap.Error(err))
		return
	}

	if len(pending) == 0 {
		return
	}

	s.logger.Info("Processing pending swaps", zap.Int("count", len(pending)))

	for _, record := range pending {
		if err := s.processSwap(ctx, record); err != nil {
			s.logger.Error("Swap processing failed, will retry next cycle",
				zap.String("swap_id", record.SwapID),
				zap.Error(err))
		}
	}
}

// processSwap drives one record through the settlement pipeline. A nil
// return means the record reached a terminal status or is legitimately
// waiting; an error means a transient failure worth logging.
func (s *Scheduler) processSwap(ctx context.Context, record model.SwapRecord) error {
	// Unrecognized chain pairs can never settle; fail them exactly once.
	entry, routable := s.dispatcher.Resolve(record.SourceChain, record.TargetChain)
	if !routable {
		return s.failSwap(record, "unsupported chain pair "+record.SourceChain+" -> "+record.TargetChain)
	}

	if !s.oracle.IsSourceConfirmed(ctx, record) {
		return nil
	}

	// Already-sent guard: if a previous cycle broadcast the payout but
	// crashed before the ledger write, finish the bookkeeping instead of
	// dispatching a second transfer.
	if txHash, sent := s.sentPayouts[record.SwapID]; sent {
		s.logger.Warn("Payout already broadcast for swap, completing ledger write only",
			zap.String("swap_id", record.SwapID),
			zap.String("target_tx_hash", txHash))
		return s.completeSwap(record, txHash)
	}

	amount, err := chains.ToBaseUnits(record.TargetAmount, entry.Token.Decimals)
	if err != nil {
		return s.failSwap(record, "invalid target amount "+record.TargetAmount)
	}

	feasibility, err := s.preflight.CheckPayoutFeasible(ctx, entry.PayoutChain, entry.Token.Address, amount)
	if err != nil {
		return err
	}
	if feasibility != FeasibilityOk {
		s.logger.Info("Swap blocked by escrow funding, leaving pending",
			zap.String("swap_id", record.SwapID),
			zap.String("reason", feasibility.String()))
		return nil
	}

	txHash, err := s.dispatcher.SendPayout(ctx, entry, record.RecipientAddress, record.TargetAmount)
	if err != nil {
		return err
	}

	// Record the broadcast before the ledger write; the write may fail
	// and the transfer cannot be rolled back.
	s.sentPayouts[record.SwapID] = txHash

	return s.completeSwap(record, txHash)
}

func (s *Scheduler) completeSwap(record model.SwapRecord, txHash string) error {
	if err := s.ledger.UpdateStatus(record.SwapID, model.StatusCompleted, nil, &txHash); err != nil {
		return err
	}

	s.logger.Info("Swap completed",
		zap.String("swap_id", record.SwapID),
		zap.String("source_chain", record.SourceChain),
		zap.String("target_chain", record.TargetChain),
		zap.String("target_tx_hash", txHash))

	s.recordSettlement(record, "swap_completed", txHash, "")
	return nil
}

func (s *Scheduler) failSwap(record model.SwapRecord, note string) error {
	if err := s.ledger.UpdateStatus(record.SwapID, model.StatusFailed, &note, nil); err != nil {
		return err
	}

	s.logger.Warn("Swap failed permanently",
		zap.String("swap_id", record.SwapID),
		zap.String("note", note))

	s.recordSettlement(record, "swap_failed", "", note)
	return nil
}

func (s *Scheduler) recordSettlement(record model.SwapRecord, eventType, txHash, note string) {
	if s.settlement == nil {
		return
	}
	err := s.settlement.StoreSettlementEvent(model.SettlementEvent{
		SwapID:       record.SwapID,
		EventType:    eventType,
		Status:       "unsent",
		SourceChain:  record.SourceChain,
		TargetChain:  record.TargetChain,
		TargetTxHash: txHash,
		Amount:       record.TargetAmount,
		Note:         note,
	})
	if err != nil {
		// The swap itself settled; a lost event only delays downstream
		// notification.
		s.logger.Error("Failed to store settlement event",
			zap.String("swap_id", record.SwapID),
			zap.Error(err))
	}
}

// StartupDiagnostic snapshots escrow balances on every routable payout
// chain and warns when gas or payout-token funds are critically low. It
// never blocks startup.
func (s *Scheduler) StartupDiagnostic(ctx context.Context) {
	seen := make(map[string]bool)
	for _, entry := range s.dispatcher.matrix {
		if seen[entry.PayoutChain] {
			continue
		}
		seen[entry.PayoutChain] = true

		snapshot, err := s.preflight.Snapshot(ctx, entry.PayoutChain, entry.Token.Address)
		if err != nil {
			s.logger.Warn("Startup diagnostic could not read escrow balances",
				zap.String("chain", entry.PayoutChain),
				zap.Error(err))
			continue
		}

		if snapshot.NativeGas.Cmp(s.preflight.gasReserve) <= 0 {
			s.logger.Warn("Escrow gas critically low",
				zap.String("chain", entry.PayoutChain),
				zap.String("native_balance", snapshot.NativeGas.String()))
		}
		if snapshot.PayoutToken.Sign() == 0 {
			s.logger.Warn("Escrow holds no payout token",
				zap.String("chain", entry.PayoutChain),
				zap.String("token", entry.Token.Symbol))
		}

		s.logger.Info("Escrow balance snapshot",
			zap.String("chain", entry.PayoutChain),
			zap.String("native_balance", snapshot.NativeGas.String()),
			zap.String("token", entry.Token.Symbol),
			zap.String("token_balance", snapshot.PayoutToken.String()))
	}
}
