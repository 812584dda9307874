package relay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/chains"
	"celomind/apps/relay/internal/escrow"
)

// Route is one (source chain, target chain) leg pair. The payout token is
// determined jointly by both legs, not by the target chain alone: the same
// target can receive different tokens depending on what was deposited
// upstream.
type Route struct {
	SourceChain string
	TargetChain string
}

// Entry names the payout side of a route.
type Entry struct {
	PayoutChain string
	Token       *chains.Token
}

// DefaultMatrix builds the routing table for the supported chain pairs.
// Stablecoin legs pay out USDC; anything landing on Celo pays out cUSD.
func DefaultMatrix(registry *chains.Registry) map[Route]Entry {
	matrix := make(map[Route]Entry)

	usdcTargets := map[string][]string{
		chains.Base:     {chains.Arbitrum, chains.Optimism, chains.Celo},
		chains.Arbitrum: {chains.Base, chains.Optimism, chains.Celo},
		chains.Optimism: {chains.Base, chains.Arbitrum},
		chains.Celo:     {chains.Base, chains.Arbitrum},
	}

	for source, targets := range usdcTargets {
		for _, target := range targets {
			symbol := "USDC"
			if target == chains.Celo {
				symbol = "cUSD"
			}
			token, exists := registry.GetToken(target, symbol)
			if !exists {
				continue
			}
			matrix[Route{SourceChain: source, TargetChain: target}] = Entry{
				PayoutChain: target,
				Token:       token,
			}
		}
	}

	return matrix
}

// Dispatcher resolves routes and sends escrow-funded payouts.
type Dispatcher struct {
	matrix    map[Route]Entry
	clients   map[string]ChainClient
	account   *escrow.Account
	preflight *PreflightChecker
	logger    *zap.Logger
}

func NewDispatcher(matrix map[Route]Entry, clients map[string]ChainClient, account *escrow.Account, preflight *PreflightChecker, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		matrix:    matrix,
		clients:   clients,
		account:   account,
		preflight: preflight,
		logger:    logger,
	}
}

// Resolve looks up the payout entry for a chain pair. A missing pair is a
// permanent routing error for the caller, never a silent no-op.
func (d *Dispatcher) Resolve(sourceChain, targetChain string) (Entry, bool) {
	entry, exists := d.matrix[Route{SourceChain: sourceChain, TargetChain: targetChain}]
	return entry, exists
}

// SendPayout broadcasts the compensating transfer on the payout chain and
// returns the transaction hash. The balance check runs again here because
// the ledger scan and the send are not atomic with respect to the escrow
// balance. It does not wait for target-chain confirmation.
func (d *Dispatcher) SendPayout(ctx context.Context, entry Entry, recipient string, amountDecimal string) (string, error) {
	client, exists := d.clients[entry.PayoutChain]
	if !exists {
		return "", fmt.Errorf("no client for payout chain %s", entry.PayoutChain)
	}

	if !common.IsHexAddress(recipient) {
		return "", fmt.Errorf("invalid recipient address: %s", recipient)
	}

	amount, err := chains.ToBaseUnits(amountDecimal, entry.Token.Decimals)
	if err != nil {
		return "", fmt.Errorf("invalid payout amount %s: %w", amountDecimal, err)
	}

	feasibility, err := d.preflight.CheckPayoutFeasible(ctx, entry.PayoutChain, entry.Token.Address, amount)
	if err != nil {
		return "", fmt.Errorf("preflight recheck failed: %w", err)
	}
	if feasibility != FeasibilityOk {
		return "", fmt.Errorf("preflight recheck blocked payout: %s", feasibility)
	}

	txHash, err := client.SendToken(ctx, d.account.Key(), d.account.Address(), entry.Token.Address, common.HexToAddress(recipient), amount)
	if err != nil {
		return "", fmt.Errorf("failed to send payout on %s: %w", entry.PayoutChain, err)
	}

	d.logger.Info("Broadcast payout",
		zap.String("payout_chain", entry.PayoutChain),
		zap.String("token", entry.Token.Symbol),
		zap.String("recipient", recipient),
		zap.String("amount", amountDecimal),
		zap.String("tx_hash", txHash))

	return txHash, nil
}
