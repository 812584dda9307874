package relay

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/escrow"
)

// Feasibility is the outcome of a preflight balance check.
type Feasibility int

const (
	FeasibilityOk Feasibility = iota
	InsufficientPayoutToken
	InsufficientGas
)

func (f Feasibility) String() string {
	switch f {
	case FeasibilityOk:
		return "ok"
	case InsufficientPayoutToken:
		return "insufficient_payout_token"
	case InsufficientGas:
		return "insufficient_gas"
	default:
		return "unknown"
	}
}

// PreflightChecker validates that the escrow account can afford a payout
// before an irreversible transfer is committed. It fails closed: both the
// payout-token balance and a native gas reserve must be covered. A
// shortfall keeps the swap pending; topping up the escrow wallet is an
// operational remedy, not a user error.
type PreflightChecker struct {
	clients       map[string]ChainClient
	escrowAddress common.Address
	gasReserve    *big.Int
	logger        *zap.Logger
}

func NewPreflightChecker(clients map[string]ChainClient, escrowAddress common.Address, gasReserve *big.Int, logger *zap.Logger) *PreflightChecker {
	return &PreflightChecker{
		clients:       clients,
		escrowAddress: escrowAddress,
		gasReserve:    gasReserve,
		logger:        logger,
	}
}

// Snapshot fetches the escrow account's native and payout-token balances
// on one chain in the same pass. Always re-fetched, never cached.
func (p *PreflightChecker) Snapshot(ctx context.Context, chain string, token common.Address) (*escrow.BalanceSnapshot, error) {
	client, exists := p.clients[chain]
	if !exists {
		return nil, fmt.Errorf("no client for chain %s", chain)
	}

	nativeBalance, err := client.NativeBalance(ctx, p.escrowAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow native balance: %w", err)
	}

	tokenBalance, err := client.TokenBalance(ctx, token, p.escrowAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow token balance: %w", err)
	}

	return &escrow.BalanceSnapshot{
		Chain:       chain,
		NativeGas:   nativeBalance,
		PayoutToken: tokenBalance,
	}, nil
}

// CheckPayoutFeasible gates a single dispatch decision. amount is in the
// payout token's base units.
func (p *PreflightChecker) CheckPayoutFeasible(ctx context.Context, chain string, token common.Address, amount *big.Int) (Feasibility, error) {
	snapshot, err := p.Snapshot(ctx, chain, token)
	if err != nil {
		return FeasibilityOk, err
	}

	if snapshot.PayoutToken.Cmp(amount) < 0 {
		p.logger.Warn("Escrow payout token balance too low",
			zap.String("chain", chain),
			zap.String("have", snapshot.PayoutToken.String()),
			zap.String("need", amount.String()))
		return InsufficientPayoutToken, nil
	}

	if snapshot.NativeGas.Cmp(p.gasReserve) <= 0 {
		p.logger.Warn("Escrow native gas below reserve",
			zap.String("chain", chain),
			zap.String("have", snapshot.NativeGas.String()),
			zap.String("reserve", p.gasReserve.String()))
		return InsufficientGas, nil
	}

	return FeasibilityOk, nil
}
