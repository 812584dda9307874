package relay

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"celomind/apps/relay/internal/model"
)

// Ledger is the swap store the scheduler settles against. The relay only
// ever reads pending records and writes status transitions; records are
// created by the order-intake flow and never deleted.
type Ledger interface {
	ListPending() ([]model.SwapRecord, error)
	GetByID(swapID string) (*model.SwapRecord, error)
	UpdateStatus(swapID, status string, errorNote, targetTxHash *string) error
}

// ChainClient is the per-chain RPC surface the relay needs: balance and
// confirmation reads plus the single escrow-funded token transfer.
type ChainClient interface {
	ChainName() string
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token common.Address, account common.Address) (*big.Int, error)
	Confirmations(ctx context.Context, txHash common.Hash) (uint64, error)
	SendToken(ctx context.Context, key *ecdsa.PrivateKey, from common.Address, token common.Address, recipient common.Address, amount *big.Int) (string, error)
}

// SettlementStore receives one event per terminal transition for
// downstream publication.
type SettlementStore interface {
	StoreSettlementEvent(event model.SettlementEvent) error
}
