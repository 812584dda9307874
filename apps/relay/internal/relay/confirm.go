package relay

import (
	"context"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/model"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsRealTxHash reports whether a string looks like an on-chain transaction
// hash. Intake flows write provisional placeholders (non-0x-prefixed ids,
// or markers containing "pending") before the real deposit hash is known;
// those must never be sent to an RPC node.
func IsRealTxHash(hash string) bool {
	if strings.Contains(strings.ToLower(hash), "pending") {
		return false
	}
	return txHashPattern.MatchString(hash)
}

// ConfirmationOracle answers whether a swap's source deposit has reached
// the minimum confirmation depth on its source chain.
type ConfirmationOracle struct {
	clients          map[string]ChainClient
	minConfirmations uint64
	logger           *zap.Logger
}

func NewConfirmationOracle(clients map[string]ChainClient, minConfirmations uint64, logger *zap.Logger) *ConfirmationOracle {
	return &ConfirmationOracle{
		clients:          clients,
		minConfirmations: minConfirmations,
		logger:           logger,
	}
}

// IsSourceConfirmed returns false for placeholder hashes, unknown source
// chains, and any query failure. A "no" here is always retryable; the
// next cycle asks again.
func (o *ConfirmationOracle) IsSourceConfirmed(ctx context.Context, record model.SwapRecord) bool {
	if !IsRealTxHash(record.SourceTxHash) {
		o.logger.Debug("Source tx hash not yet real, skipping confirmation check",
			zap.String("swap_id", record.SwapID),
			zap.String("source_tx_hash", record.SourceTxHash))
		return false
	}

	client, exists := o.clients[record.SourceChain]
	if !exists {
		o.logger.Warn("No client for source chain",
			zap.String("swap_id", record.SwapID),
			zap.String("source_chain", record.SourceChain))
		return false
	}

	confirmations, err := client.Confirmations(ctx, common.HexToHash(record.SourceTxHash))
	if err != nil {
		// Not-found and transport errors both mean "not yet confirmed"
		o.logger.Info("Could not read source confirmations, will retry",
			zap.String("swap_id", record.SwapID),
			zap.String("source_chain", record.SourceChain),
			zap.Error(err))
		return false
	}

	return confirmations >= o.minConfirmations
}
