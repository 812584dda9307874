package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/chains"
	"celomind/apps/relay/internal/relay"
)

// EscrowHandler reports the custodial account's funds per chain. Read
// only; the operational remedy for a shortfall is funding the wallet,
// which happens outside this service.
type EscrowHandler struct {
	clients       map[string]relay.ChainClient
	registry      *chains.Registry
	matrix        map[relay.Route]relay.Entry
	escrowAddress common.Address
	logger        *zap.Logger
}

// NewEscrowHandler creates a new EscrowHandler
func NewEscrowHandler(clients map[string]relay.ChainClient, registry *chains.Registry, matrix map[relay.Route]relay.Entry, escrowAddress common.Address, logger *zap.Logger) *EscrowHandler {
	return &EscrowHandler{
		clients:       clients,
		registry:      registry,
		matrix:        matrix,
		escrowAddress: escrowAddress,
		logger:        logger,
	}
}

// GetBalances handles GET /api/escrow/balances
func (h *EscrowHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances := make(map[string]EscrowBalance)

	seen := make(map[string]bool)
	for _, entry := range h.matrix {
		if seen[entry.PayoutChain] {
			continue
		}
		seen[entry.PayoutChain] = true

		client, exists := h.clients[entry.PayoutChain]
		if !exists {
			continue
		}
		profile, exists := h.registry.GetProfile(entry.PayoutChain)
		if !exists {
			continue
		}

		nativeBalance, err := client.NativeBalance(r.Context(), h.escrowAddress)
		if err != nil {
			h.logger.Error("Failed to get escrow native balance",
				zap.String("chain", entry.PayoutChain),
				zap.Error(err))
			// Continue with other chains instead of failing completely
			continue
		}

		tokenBalance, err := client.TokenBalance(r.Context(), entry.Token.Address, h.escrowAddress)
		if err != nil {
			h.logger.Error("Failed to get escrow token balance",
				zap.String("chain", entry.PayoutChain),
				zap.Error(err))
			continue
		}

		balances[entry.PayoutChain] = EscrowBalance{
			NativeSymbol:  profile.NativeSymbol,
			NativeBalance: chains.ToDecimalAmount(nativeBalance, 18),
			TokenSymbol:   entry.Token.Symbol,
			TokenBalance:  chains.ToDecimalAmount(tokenBalance, entry.Token.Decimals),
		}
	}

	response := EscrowBalancesResponse{
		EscrowAddress: h.escrowAddress.Hex(),
		Chains:        balances,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode escrow balances response", zap.Error(err))
	}
}
