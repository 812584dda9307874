package api

import (
	"time"
)

// CreateSwapRequest represents the request body for registering a cross-chain swap
type CreateSwapRequest struct {
	SourceChain      string `json:"source_chain" validate:"required"`
	TargetChain      string `json:"target_chain" validate:"required"`
	SourceTxHash     string `json:"source_tx_hash"` // provisional placeholder allowed
	SourceAmount     string `json:"source_amount" validate:"required"`
	TargetAmount     string `json:"target_amount" validate:"required"`
	RecipientAddress string `json:"recipient_address" validate:"required"`
}

// BackfillSourceTxRequest replaces a provisional source hash with the real one
type BackfillSourceTxRequest struct {
	SourceTxHash string `json:"source_tx_hash" validate:"required"`
}

// SwapResponse represents the API response for swap information
type SwapResponse struct {
	SwapID           string    `json:"swap_id"`
	SourceChain      string    `json:"source_chain"`
	TargetChain      string    `json:"target_chain"`
	SourceTxHash     string    `json:"source_tx_hash"`
	SourceAmount     string    `json:"source_amount"`
	TargetAmount     string    `json:"target_amount"`
	RecipientAddress string    `json:"recipient_address"`
	Status           string    `json:"status"`
	TargetTxHash     *string   `json:"target_tx_hash,omitempty"`
	ErrorNote        *string   `json:"error_note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EscrowBalancesResponse reports the escrow account's funds on every payout chain
type EscrowBalancesResponse struct {
	EscrowAddress string                   `json:"escrow_address"`
	Chains        map[string]EscrowBalance `json:"chains"`
}

// EscrowBalance is one chain's view of the escrow account
type EscrowBalance struct {
	NativeSymbol  string `json:"native_symbol"`
	NativeBalance string `json:"native_balance"`
	TokenSymbol   string `json:"token_symbol"`
	TokenBalance  string `json:"token_balance"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
