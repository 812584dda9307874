package model

import (
	"time"
)

// Swap statuses. A record reaches "completed" at most once; "failed" is
// reserved for permanent routing errors, never transient chain errors.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type SwapRecord struct {
	SwapID           string    `db:"swap_id"`
	SourceChain      string    `db:"source_chain"`
	TargetChain      string    `db:"target_chain"`
	SourceTxHash     string    `db:"source_tx_hash"` // may be a provisional placeholder until intake backfills it
	SourceAmount     string    `db:"source_amount"`  // decimal string, source token units
	TargetAmount     string    `db:"target_amount"`  // decimal string, post-fee, what is actually paid out
	RecipientAddress string    `db:"recipient_address"`
	Status           string    `db:"status"`
	TargetTxHash     *string   `db:"target_tx_hash"` // set only on completion
	ErrorNote        *string   `db:"error_note"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
