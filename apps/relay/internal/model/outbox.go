package model

import (
	"time"
)

type SettlementEvent struct {
	SwapID       string    `db:"swap_id"`
	EventType    string    `db:"event_type"` // "swap_completed" or "swap_failed"
	Status       string    `db:"status"`     // "unsent", "processing", "sent"
	SourceChain  string    `db:"source_chain"`
	TargetChain  string    `db:"target_chain"`
	TargetTxHash string    `db:"target_tx_hash"`
	Amount       string    `db:"amount"`
	Note         string    `db:"note"`
	CreatedAt    time.Time `db:"created_at"`
}
