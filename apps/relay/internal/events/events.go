package events

import (
	"time"
)

type SettlementMessage struct {
	EventType    string    `json:"event_type"`
	SwapID       string    `json:"swap_id"`
	SourceChain  string    `json:"source_chain"`
	TargetChain  string    `json:"target_chain"`
	TargetTxHash string    `json:"target_tx_hash,omitempty"`
	Amount       string    `json:"amount"`
	Note         string    `json:"note,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
