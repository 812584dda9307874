package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"celomind/apps/relay/internal/model"
)

type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOutboxRepository(db *sql.DB, logger *zap.Logger) *OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

func (r *OutboxRepository) StoreSettlementEvent(event model.SettlementEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO settlement_outbox (swap_id, event_type, status, source_chain, target_chain, target_tx_hash, amount, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (swap_id, event_type) DO NOTHING
	`, event.SwapID, event.EventType, event.Status, event.SourceChain, event.TargetChain, event.TargetTxHash, event.Amount, event.Note)

	if err != nil {
		return fmt.Errorf("failed to store settlement event: %w", err)
	}

	r.logger.Info("Stored settlement event",
		zap.String("swap_id", event.SwapID),
		zap.String("event_type", event.EventType))
	return nil
}

func (r *OutboxRepository) GetUnsentEventsForProcessing(limit int) ([]model.SettlementEvent, error) {
	// Use a transaction to ensure atomicity
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	rows, err := tx.Query(`
		SELECT swap_id, event_type, status, source_chain, target_chain, target_tx_hash, amount, note, created_at
		FROM settlement_outbox
		WHERE status = 'unsent'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.SettlementEvent
	for rows.Next() {
		var event model.SettlementEvent
		if err := rows.Scan(&event.SwapID, &event.EventType, &event.Status, &event.SourceChain,
			&event.TargetChain, &event.TargetTxHash, &event.Amount, &event.Note, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	rows.Close()

	// Mark selected events as 'processing' to prevent other consumers from picking them up
	for _, event := range events {
		_, err = tx.Exec(`
			UPDATE settlement_outbox
			SET status = 'processing'
			WHERE swap_id = $1 AND event_type = $2 AND status = 'unsent'
		`, event.SwapID, event.EventType)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *OutboxRepository) MarkEventAsSent(swapID, eventType string) error {
	_, err := r.db.Exec(`
		UPDATE settlement_outbox
		SET status = 'sent'
		WHERE swap_id = $1 AND event_type = $2
	`, swapID, eventType)
	return err
}

func (r *OutboxRepository) MarkEventAsFailed(swapID, eventType string) error {
	_, err := r.db.Exec(`
		UPDATE settlement_outbox
		SET status = 'unsent'
		WHERE swap_id = $1 AND event_type = $2 AND status = 'processing'
	`, swapID, eventType)
	return err
}
