package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS swap_records (
			swap_id VARCHAR(64) PRIMARY KEY,
			source_chain VARCHAR(20) NOT NULL,
			target_chain VARCHAR(20) NOT NULL,
			source_tx_hash VARCHAR(66) NOT NULL,
			source_amount DECIMAL(78,18) NOT NULL,
			target_amount DECIMAL(78,18) NOT NULL,
			recipient_address VARCHAR(42) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			target_tx_hash VARCHAR(66),
			error_note TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_swap_records_status ON swap_records (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS settlement_outbox (
			swap_id VARCHAR(64) NOT NULL,
			event_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unsent',
			source_chain VARCHAR(20) NOT NULL,
			target_chain VARCHAR(20) NOT NULL,
			target_tx_hash VARCHAR(66) NOT NULL DEFAULT '',
			amount DECIMAL(78,18) NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (swap_id, event_type)
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
