package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"celomind/apps/relay/internal/model"
)

type SwapRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSwapRepository(db *sql.DB, logger *zap.Logger) *SwapRepository {
	return &SwapRepository{db: db, logger: logger}
}

const swapColumns = `swap_id, source_chain, target_chain, source_tx_hash, source_amount, target_amount, recipient_address, status, target_tx_hash, error_note, created_at, updated_at`

func scanSwap(row interface{ Scan(...interface{}) error }) (*model.SwapRecord, error) {
	var swap model.SwapRecord
	err := row.Scan(&swap.SwapID, &swap.SourceChain, &swap.TargetChain, &swap.SourceTxHash,
		&swap.SourceAmount, &swap.TargetAmount, &swap.RecipientAddress, &swap.Status,
		&swap.TargetTxHash, &swap.ErrorNote, &swap.CreatedAt, &swap.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &swap, nil
}

func (r *SwapRepository) CreateSwap(swap model.SwapRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO swap_records (swap_id, source_chain, target_chain, source_tx_hash, source_amount, target_amount, recipient_address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, swap.SwapID, swap.SourceChain, swap.TargetChain, swap.SourceTxHash, swap.SourceAmount, swap.TargetAmount, swap.RecipientAddress, swap.Status)

	if err != nil {
		return fmt.Errorf("failed to create swap: %w", err)
	}

	r.logger.Info("Created swap record",
		zap.String("swap_id", swap.SwapID),
		zap.String("source_chain", swap.SourceChain),
		zap.String("target_chain", swap.TargetChain),
		zap.String("target_amount", swap.TargetAmount))
	return nil
}

// ListPending returns every swap still awaiting settlement, oldest first
func (r *SwapRepository) ListPending() ([]model.SwapRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+swapColumns+`
		FROM swap_records
		WHERE status = $1
		ORDER BY created_at
	`, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending swaps: %w", err)
	}
	defer rows.Close()

	var swaps []model.SwapRecord
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap: %w", err)
		}
		swaps = append(swaps, *swap)
	}

	return swaps, rows.Err()
}

func (r *SwapRepository) GetByID(swapID string) (*model.SwapRecord, error) {
	swap, err := scanSwap(r.db.QueryRow(`
		SELECT `+swapColumns+`
		FROM swap_records
		WHERE swap_id = $1
	`, swapID))

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get swap by ID: %w", err)
	}

	return swap, nil
}

// UpdateStatus is the only mutation path for swap status. It is safe to
// call with the same terminal status twice; the second call rewrites the
// same values and is a no-op in effect.
func (r *SwapRepository) UpdateStatus(swapID, status string, errorNote, targetTxHash *string) error {
	_, err := r.db.Exec(`
		UPDATE swap_records
		SET status = $1,
			error_note = COALESCE($2, error_note),
			target_tx_hash = COALESCE($3, target_tx_hash),
			updated_at = NOW()
		WHERE swap_id = $4
	`, status, errorNote, targetTxHash, swapID)

	if err != nil {
		return fmt.Errorf("failed to update swap status: %w", err)
	}

	r.logger.Info("Updated swap status",
		zap.String("swap_id", swapID),
		zap.String("status", status))
	return nil
}

// BackfillSourceTx replaces a provisional source hash with the real
// deposit hash once the intake flow knows it. Only pending records are
// touched.
func (r *SwapRepository) BackfillSourceTx(swapID, sourceTxHash string) error {
	result, err := r.db.Exec(`
		UPDATE swap_records
		SET source_tx_hash = $1, updated_at = NOW()
		WHERE swap_id = $2 AND status = $3
	`, sourceTxHash, swapID, model.StatusPending)

	if err != nil {
		return fmt.Errorf("failed to backfill source tx hash: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no pending swap with id %s", swapID)
	}

	r.logger.Info("Backfilled source tx hash",
		zap.String("swap_id", swapID),
		zap.String("source_tx_hash", sourceTxHash))
	return nil
}
