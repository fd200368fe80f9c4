// internal/repository/row_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/database"
	"quadica-engraving-core/internal/model"
)

// rowRepository implements RowRepository
type rowRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRowRepository creates a new row repository
func NewRowRepository(db *database.DB, logger *zap.Logger) RowRepository {
	return &rowRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRow creates a new QSA row
func (r *rowRepository) CreateRow(ctx context.Context, row *model.Row) error {
	query := `
		INSERT INTO qsa_rows (batch_id, qsa_sequence, sku_composition, qty, status, start_position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		row.BatchID, row.QSASequence, pq.Array(row.SKUComposition), row.Qty, row.Status, row.StartPosition,
	)
	if err != nil {
		r.logger.Error("failed to create row", zap.Error(err))
		return fmt.Errorf("failed to create row: %w", err)
	}

	return nil
}

// GetRow retrieves a single QSA row
func (r *rowRepository) GetRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (*model.Row, error) {
	query := `
		SELECT batch_id, qsa_sequence, sku_composition, qty, status, start_position, engraved_at
		FROM qsa_rows WHERE batch_id = $1 AND qsa_sequence = $2
	`

	row := &model.Row{}
	var engravedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, batchID, qsaSequence).Scan(
		&row.BatchID, &row.QSASequence, pq.Array(&row.SKUComposition), &row.Qty, &row.Status, &row.StartPosition, &engravedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("row not found for batch %s qsa %d", batchID, qsaSequence)
		}
		return nil, fmt.Errorf("failed to get row: %w", err)
	}
	if engravedAt.Valid {
		row.EngravedAt = &engravedAt.Time
	}

	return row, nil
}

// ListRowsForBatch lists every row belonging to a batch, ordered by QSA sequence.
func (r *rowRepository) ListRowsForBatch(ctx context.Context, batchID uuid.UUID) ([]*model.Row, error) {
	query := `
		SELECT batch_id, qsa_sequence, sku_composition, qty, status, start_position, engraved_at
		FROM qsa_rows WHERE batch_id = $1
		ORDER BY qsa_sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	defer rows.Close()

	var result []*model.Row
	for rows.Next() {
		row := &model.Row{}
		var engravedAt sql.NullTime
		if err := rows.Scan(&row.BatchID, &row.QSASequence, pq.Array(&row.SKUComposition), &row.Qty, &row.Status, &row.StartPosition, &engravedAt); err != nil {
			r.logger.Error("failed to scan row", zap.Error(err))
			continue
		}
		if engravedAt.Valid {
			row.EngravedAt = &engravedAt.Time
		}
		result = append(result, row)
	}

	return result, nil
}

// UpdateRowStatus updates a row's lifecycle status
func (r *rowRepository) UpdateRowStatus(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, status model.RowStatus) error {
	query := `UPDATE qsa_rows SET status = $3 WHERE batch_id = $1 AND qsa_sequence = $2`

	result, err := r.db.ExecContext(ctx, query, batchID, qsaSequence, status)
	if err != nil {
		return fmt.Errorf("failed to update row status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("row not found for batch %s qsa %d", batchID, qsaSequence)
	}

	return nil
}

// UpdateStartPosition updates a row's start position (the lifecycle's
// update_start_position transition for a pending row).
func (r *rowRepository) UpdateStartPosition(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, startPosition int) error {
	query := `UPDATE qsa_rows SET start_position = $3 WHERE batch_id = $1 AND qsa_sequence = $2`

	result, err := r.db.ExecContext(ctx, query, batchID, qsaSequence, startPosition)
	if err != nil {
		return fmt.Errorf("failed to update start position: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("row not found for batch %s qsa %d", batchID, qsaSequence)
	}

	return nil
}

// MarkEngraved marks a row done and stamps its engraved_at time.
func (r *rowRepository) MarkEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) error {
	query := `UPDATE qsa_rows SET status = $3, engraved_at = $4 WHERE batch_id = $1 AND qsa_sequence = $2`

	result, err := r.db.ExecContext(ctx, query, batchID, qsaSequence, model.RowStatusDone, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark row engraved: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("row not found for batch %s qsa %d", batchID, qsaSequence)
	}

	return nil
}

// DeleteRowsForBatch removes all rows for a batch (cascade cleanup).
func (r *rowRepository) DeleteRowsForBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	query := `DELETE FROM qsa_rows WHERE batch_id = $1`

	result, err := r.db.ExecContext(ctx, query, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows for batch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}
