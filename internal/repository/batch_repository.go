// internal/repository/batch_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/database"
	"quadica-engraving-core/internal/model"
)

// batchRepository implements BatchRepository
type batchRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB, logger *zap.Logger) BatchRepository {
	return &batchRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch creates a new batch
func (r *batchRepository) CreateBatch(ctx context.Context, b *model.Batch) error {
	query := `
		INSERT INTO batches (id, name, status, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, b.ID, b.Name, b.Status, b.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create batch", zap.Error(err))
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetBatch retrieves a batch by ID
func (r *batchRepository) GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	query := `SELECT id, name, status, created_at FROM batches WHERE id = $1`

	b := &model.Batch{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Name, &b.Status, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("batch not found with id: %s", id)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return b, nil
}

// ListBatches retrieves batches with filtering and pagination
func (r *batchRepository) ListBatches(ctx context.Context, filter BatchFilter) ([]*model.Batch, int, error) {
	whereClause := ""
	args := []interface{}{}
	if filter.Status != nil {
		whereClause = "WHERE status = $1"
		args = append(args, *filter.Status)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM batches %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count batches: %w", err)
	}

	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	offset := (page - 1) * perPage

	query := fmt.Sprintf(`
		SELECT id, name, status, created_at FROM batches %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*model.Batch
	for rows.Next() {
		b := &model.Batch{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Status, &b.CreatedAt); err != nil {
			r.logger.Error("failed to scan batch row", zap.Error(err))
			continue
		}
		batches = append(batches, b)
	}

	return batches, total, nil
}

// UpdateBatchStatus updates a batch's status
func (r *batchRepository) UpdateBatchStatus(ctx context.Context, id uuid.UUID, status model.BatchStatus) error {
	query := `UPDATE batches SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("batch not found with id: %s", id)
	}

	return nil
}

// DeleteBatch permanently removes a batch and everything under it.
// Per §5 "Locking discipline" this runs inside one explicit
// transaction: BEGIN, delete serials, then rows, then the batch row
// itself, COMMIT. A failed COMMIT is followed by an explicit ROLLBACK
// and logged rather than left for the pool to discover later.
func (r *batchRepository) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete-batch transaction: %w", coreerr.ErrTransactionFailed)
	}

	rollback := func(cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("rollback failed during delete batch", zap.Error(rbErr), zap.String("batch_id", id.String()))
			return fmt.Errorf("%v, rollback also failed: %w", cause, coreerr.ErrRollbackFailed)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM serials WHERE batch_id = $1`, id); err != nil {
		return rollback(fmt.Errorf("failed to delete serials for batch %s: %w", id, err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM qsa_rows WHERE batch_id = $1`, id); err != nil {
		return rollback(fmt.Errorf("failed to delete rows for batch %s: %w", id, err))
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return rollback(fmt.Errorf("failed to delete batch %s: %w", id, err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return rollback(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return rollback(fmt.Errorf("batch not found with id: %s", id))
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("commit failed for delete batch", zap.Error(err), zap.String("batch_id", id.String()))
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("rollback also failed after commit failure", zap.Error(rbErr), zap.String("batch_id", id.String()))
			return fmt.Errorf("commit failed: %v, rollback also failed: %w", err, coreerr.ErrRollbackFailed)
		}
		return fmt.Errorf("failed to commit delete-batch transaction: %w", coreerr.ErrCommitFailed)
	}

	return nil
}
