// internal/repository/serial_repository.go
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

// serialRepository implements SerialRepository
type serialRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSerialRepository creates a new serial repository
func NewSerialRepository(db *database.DB, logger *zap.Logger) SerialRepository {
	return &serialRepository{
		db:     db,
		logger: logger,
	}
}

// withSerializableTx runs fn inside a serializable transaction,
// committing on success and rolling back on any error (§4.I "Race
// safety": all four serial operations run inside a serializable
// transaction).
func (r *serialRepository) withSerializableTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", coreerr.ErrTransactionFailed)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("rollback failed", zap.Error(rbErr))
			return fmt.Errorf("%v, rollback also failed: %w", err, coreerr.ErrRollbackFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", coreerr.ErrCommitFailed)
	}

	return nil
}

// CountCommittable counts rows with status reserved OR empty/null
// (legacy corruption), per §4.I.
func (r *serialRepository) CountCommittable(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	query := `
		SELECT COUNT(*) FROM serials
		WHERE batch_id = $1 AND qsa_sequence = $2
		  AND (status = $3 OR status IS NULL OR status = '')
	`

	var count uint32
	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query, batchID, qsaSequence, model.SerialStatusReserved).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count committable serials: %w", err)
	}

	return count, nil
}

// CountEngraved counts rows with status engraved.
func (r *serialRepository) CountEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	query := `SELECT COUNT(*) FROM serials WHERE batch_id = $1 AND qsa_sequence = $2 AND status = $3`

	var count uint32
	err := r.db.QueryRowContext(ctx, query, batchID, qsaSequence, model.SerialStatusEngraved).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count engraved serials: %w", err)
	}

	return count, nil
}

// Reserve allocates the next N serial integers globally unique for
// the serial namespace, writing rows with status reserved. Fails
// AlreadyReserved if any serial already exists for (batch, qsa) with
// status in {reserved, engraved}.
func (r *serialRepository) Reserve(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, skusWithPositions []SKUPosition) ([]model.Serial, error) {
	var reserved []model.Serial

	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		var existing int
		existingQuery := `
			SELECT COUNT(*) FROM serials
			WHERE batch_id = $1 AND qsa_sequence = $2 AND status IN ($3, $4)
		`
		if err := tx.QueryRowContext(ctx, existingQuery, batchID, qsaSequence,
			model.SerialStatusReserved, model.SerialStatusEngraved).Scan(&existing); err != nil {
			return fmt.Errorf("failed to check existing serials: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("serials already present for batch %s qsa %d: %w", batchID, qsaSequence, coreerr.ErrAlreadyReserved)
		}

		var nextMax uint32
		maxQuery := `SELECT COALESCE(MAX(serial_integer), 0) FROM serials`
		if err := tx.QueryRowContext(ctx, maxQuery).Scan(&nextMax); err != nil {
			return fmt.Errorf("failed to read next serial integer: %w", err)
		}

		insert := `
			INSERT INTO serials (batch_id, qsa_sequence, serial_integer, sku, module_position, status, original_sku)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		for i, sp := range skusWithPositions {
			serialInt := nextMax + uint32(i) + 1
			if serialInt > model.MaxSerial {
				return fmt.Errorf("serial integer %d exceeds namespace: %w", serialInt, coreerr.ErrOutOfRange)
			}

			var originalSKU interface{}
			if sp.OriginalSKU != "" {
				originalSKU = sp.OriginalSKU
			}

			if _, err := tx.ExecContext(ctx, insert,
				batchID, qsaSequence, serialInt, sp.SKU, sp.ModulePosition,
				model.SerialStatusReserved, originalSKU,
			); err != nil {
				return fmt.Errorf("failed to insert reserved serial: %w", err)
			}

			reserved = append(reserved, model.Serial{
				BatchID:        batchID,
				QSASequence:    qsaSequence,
				SerialInteger:  serialInt,
				SKU:            sp.SKU,
				ModulePosition: sp.ModulePosition,
				Status:         model.SerialStatusReserved,
			})
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return reserved, nil
}

// Commit transitions all reserved (and auto-fixes empty/null ->
// reserved) rows to engraved. If the auto-fix update itself fails,
// the whole commit aborts with AutoFixFailed and rows remain
// unchanged.
func (r *serialRepository) Commit(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	var committed uint32

	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		autoFix := `
			UPDATE serials SET status = $3
			WHERE batch_id = $1 AND qsa_sequence = $2 AND (status IS NULL OR status = '')
		`
		if _, err := tx.ExecContext(ctx, autoFix, batchID, qsaSequence, model.SerialStatusReserved); err != nil {
			return fmt.Errorf("auto-fix of corrupted serial rows failed: %w", coreerr.ErrAutoFixFailed)
		}

		commitQuery := `
			UPDATE serials SET status = $3
			WHERE batch_id = $1 AND qsa_sequence = $2 AND status = $4
		`
		result, err := tx.ExecContext(ctx, commitQuery, batchID, qsaSequence, model.SerialStatusEngraved, model.SerialStatusReserved)
		if err != nil {
			return fmt.Errorf("failed to commit serials: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		committed = uint32(affected)
		return nil
	})

	if err != nil {
		return 0, err
	}

	if committed == 0 {
		engraved, countErr := r.CountEngraved(ctx, batchID, qsaSequence)
		if countErr == nil && engraved > 0 {
			r.logger.Warn("concurrent completion race tolerated on commit",
				zap.String("batch_id", batchID.String()),
				zap.Uint32("qsa_sequence", qsaSequence),
			)
		}
	}

	return committed, nil
}

// Void transitions reserved and empty/null rows to void; engraved
// rows are untouched.
func (r *serialRepository) Void(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	var voided uint32

	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE serials SET status = $3
			WHERE batch_id = $1 AND qsa_sequence = $2
			  AND (status = $4 OR status IS NULL OR status = '')
		`
		result, err := tx.ExecContext(ctx, query, batchID, qsaSequence, model.SerialStatusVoid, model.SerialStatusReserved)
		if err != nil {
			return fmt.Errorf("failed to void serials: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		voided = uint32(affected)
		return nil
	})

	if err != nil {
		return 0, err
	}

	return voided, nil
}

// ListForRow lists every serial issued for (batch, qsa), in module
// position order.
func (r *serialRepository) ListForRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) ([]model.Serial, error) {
	query := `
		SELECT batch_id, qsa_sequence, serial_integer, sku, module_position, status, original_sku
		FROM serials
		WHERE batch_id = $1 AND qsa_sequence = $2
		ORDER BY module_position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, batchID, qsaSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to list serials: %w", err)
	}
	defer rows.Close()

	var serials []model.Serial
	for rows.Next() {
		var s model.Serial
		var originalSKU sql.NullString
		if err := rows.Scan(&s.BatchID, &s.QSASequence, &s.SerialInteger, &s.SKU, &s.ModulePosition, &s.Status, &originalSKU); err != nil {
			r.logger.Error("failed to scan serial row", zap.Error(err))
			continue
		}
		if originalSKU.Valid {
			s.OriginalSKU = &originalSKU.String
		}
		serials = append(serials, s)
	}

	return serials, nil
}
