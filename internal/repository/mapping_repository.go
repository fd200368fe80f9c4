// internal/repository/mapping_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/database"
	"quadica-engraving-core/internal/model"
)

// mappingRepository implements MappingRepository
type mappingRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewMappingRepository creates a new legacy SKU mapping repository
func NewMappingRepository(db *database.DB, logger *zap.Logger) MappingRepository {
	return &mappingRepository{
		db:     db,
		logger: logger,
	}
}

// ListActive retrieves every active legacy mapping row, used by the
// SKU resolver to build its in-memory match table.
func (r *mappingRepository) ListActive(ctx context.Context) ([]model.SKUMapping, error) {
	query := `
		SELECT pattern, match_type, canonical_code, revision, priority, active, description
		FROM sku_mappings WHERE active = true
		ORDER BY priority ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sku mappings: %w", err)
	}
	defer rows.Close()

	var mappings []model.SKUMapping
	for rows.Next() {
		var m model.SKUMapping
		if err := rows.Scan(&m.Pattern, &m.MatchType, &m.CanonicalCode, &m.Revision, &m.Priority, &m.Active, &m.Description); err != nil {
			r.logger.Error("failed to scan sku mapping row", zap.Error(err))
			continue
		}
		mappings = append(mappings, m)
	}

	return mappings, nil
}

// Create inserts a new legacy SKU mapping row.
func (r *mappingRepository) Create(ctx context.Context, m model.SKUMapping) error {
	query := `
		INSERT INTO sku_mappings (pattern, match_type, canonical_code, revision, priority, active, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query, m.Pattern, m.MatchType, m.CanonicalCode, m.Revision, m.Priority, m.Active, m.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("mapping %q/%q already exists: %w", m.Pattern, m.MatchType, coreerr.ErrDuplicateMapping)
		}
		r.logger.Error("failed to create sku mapping", zap.Error(err))
		return fmt.Errorf("failed to create sku mapping: %w", err)
	}

	return nil
}

// Deactivate marks a mapping row inactive without deleting it.
func (r *mappingRepository) Deactivate(ctx context.Context, pattern string, matchType model.MatchType) error {
	query := `UPDATE sku_mappings SET active = false WHERE pattern = $1 AND match_type = $2`

	result, err := r.db.ExecContext(ctx, query, pattern, matchType)
	if err != nil {
		return fmt.Errorf("failed to deactivate sku mapping: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("sku mapping not found for pattern %q", pattern)
	}

	return nil
}
