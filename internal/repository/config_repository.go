// internal/repository/config_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/database"
	"quadica-engraving-core/internal/model"
)

// configRepository implements ConfigRepository
type configRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewConfigRepository creates a new element config repository
func NewConfigRepository(db *database.DB, logger *zap.Logger) ConfigRepository {
	return &configRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a single element config row by its composite key (§4.F "get").
func (r *configRepository) Get(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) (*model.ElementConfig, error) {
	query := `
		SELECT design_code, revision, position_index, element_kind,
			   origin_x_mm, origin_y_mm, rotation_deg, element_size_mm,
			   text_height_mm, tracking_multiplier
		FROM config_elements
		WHERE design_code = $1 AND revision = $2 AND position_index = $3 AND element_kind = $4
	`

	var c model.ElementConfig
	var rotation, size, textHeight, tracking sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, design.Code, design.Revision, position, kind).Scan(
		&c.Design.Code, &c.Design.Revision, &c.Position, &c.Kind,
		&c.OriginXMM, &c.OriginYMM, &rotation, &size, &textHeight, &tracking,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no element config for %s position %d kind %s: %w", design, position, kind, coreerr.ErrConfigMissing)
		}
		return nil, fmt.Errorf("failed to load element config: %w", err)
	}
	if rotation.Valid {
		c.RotationDeg = decimalPtr(rotation.Float64)
	}
	if size.Valid {
		c.ElementSizeMM = decimalPtr(size.Float64)
	}
	if textHeight.Valid {
		c.TextHeightMM = decimalPtr(textHeight.Float64)
	}
	if tracking.Valid {
		c.TrackingMultiplier = decimalPtr(tracking.Float64)
	}

	return &c, nil
}

// GetForDesign retrieves every element config row for a design.
func (r *configRepository) GetForDesign(ctx context.Context, design model.DesignKey) ([]model.ElementConfig, error) {
	query := `
		SELECT design_code, revision, position_index, element_kind,
			   origin_x_mm, origin_y_mm, rotation_deg, element_size_mm,
			   text_height_mm, tracking_multiplier
		FROM config_elements
		WHERE design_code = $1 AND revision = $2
		ORDER BY position_index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, design.Code, design.Revision)
	if err != nil {
		return nil, fmt.Errorf("failed to load element config for %s: %w", design, err)
	}
	defer rows.Close()

	var configs []model.ElementConfig
	for rows.Next() {
		var c model.ElementConfig
		var rotation, size, textHeight, tracking sql.NullFloat64
		if err := rows.Scan(
			&c.Design.Code, &c.Design.Revision, &c.Position, &c.Kind,
			&c.OriginXMM, &c.OriginYMM, &rotation, &size, &textHeight, &tracking,
		); err != nil {
			r.logger.Error("failed to scan element config row", zap.Error(err))
			continue
		}
		if rotation.Valid {
			c.RotationDeg = decimalPtr(rotation.Float64)
		}
		if size.Valid {
			c.ElementSizeMM = decimalPtr(size.Float64)
		}
		if textHeight.Valid {
			c.TextHeightMM = decimalPtr(textHeight.Float64)
		}
		if tracking.Valid {
			c.TrackingMultiplier = decimalPtr(tracking.Float64)
		}
		configs = append(configs, c)
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no element config found for %s: %w", design, coreerr.ErrConfigMissing)
	}

	return configs, nil
}

// Upsert inserts or updates one element config row.
func (r *configRepository) Upsert(ctx context.Context, cfg model.ElementConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO config_elements (
			design_code, revision, position_index, element_kind,
			origin_x_mm, origin_y_mm, rotation_deg, element_size_mm,
			text_height_mm, tracking_multiplier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (design_code, revision, position_index, element_kind)
		DO UPDATE SET
			origin_x_mm = EXCLUDED.origin_x_mm,
			origin_y_mm = EXCLUDED.origin_y_mm,
			rotation_deg = EXCLUDED.rotation_deg,
			element_size_mm = EXCLUDED.element_size_mm,
			text_height_mm = EXCLUDED.text_height_mm,
			tracking_multiplier = EXCLUDED.tracking_multiplier
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.Design.Code, cfg.Design.Revision, cfg.Position, cfg.Kind,
		cfg.OriginXMM, cfg.OriginYMM, nullableDecimal(cfg.RotationDeg),
		nullableDecimal(cfg.ElementSizeMM), nullableDecimal(cfg.TextHeightMM),
		nullableDecimal(cfg.TrackingMultiplier),
	)
	if err != nil {
		r.logger.Error("failed to upsert element config", zap.Error(err))
		return fmt.Errorf("failed to upsert element config: %w", err)
	}

	return nil
}

// Delete removes one element config row.
func (r *configRepository) Delete(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) error {
	query := `DELETE FROM config_elements WHERE design_code = $1 AND revision = $2 AND position_index = $3 AND element_kind = $4`

	result, err := r.db.ExecContext(ctx, query, design.Code, design.Revision, position, kind)
	if err != nil {
		return fmt.Errorf("failed to delete element config: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("element config not found for %s position %d kind %s", design, position, kind)
	}

	return nil
}
