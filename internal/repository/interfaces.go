// internal/repository/interfaces.go
package repository

import (
	"context"

	"github.com/google/uuid"

	"quadica-engraving-core/internal/model"
)

// ConfigRepository manages per-design element placement configuration.
type ConfigRepository interface {
	Get(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) (*model.ElementConfig, error)
	GetForDesign(ctx context.Context, design model.DesignKey) ([]model.ElementConfig, error)
	Upsert(ctx context.Context, cfg model.ElementConfig) error
	Delete(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) error
}

// MappingRepository manages the legacy SKU mapping table.
type MappingRepository interface {
	ListActive(ctx context.Context) ([]model.SKUMapping, error)
	Create(ctx context.Context, m model.SKUMapping) error
	Deactivate(ctx context.Context, pattern string, matchType model.MatchType) error
}

// BatchRepository manages batches and their QSA rows.
type BatchRepository interface {
	CreateBatch(ctx context.Context, b *model.Batch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]*model.Batch, int, error)
	UpdateBatchStatus(ctx context.Context, id uuid.UUID, status model.BatchStatus) error
	DeleteBatch(ctx context.Context, id uuid.UUID) error
}

// RowRepository manages individual QSA rows within a batch.
type RowRepository interface {
	CreateRow(ctx context.Context, r *model.Row) error
	GetRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (*model.Row, error)
	ListRowsForBatch(ctx context.Context, batchID uuid.UUID) ([]*model.Row, error)
	UpdateRowStatus(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, status model.RowStatus) error
	UpdateStartPosition(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, startPosition int) error
	MarkEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) error
	DeleteRowsForBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// SerialRepository implements the atomic reserve/commit/void
// operations of §4.I under serializable isolation.
type SerialRepository interface {
	CountCommittable(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error)
	CountEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error)
	Reserve(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, skusWithPositions []SKUPosition) ([]model.Serial, error)
	Commit(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error)
	Void(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error)
	ListForRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) ([]model.Serial, error)
}

// SKUPosition pairs a resolved SKU with the module position it will
// occupy, as handed to Reserve.
type SKUPosition struct {
	SKU            string
	OriginalSKU    string
	ModulePosition int
}

// BatchFilter narrows ListBatches results.
type BatchFilter struct {
	Status  *model.BatchStatus
	Page    int
	PerPage int
}
