// internal/engrave/entrypoint_test.go
package engrave

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/lifecycle"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/render"
	"quadica-engraving-core/internal/repository"
	"quadica-engraving-core/internal/sku"
)

type fakeRows struct{ row *model.Row }

func (f *fakeRows) CreateRow(ctx context.Context, r *model.Row) error { return nil }
func (f *fakeRows) GetRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (*model.Row, error) {
	return f.row, nil
}
func (f *fakeRows) ListRowsForBatch(ctx context.Context, batchID uuid.UUID) ([]*model.Row, error) {
	return []*model.Row{f.row}, nil
}
func (f *fakeRows) UpdateRowStatus(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, status model.RowStatus) error {
	f.row.Status = status
	return nil
}
func (f *fakeRows) UpdateStartPosition(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, position int) error {
	return nil
}
func (f *fakeRows) MarkEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) error {
	f.row.Status = model.RowStatusDone
	return nil
}
func (f *fakeRows) DeleteRowsForBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeMappingRepo struct{}

func (f *fakeMappingRepo) ListActive(ctx context.Context) ([]model.SKUMapping, error) { return nil, nil }
func (f *fakeMappingRepo) Create(ctx context.Context, m model.SKUMapping) error        { return nil }
func (f *fakeMappingRepo) Deactivate(ctx context.Context, pattern string, matchType model.MatchType) error {
	return nil
}

type fakeSerials struct{ reserved map[uint32][]model.Serial }

func (f *fakeSerials) CountCommittable(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	return 0, nil
}
func (f *fakeSerials) CountEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	return 0, nil
}
func (f *fakeSerials) Reserve(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, skus []repository.SKUPosition) ([]model.Serial, error) {
	var out []model.Serial
	for i, sp := range skus {
		out = append(out, model.Serial{SerialInteger: uint32(i + 1), ModulePosition: sp.ModulePosition, SKU: sp.SKU})
	}
	f.reserved[qsaSequence] = out
	return out, nil
}
func (f *fakeSerials) Commit(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	return uint32(len(f.reserved[qsaSequence])), nil
}
func (f *fakeSerials) Void(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	n := uint32(len(f.reserved[qsaSequence]))
	f.reserved[qsaSequence] = nil
	return n, nil
}
func (f *fakeSerials) ListForRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) ([]model.Serial, error) {
	return f.reserved[qsaSequence], nil
}

type fakeBatches struct{ batch *model.Batch }

func (f *fakeBatches) CreateBatch(ctx context.Context, b *model.Batch) error { return nil }
func (f *fakeBatches) GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	return f.batch, nil
}
func (f *fakeBatches) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]*model.Batch, int, error) {
	return nil, 0, nil
}
func (f *fakeBatches) UpdateBatchStatus(ctx context.Context, id uuid.UUID, status model.BatchStatus) error {
	f.batch.Status = status
	return nil
}
func (f *fakeBatches) DeleteBatch(ctx context.Context, id uuid.UUID) error { return nil }

type fakeConfigProvider struct{ configs []model.ElementConfig }

func (f *fakeConfigProvider) GetForDesign(design model.DesignKey) ([]model.ElementConfig, error) {
	return f.configs, nil
}

func TestEngrave_HappyPath(t *testing.T) {
	batchID := uuid.New()
	row := &model.Row{
		BatchID:        batchID,
		QSASequence:    1,
		SKUComposition: []string{"STARa-00001"},
		Qty:            1,
		Status:         model.RowStatusPending,
	}

	rows := &fakeRows{row: row}
	resolver := sku.NewResolver(&fakeMappingRepo{}, zap.NewNop())
	serials := &fakeSerials{reserved: map[uint32][]model.Serial{}}
	batches := &fakeBatches{batch: &model.Batch{ID: batchID, Status: model.BatchStatusInProgress}}
	lc := lifecycle.NewStateMachine(rows, serials, batches, zap.NewNop())

	configs := []model.ElementConfig{
		{Position: 1, Kind: model.ElementMicroID, OriginXMM: decimal.NewFromFloat(10), OriginYMM: decimal.NewFromFloat(10)},
	}
	assembler := render.NewAssembler(&fakeConfigProvider{configs: configs}, render.CanvasSize{
		WidthMM: decimal.NewFromFloat(148.0), HeightMM: decimal.NewFromFloat(113.7),
	})

	eng := NewEngraver(rows, resolver, lc, assembler, NoopSink{}, 0, 0, 0, zap.NewNop())

	result, err := eng.Engrave(context.Background(), batchID, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Serials) != 1 {
		t.Fatalf("expected 1 serial, got %d", len(result.Serials))
	}
	if result.SVG == "" {
		t.Fatal("expected non-empty SVG")
	}
	if row.Status != model.RowStatusInProgress {
		t.Errorf("expected row in_progress after engrave, got %s", row.Status)
	}
}

func TestEngrave_RejectsOutOfRangeStartPosition(t *testing.T) {
	batchID := uuid.New()
	rows := &fakeRows{row: &model.Row{BatchID: batchID, QSASequence: 1}}
	resolver := sku.NewResolver(&fakeMappingRepo{}, zap.NewNop())
	serials := &fakeSerials{reserved: map[uint32][]model.Serial{}}
	batches := &fakeBatches{batch: &model.Batch{ID: batchID}}
	lc := lifecycle.NewStateMachine(rows, serials, batches, zap.NewNop())
	assembler := render.NewAssembler(&fakeConfigProvider{}, render.CanvasSize{WidthMM: decimal.NewFromInt(100), HeightMM: decimal.NewFromInt(100)})

	eng := NewEngraver(rows, resolver, lc, assembler, NoopSink{}, 0, 0, 0, zap.NewNop())

	if _, err := eng.Engrave(context.Background(), batchID, 1, 0); err == nil {
		t.Fatal("expected error for start position 0")
	}
	if _, err := eng.Engrave(context.Background(), batchID, 1, 9); err == nil {
		t.Fatal("expected error for start position 9")
	}
}
