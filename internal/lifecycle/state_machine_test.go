// internal/lifecycle/state_machine_test.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/repository"
)

type fakeRows struct {
	rows map[uint32]*model.Row
}

func newFakeRows() *fakeRows { return &fakeRows{rows: map[uint32]*model.Row{}} }

func (f *fakeRows) CreateRow(ctx context.Context, r *model.Row) error {
	f.rows[r.QSASequence] = r
	return nil
}
func (f *fakeRows) GetRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (*model.Row, error) {
	r, ok := f.rows[qsaSequence]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *r
	return &cp, nil
}
func (f *fakeRows) ListRowsForBatch(ctx context.Context, batchID uuid.UUID) ([]*model.Row, error) {
	var out []*model.Row
	for _, r := range f.rows {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}
func (f *fakeRows) UpdateRowStatus(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, status model.RowStatus) error {
	f.rows[qsaSequence].Status = status
	return nil
}
func (f *fakeRows) UpdateStartPosition(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, position int) error {
	f.rows[qsaSequence].StartPosition = position
	return nil
}
func (f *fakeRows) MarkEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) error {
	f.rows[qsaSequence].Status = model.RowStatusDone
	return nil
}
func (f *fakeRows) DeleteRowsForBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	n := int64(len(f.rows))
	f.rows = map[uint32]*model.Row{}
	return n, nil
}

type fakeSerials struct {
	reserved  map[uint32][]model.Serial
	committed map[uint32]uint32
	engraved  map[uint32]uint32
	commitN   func() uint32
}

func newFakeSerials() *fakeSerials {
	return &fakeSerials{
		reserved:  map[uint32][]model.Serial{},
		committed: map[uint32]uint32{},
		engraved:  map[uint32]uint32{},
	}
}

func (f *fakeSerials) CountCommittable(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	return uint32(len(f.reserved[qsaSequence])), nil
}
func (f *fakeSerials) CountEngraved(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	return f.engraved[qsaSequence], nil
}
func (f *fakeSerials) Reserve(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, skus []repository.SKUPosition) ([]model.Serial, error) {
	if len(f.reserved[qsaSequence]) > 0 {
		return nil, errors.New("already reserved")
	}
	var out []model.Serial
	for i, sp := range skus {
		out = append(out, model.Serial{
			BatchID: batchID, QSASequence: qsaSequence, SerialInteger: uint32(i + 1),
			SKU: sp.SKU, ModulePosition: sp.ModulePosition, Status: model.SerialStatusReserved,
		})
	}
	f.reserved[qsaSequence] = out
	return out, nil
}
func (f *fakeSerials) Commit(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	n := uint32(len(f.reserved[qsaSequence]))
	f.committed[qsaSequence] += n
	f.engraved[qsaSequence] += n
	f.reserved[qsaSequence] = nil
	return n, nil
}
func (f *fakeSerials) Void(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) (uint32, error) {
	n := uint32(len(f.reserved[qsaSequence]))
	f.reserved[qsaSequence] = nil
	return n, nil
}
func (f *fakeSerials) ListForRow(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) ([]model.Serial, error) {
	return f.reserved[qsaSequence], nil
}

type fakeBatches struct {
	batch   *model.Batch
	deleted bool
}

func (f *fakeBatches) CreateBatch(ctx context.Context, b *model.Batch) error { f.batch = b; return nil }
func (f *fakeBatches) GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	cp := *f.batch
	return &cp, nil
}
func (f *fakeBatches) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]*model.Batch, int, error) {
	return []*model.Batch{f.batch}, 1, nil
}
func (f *fakeBatches) UpdateBatchStatus(ctx context.Context, id uuid.UUID, status model.BatchStatus) error {
	f.batch.Status = status
	return nil
}
func (f *fakeBatches) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if f.deleted {
		return fmt.Errorf("batch not found with id: %s", id)
	}
	f.deleted = true
	return nil
}

func setup(t *testing.T) (*StateMachine, *fakeRows, *fakeSerials, *fakeBatches, uuid.UUID) {
	t.Helper()
	batchID := uuid.New()
	rows := newFakeRows()
	rows.rows[1] = &model.Row{BatchID: batchID, QSASequence: 1, Status: model.RowStatusPending, StartPosition: 1}
	serials := newFakeSerials()
	batches := &fakeBatches{batch: &model.Batch{ID: batchID, Status: model.BatchStatusInProgress}}
	sm := NewStateMachine(rows, serials, batches, zap.NewNop())
	return sm, rows, serials, batches, batchID
}

func TestStart_ReservesAndMovesToInProgress(t *testing.T) {
	sm, rows, _, _, batchID := setup(t)

	res := sm.Start(context.Background(), batchID, 1, []repository.SKUPosition{{SKU: "STAR-00001", ModulePosition: 1}})
	if !res.Success || len(res.Serials) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if rows.rows[1].Status != model.RowStatusInProgress {
		t.Errorf("expected row in_progress, got %s", rows.rows[1].Status)
	}
}

func TestStart_DuplicateReturnsAlreadyStarted(t *testing.T) {
	sm, _, _, _, batchID := setup(t)
	skus := []repository.SKUPosition{{SKU: "STAR-00001", ModulePosition: 1}}

	sm.Start(context.Background(), batchID, 1, skus)
	res := sm.Start(context.Background(), batchID, 1, skus)

	if !res.Success || !res.HasFlag(model.FlagAlreadyStarted) {
		t.Fatalf("expected already_started flag, got %+v", res)
	}
}

func TestComplete_RaceDetectedWhenCommitZeroButEngraved(t *testing.T) {
	sm, rows, serials, _, batchID := setup(t)
	rows.rows[1].Status = model.RowStatusInProgress
	serials.engraved[1] = 8

	res := sm.Complete(context.Background(), batchID, 1)

	if !res.Success || !res.HasFlag(model.FlagRaceDetected) {
		t.Fatalf("expected race_detected flag, got %+v", res)
	}
	if rows.rows[1].Status != model.RowStatusDone {
		t.Errorf("expected row marked done despite race, got %s", rows.rows[1].Status)
	}
}

func TestComplete_UseRetryWhenNothingToCommitOrEngrave(t *testing.T) {
	sm, rows, _, _, batchID := setup(t)
	rows.rows[1].Status = model.RowStatusInProgress

	res := sm.Complete(context.Background(), batchID, 1)

	if !res.Success || !res.HasFlag(model.FlagUseRetry) {
		t.Fatalf("expected use_retry flag, got %+v", res)
	}
}

func TestComplete_ClosesBatchWhenAllRowsDone(t *testing.T) {
	sm, rows, serials, batches, batchID := setup(t)
	rows.rows[1].Status = model.RowStatusInProgress
	serials.reserved[1] = []model.Serial{{SerialInteger: 1}}

	sm.Complete(context.Background(), batchID, 1)

	if batches.batch.Status != model.BatchStatusDone {
		t.Errorf("expected batch closed, got %s", batches.batch.Status)
	}
}

func TestRerun_ResetsDoneRowAndReopensBatch(t *testing.T) {
	sm, rows, _, batches, batchID := setup(t)
	rows.rows[1].Status = model.RowStatusDone
	batches.batch.Status = model.BatchStatusDone

	res := sm.Rerun(context.Background(), batchID, 1)

	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if rows.rows[1].Status != model.RowStatusPending {
		t.Errorf("expected row pending, got %s", rows.rows[1].Status)
	}
	if batches.batch.Status != model.BatchStatusInProgress {
		t.Errorf("expected batch reopened, got %s", batches.batch.Status)
	}
}

func TestUpdateStartPosition_RejectsOutOfRange(t *testing.T) {
	sm, _, _, _, batchID := setup(t)

	res := sm.UpdateStartPosition(context.Background(), batchID, 1, 9)
	if res.Success {
		t.Fatal("expected failure for out-of-range start position")
	}
}

func TestRetry_VoidsAndReserves(t *testing.T) {
	sm, rows, _, _, batchID := setup(t)
	rows.rows[1].Status = model.RowStatusInProgress

	res := sm.Retry(context.Background(), batchID, 1, []repository.SKUPosition{{SKU: "STAR-00001", ModulePosition: 1}})
	if !res.Success || len(res.Serials) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDeleteBatch_Succeeds(t *testing.T) {
	sm, _, _, batches, batchID := setup(t)

	res := sm.DeleteBatch(context.Background(), batchID)
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if !batches.deleted {
		t.Error("expected batch marked deleted")
	}
}

func TestDeleteBatch_FailsWhenAlreadyDeleted(t *testing.T) {
	sm, _, _, _, batchID := setup(t)

	if res := sm.DeleteBatch(context.Background(), batchID); !res.Success {
		t.Fatalf("unexpected failure on first delete: %+v", res)
	}
	if res := sm.DeleteBatch(context.Background(), batchID); res.Success {
		t.Fatal("expected failure deleting an already-deleted batch")
	}
}
