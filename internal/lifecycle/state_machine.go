// internal/lifecycle/state_machine.go
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/repository"
	"quadica-engraving-core/internal/utils"
)

// StateMachine implements the row lifecycle RPCs of §4.J: start,
// next_array, complete, resend, retry, rerun, and
// update_start_position. start, next_array and complete are idempotent:
// a duplicate call returns success with a flag rather than an error.
// resend, retry, rerun and update_start_position fail with
// RowNotInRequiredStatus when the row is not in the status they require.
type StateMachine struct {
	rows    repository.RowRepository
	serials repository.SerialRepository
	batches repository.BatchRepository
	logger  *utils.ServiceLogger
	audit   *utils.AuditLogger
}

// NewStateMachine creates a new row lifecycle state machine.
func NewStateMachine(
	rows repository.RowRepository,
	serials repository.SerialRepository,
	batches repository.BatchRepository,
	logger *zap.Logger,
) *StateMachine {
	return &StateMachine{
		rows:    rows,
		serials: serials,
		batches: batches,
		logger:  utils.NewServiceLogger(logger, "lifecycle"),
		audit:   utils.NewAuditLogger(logger),
	}
}

// Start reserves serials for a pending row and moves it to
// in_progress. A duplicate call against an already in_progress row
// returns its existing reserved serials with already_started; against
// a done row it returns already_done.
func (sm *StateMachine) Start(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, skusWithPositions []repository.SKUPosition) model.TransitionResult {
	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for start: %w", err))
	}

	switch row.Status {
	case model.RowStatusDone:
		existing, err := sm.serials.ListForRow(ctx, batchID, qsaSequence)
		if err != nil {
			return model.Failed(fmt.Errorf("load serials for done row: %w", err))
		}
		return model.Ok(existing, model.FlagAlreadyDone)
	case model.RowStatusInProgress:
		existing, err := sm.serials.ListForRow(ctx, batchID, qsaSequence)
		if err != nil {
			return model.Failed(fmt.Errorf("load serials for in-progress row: %w", err))
		}
		active := make([]model.Serial, 0, len(existing))
		for _, s := range existing {
			if s.Status == model.SerialStatusReserved {
				active = append(active, s)
			}
		}
		return model.Ok(active, model.FlagAlreadyStarted)
	}

	reserved, err := sm.serials.Reserve(ctx, batchID, qsaSequence, skusWithPositions)
	if err != nil {
		return model.Failed(fmt.Errorf("reserve serials: %w", err))
	}

	if err := sm.rows.UpdateRowStatus(ctx, batchID, qsaSequence, model.RowStatusInProgress); err != nil {
		// Compensation (§4.J): never leave an orphan reservation.
		if _, voidErr := sm.serials.Void(ctx, batchID, qsaSequence); voidErr != nil {
			sm.logger.LogDatabaseQuery("void_compensation", nil, 0, voidErr)
		}
		return model.Failed(fmt.Errorf("mark row in progress: %w", err))
	}

	sm.audit.LogSerialReservation(batchID.String(), fmt.Sprintf("%d", qsaSequence), len(reserved), "", true)
	return model.Ok(reserved)
}

// NextArray commits the row's currently reserved serials without
// advancing row status. Against an already-done row it returns
// already_done rather than re-committing.
func (sm *StateMachine) NextArray(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) model.TransitionResult {
	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for next_array: %w", err))
	}
	if row.Status == model.RowStatusDone {
		return model.Ok(nil, model.FlagAlreadyDone)
	}

	if _, err := sm.serials.Commit(ctx, batchID, qsaSequence); err != nil {
		return model.Failed(fmt.Errorf("commit serials: %w", err))
	}

	return model.Ok(nil)
}

// Complete commits the row's reserved serials and marks it done,
// closing the batch if every row in it is now done. It implements the
// §4.J concurrent-completion race rule: if commit=0 but engraved
// serials already exist, the row is marked done with race_detected
// instead of erroring; if commit=0 and nothing is engraved, it returns
// use_retry so the caller knows to retry the reservation.
func (sm *StateMachine) Complete(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) model.TransitionResult {
	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for complete: %w", err))
	}
	if row.Status == model.RowStatusDone {
		return model.Ok(nil, model.FlagAlreadyDone)
	}

	committed, err := sm.serials.Commit(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("commit serials: %w", err))
	}

	flags := []model.Flag{}
	if committed == 0 {
		engraved, err := sm.serials.CountEngraved(ctx, batchID, qsaSequence)
		if err != nil {
			return model.Failed(fmt.Errorf("count engraved serials: %w", err))
		}
		if engraved == 0 {
			return model.Ok(nil, model.FlagUseRetry)
		}
		flags = append(flags, model.FlagRaceDetected)
		sm.logger.LogDatabaseQuery("concurrent_completion_race", nil, 0, nil)
	}

	if err := sm.rows.MarkEngraved(ctx, batchID, qsaSequence); err != nil {
		return model.Failed(fmt.Errorf("mark row done: %w", err))
	}

	sm.audit.LogSerialTransition(batchID.String(), fmt.Sprintf("%d", qsaSequence), int(committed), "reserved", "engraved")

	if err := sm.closeBatchIfComplete(ctx, batchID); err != nil {
		sm.logger.LogDatabaseQuery("close_batch", nil, 0, err)
	}

	return model.Ok(nil, flags...)
}

// Resend re-emits the artifact without touching serial allocation.
// The state machine itself has no artifact to resend — this method
// only validates the row is in a resendable state, leaving
// regeneration to the Engrave Entry Point.
func (sm *StateMachine) Resend(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) model.TransitionResult {
	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for resend: %w", err))
	}
	if row.Status != model.RowStatusInProgress {
		return model.Failed(fmt.Errorf("row %d is %s, resend requires in_progress: %w", qsaSequence, row.Status, coreerr.ErrRowNotInRequiredStatus))
	}
	return model.Ok(nil)
}

// Retry voids the currently reserved serials and reserves a fresh set
// of integers, for rows stuck after a failed engrave.
func (sm *StateMachine) Retry(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, skusWithPositions []repository.SKUPosition) model.TransitionResult {
	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for retry: %w", err))
	}
	if row.Status != model.RowStatusInProgress {
		return model.Failed(fmt.Errorf("row %d is %s, retry requires in_progress: %w", qsaSequence, row.Status, coreerr.ErrRowNotInRequiredStatus))
	}

	if _, err := sm.serials.Void(ctx, batchID, qsaSequence); err != nil {
		return model.Failed(fmt.Errorf("void serials for retry: %w", err))
	}

	reserved, err := sm.serials.Reserve(ctx, batchID, qsaSequence, skusWithPositions)
	if err != nil {
		return model.Failed(fmt.Errorf("reserve replacement serials: %w", err))
	}

	sm.audit.LogSerialTransition(batchID.String(), fmt.Sprintf("%d", qsaSequence), len(reserved), "void", "reserved")
	return model.Ok(reserved)
}

// Abort voids a row's reserved serials without reserving replacements,
// leaving the row in_progress with no active reservation. Used by the
// Engrave Entry Point to compensate a reservation when a downstream
// step (assembly, artifact write) fails after Start succeeded (§4.L).
func (sm *StateMachine) Abort(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) model.TransitionResult {
	voided, err := sm.serials.Void(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("void serials for compensation: %w", err))
	}
	sm.audit.LogSerialTransition(batchID.String(), fmt.Sprintf("%d", qsaSequence), int(voided), "reserved", "void")
	return model.Ok(nil)
}

// Rerun resets a done row back to pending and reopens its batch if
// needed. Engraved serials are left untouched — they are physically on
// parts already.
func (sm *StateMachine) Rerun(ctx context.Context, batchID uuid.UUID, qsaSequence uint32) model.TransitionResult {
	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for rerun: %w", err))
	}
	if row.Status != model.RowStatusDone {
		return model.Failed(fmt.Errorf("row %d is %s, rerun requires done: %w", qsaSequence, row.Status, coreerr.ErrRowNotInRequiredStatus))
	}

	if err := sm.rows.UpdateRowStatus(ctx, batchID, qsaSequence, model.RowStatusPending); err != nil {
		return model.Failed(fmt.Errorf("reset row to pending: %w", err))
	}

	batch, err := sm.batches.GetBatch(ctx, batchID)
	if err != nil {
		return model.Failed(fmt.Errorf("load batch for rerun: %w", err))
	}
	if batch.Status == model.BatchStatusDone {
		if err := sm.batches.UpdateBatchStatus(ctx, batchID, model.BatchStatusInProgress); err != nil {
			return model.Failed(fmt.Errorf("reopen batch: %w", err))
		}
	}

	return model.Ok(nil)
}

// UpdateStartPosition writes a new start position for a pending row.
// This only affects display/array-breakdown recomputation; it does
// not touch serial allocation.
func (sm *StateMachine) UpdateStartPosition(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, position int) model.TransitionResult {
	if position < 1 || position > 8 {
		return model.Failed(fmt.Errorf("start position %d out of range 1..8: %w", position, coreerr.ErrInvalidStartPosition))
	}

	row, err := sm.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return model.Failed(fmt.Errorf("load row for update_start_position: %w", err))
	}
	if row.Status != model.RowStatusPending {
		return model.Failed(fmt.Errorf("row %d is %s, update_start_position requires pending: %w", qsaSequence, row.Status, coreerr.ErrRowNotInRequiredStatus))
	}

	if err := sm.rows.UpdateStartPosition(ctx, batchID, qsaSequence, position); err != nil {
		return model.Failed(fmt.Errorf("write start position: %w", err))
	}

	return model.Ok(nil)
}

// DeleteBatch permanently removes a batch and its rows and serials
// (§3, §5). Unlike the row RPCs above this has no idempotent-retry
// flag: a second call against an already-deleted batch simply fails,
// since there is nothing left to report success against.
func (sm *StateMachine) DeleteBatch(ctx context.Context, batchID uuid.UUID) model.TransitionResult {
	if err := sm.batches.DeleteBatch(ctx, batchID); err != nil {
		return model.Failed(fmt.Errorf("delete batch: %w", err))
	}
	return model.Ok(nil)
}

// closeBatchIfComplete marks a batch done once every one of its rows
// has reached done.
func (sm *StateMachine) closeBatchIfComplete(ctx context.Context, batchID uuid.UUID) error {
	rows, err := sm.rows.ListRowsForBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("list rows to check batch completion: %w", err)
	}

	for _, r := range rows {
		if !r.IsDone() {
			return nil
		}
	}

	return sm.batches.UpdateBatchStatus(ctx, batchID, model.BatchStatusDone)
}
