// internal/model/batch.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusDone       BatchStatus = "done"
)

// Batch groups a set of QSA rows submitted for engraving together.
type Batch struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Status    BatchStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// RowStatus is the lifecycle state of a single QSA row.
type RowStatus string

const (
	RowStatusPending    RowStatus = "pending"
	RowStatusInProgress RowStatus = "in_progress"
	RowStatusDone       RowStatus = "done"
)

// ModuleSelection is one module selected for engraving within a row,
// before SKU resolution.
type ModuleSelection struct {
	SKU         string   `json:"sku"`
	OriginalSKU string   `json:"original_sku,omitempty"`
	LEDCodes    []string `json:"led_codes,omitempty"`
}

// Row is a single QSA row belonging to a batch: one array's worth of
// module composition, tracked through {pending, in_progress, done}.
type Row struct {
	BatchID        uuid.UUID    `json:"batch_id" db:"batch_id"`
	QSASequence    uint32       `json:"qsa_sequence" db:"qsa_sequence"`
	SKUComposition []string     `json:"sku_composition" db:"sku_composition"`
	Qty            uint32       `json:"qty" db:"qty"`
	Status         RowStatus    `json:"status" db:"status"`
	StartPosition  int          `json:"start_position" db:"start_position"`
	EngravedAt     *time.Time   `json:"engraved_at,omitempty" db:"engraved_at"`
}

// IsDone reports whether the row has completed its lifecycle.
func (r Row) IsDone() bool {
	return r.Status == RowStatusDone
}

// Group is the operator-facing presentation of one or more adjacent
// rows sharing an identical single-SKU composition (§3 "Row grouping").
type Group struct {
	BatchID      uuid.UUID `json:"batch_id"`
	SKU          string    `json:"sku"`
	QSASequences []uint32  `json:"qsa_sequences"`
	TotalQty     uint32    `json:"total_qty"`
	Arrays       int       `json:"arrays"`
}
