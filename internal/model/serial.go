// internal/model/serial.go
package model

import "github.com/google/uuid"

// SerialStatus is the lifecycle state of one allocated serial integer.
type SerialStatus string

const (
	SerialStatusReserved SerialStatus = "reserved"
	SerialStatusEngraved SerialStatus = "engraved"
	SerialStatusVoid     SerialStatus = "void"
)

// MinSerial and MaxSerial bound the 20-bit serial namespace; serial 0
// is reserved by business rule and never issued.
const (
	MinSerial uint32 = 1
	MaxSerial uint32 = 1_048_575
)

// Serial is one allocated serial integer bound to a module position
// within a QSA row.
type Serial struct {
	BatchID        uuid.UUID    `json:"batch_id" db:"batch_id"`
	QSASequence    uint32       `json:"qsa_sequence" db:"qsa_sequence"`
	SerialInteger  uint32       `json:"serial_integer" db:"serial_integer"`
	SKU            string       `json:"sku" db:"sku"`
	ModulePosition int          `json:"module_position" db:"module_position"`
	Status         SerialStatus `json:"status" db:"status"`
	OriginalSKU    *string      `json:"original_sku,omitempty" db:"original_sku"`
}
