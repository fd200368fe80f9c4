// internal/coreerr/errors.go
package coreerr

import "errors"

// Validation errors (§7).
var (
	ErrOutOfRange            = errors.New("OutOfRange")
	ErrInvalidStartPosition  = errors.New("InvalidStartPosition")
	ErrInvalidPosition       = errors.New("InvalidPosition")
	ErrInvalidMatchType      = errors.New("InvalidMatchType")
	ErrCanonicalCodeMalformed = errors.New("CanonicalCodeMalformed")
	ErrDuplicateMapping      = errors.New("DuplicateMapping")
	ErrInvalidData           = errors.New("InvalidData")
	ErrDataTooLong           = errors.New("DataTooLong")
)

// State errors (§7). Idempotent operations return success-with-flag
// instead of these; RowNotInRequiredStatus is only used by operations
// that are not idempotent.
var (
	ErrAlreadyReserved      = errors.New("AlreadyReserved")
	ErrAutoFixFailed        = errors.New("AutoFixFailed")
	ErrRowNotInRequiredStatus = errors.New("RowNotInRequiredStatus")
)

// Integrity errors (§7).
var (
	ErrParityError  = errors.New("ParityError")
	ErrAnchorError  = errors.New("AnchorError")
	ErrConfigMissing = errors.New("ConfigMissing")
)

// Storage errors (§7). The repositories return these wrapped with their
// specific cause, and the state machine passes them on unchanged; the
// HTTP layer maps them to 500 and includes the full error text in the
// response details. No layer replaces them with a generic message.
var (
	ErrTransactionFailed = errors.New("TransactionFailed")
	ErrCommitFailed      = errors.New("CommitFailed")
	ErrRollbackFailed    = errors.New("RollbackFailed")
)
