// internal/handler/errors.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/utils"
)

// statusForError maps a §7 sentinel error to its HTTP status, the same
// shape as the teacher's utils.getErrorCode maps a status to a code.
// Errors outside the taxonomy (repository/transport failures) fall
// through to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, coreerr.ErrOutOfRange),
		errors.Is(err, coreerr.ErrInvalidStartPosition),
		errors.Is(err, coreerr.ErrInvalidPosition),
		errors.Is(err, coreerr.ErrInvalidMatchType),
		errors.Is(err, coreerr.ErrCanonicalCodeMalformed),
		errors.Is(err, coreerr.ErrInvalidData),
		errors.Is(err, coreerr.ErrDataTooLong):
		return http.StatusBadRequest
	case errors.Is(err, coreerr.ErrDuplicateMapping),
		errors.Is(err, coreerr.ErrAlreadyReserved):
		return http.StatusConflict
	case errors.Is(err, coreerr.ErrRowNotInRequiredStatus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coreerr.ErrConfigMissing):
		return http.StatusNotFound
	case errors.Is(err, coreerr.ErrParityError), errors.Is(err, coreerr.ErrAnchorError):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coreerr.ErrAutoFixFailed),
		errors.Is(err, coreerr.ErrTransactionFailed),
		errors.Is(err, coreerr.ErrCommitFailed),
		errors.Is(err, coreerr.ErrRollbackFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes the taxonomy-appropriate status for err via
// statusForError, logging the underlying cause in the response details.
func respondDomainError(c *gin.Context, message string, err error) {
	utils.ErrorResponse(c, statusForError(err), message, err)
}
