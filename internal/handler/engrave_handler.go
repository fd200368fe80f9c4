// internal/handler/engrave_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/engrave"
	"quadica-engraving-core/internal/utils"
)

// EngraveHandler exposes the §4.L Engrave Entry Point over HTTP.
type EngraveHandler struct {
	engraver *engrave.Engraver
	logger   *utils.ServiceLogger
}

// NewEngraveHandler creates a new engrave handler.
func NewEngraveHandler(engraver *engrave.Engraver, logger *zap.Logger) *EngraveHandler {
	return &EngraveHandler{
		engraver: engraver,
		logger:   utils.NewServiceLogger(logger, "engrave-handler"),
	}
}

// RegisterRoutes registers the engrave entry point route.
func (h *EngraveHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/engrave", h.Engrave)
}

type engraveRequest struct {
	BatchID       string `json:"batch_id" binding:"required"`
	QSASequence   uint32 `json:"qsa_sequence" binding:"required"`
	StartPosition int    `json:"start_position" binding:"required"`
}

// Engrave renders and persists one array's worth of a QSA row.
// @Summary Engrave a QSA row
// @Description Resolve module SKUs, reserve serials, render the array SVG, and write it to the artifact sink
// @Tags Engrave
// @Accept json
// @Produce json
// @Param request body engraveRequest true "Engrave request"
// @Success 200 {object} utils.APIResponse "Array engraved"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /engrave [post]
func (h *EngraveHandler) Engrave(c *gin.Context) {
	var req engraveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid batch_id", err)
		return
	}

	result, err := h.engraver.Engrave(c.Request.Context(), batchID, req.QSASequence, req.StartPosition)
	if err != nil {
		h.logger.Error("engrave failed", zap.String("batch_id", req.BatchID), zap.Uint32("qsa_sequence", req.QSASequence), zap.Error(err))
		respondDomainError(c, "engrave failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "array engraved", gin.H{
		"svg":           result.SVG,
		"serials":       result.Serials,
		"artifact_path": result.ArtifactPath,
	})
}
