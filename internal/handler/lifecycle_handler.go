// internal/handler/lifecycle_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/lifecycle"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/repository"
	"quadica-engraving-core/internal/utils"
)

// LifecycleHandler exposes the §4.J row lifecycle RPCs over HTTP.
type LifecycleHandler struct {
	sm     *lifecycle.StateMachine
	logger *utils.ServiceLogger
}

// NewLifecycleHandler creates a new lifecycle handler.
func NewLifecycleHandler(sm *lifecycle.StateMachine, logger *zap.Logger) *LifecycleHandler {
	return &LifecycleHandler{
		sm:     sm,
		logger: utils.NewServiceLogger(logger, "lifecycle-handler"),
	}
}

// RegisterRoutes registers the row lifecycle routes.
func (h *LifecycleHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.DELETE("/batches/:batch_id", h.DeleteBatch)

	rows := router.Group("/batches/:batch_id/rows/:qsa_sequence")
	{
		rows.POST("/start", h.Start)
		rows.POST("/next-array", h.NextArray)
		rows.POST("/complete", h.Complete)
		rows.POST("/resend", h.Resend)
		rows.POST("/retry", h.Retry)
		rows.POST("/rerun", h.Rerun)
		rows.PUT("/start-position", h.UpdateStartPosition)
	}
}

// DeleteBatch permanently removes a batch and its rows and serials.
// @Summary Delete a batch
// @Description Transactionally deletes a batch's serials, rows, and the batch itself
// @Tags Lifecycle
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Success 200 {object} utils.APIResponse "Batch deleted"
// @Failure 400 {object} utils.APIResponse "Invalid batch_id"
// @Router /batches/{batch_id} [delete]
func (h *LifecycleHandler) DeleteBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid batch_id", err)
		return
	}
	writeTransitionResult(c, h.sm.DeleteBatch(c.Request.Context(), batchID))
}

type skuPositionRequest struct {
	SKU            string `json:"sku" binding:"required"`
	OriginalSKU    string `json:"original_sku"`
	ModulePosition int    `json:"module_position" binding:"required"`
}

type reserveRequest struct {
	Modules []skuPositionRequest `json:"modules" binding:"required"`
}

// Start reserves serials for a pending row and moves it in_progress.
// @Summary Start a QSA row
// @Description Reserve serials for a pending row and move it to in_progress; idempotent
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Param request body reserveRequest true "Module/position composition to reserve"
// @Success 200 {object} utils.APIResponse "Row started"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/start [post]
func (h *LifecycleHandler) Start(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result := h.sm.Start(c.Request.Context(), batchID, qsaSequence, toSKUPositions(req.Modules))
	writeTransitionResult(c, result)
}

// NextArray commits the row's reserved serials without advancing status.
// @Summary Commit the next array of a QSA row
// @Tags Lifecycle
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Success 200 {object} utils.APIResponse "Array committed"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/next-array [post]
func (h *LifecycleHandler) NextArray(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}
	writeTransitionResult(c, h.sm.NextArray(c.Request.Context(), batchID, qsaSequence))
}

// Complete commits the row's reserved serials and marks it done.
// @Summary Complete a QSA row
// @Tags Lifecycle
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Success 200 {object} utils.APIResponse "Row completed"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/complete [post]
func (h *LifecycleHandler) Complete(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}
	writeTransitionResult(c, h.sm.Complete(c.Request.Context(), batchID, qsaSequence))
}

// Resend validates the row is resendable; artifact regeneration
// happens at the Engrave Entry Point.
// @Summary Resend a QSA row's artifact
// @Tags Lifecycle
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Success 200 {object} utils.APIResponse "Row resendable"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/resend [post]
func (h *LifecycleHandler) Resend(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}
	writeTransitionResult(c, h.sm.Resend(c.Request.Context(), batchID, qsaSequence))
}

// Retry voids current reservations and reserves fresh serials.
// @Summary Retry a QSA row
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Param request body reserveRequest true "Module/position composition to reserve"
// @Success 200 {object} utils.APIResponse "Row retried"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/retry [post]
func (h *LifecycleHandler) Retry(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result := h.sm.Retry(c.Request.Context(), batchID, qsaSequence, toSKUPositions(req.Modules))
	writeTransitionResult(c, result)
}

// Rerun resets a done row back to pending.
// @Summary Rerun a done QSA row
// @Tags Lifecycle
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Success 200 {object} utils.APIResponse "Row reopened"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/rerun [post]
func (h *LifecycleHandler) Rerun(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}
	writeTransitionResult(c, h.sm.Rerun(c.Request.Context(), batchID, qsaSequence))
}

type updateStartPositionRequest struct {
	StartPosition int `json:"start_position" binding:"required"`
}

// UpdateStartPosition writes a new start position for a pending row.
// @Summary Update a QSA row's start position
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Param qsa_sequence path int true "QSA sequence"
// @Param request body updateStartPositionRequest true "New start position (1..8)"
// @Success 200 {object} utils.APIResponse "Start position updated"
// @Router /batches/{batch_id}/rows/{qsa_sequence}/start-position [put]
func (h *LifecycleHandler) UpdateStartPosition(c *gin.Context) {
	batchID, qsaSequence, ok := parseRowKey(c)
	if !ok {
		return
	}

	var req updateStartPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result := h.sm.UpdateStartPosition(c.Request.Context(), batchID, qsaSequence, req.StartPosition)
	writeTransitionResult(c, result)
}

func parseRowKey(c *gin.Context) (uuid.UUID, uint32, bool) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid batch_id", err)
		return uuid.UUID{}, 0, false
	}

	seq, err := strconv.ParseUint(c.Param("qsa_sequence"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid qsa_sequence", err)
		return uuid.UUID{}, 0, false
	}

	return batchID, uint32(seq), true
}

func toSKUPositions(modules []skuPositionRequest) []repository.SKUPosition {
	out := make([]repository.SKUPosition, 0, len(modules))
	for _, m := range modules {
		out = append(out, repository.SKUPosition{
			SKU:            m.SKU,
			OriginalSKU:    m.OriginalSKU,
			ModulePosition: m.ModulePosition,
		})
	}
	return out
}

func writeTransitionResult(c *gin.Context, result model.TransitionResult) {
	if !result.Success {
		respondDomainError(c, "transition failed", result.Err)
		return
	}

	flags := make([]string, 0, len(result.Flags))
	for f, set := range result.Flags {
		if set {
			flags = append(flags, string(f))
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "transition succeeded", gin.H{
		"flags":   flags,
		"serials": result.Serials,
	})
}
