// internal/handler/design_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/configstore"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/utils"
)

// DesignHandler exposes the §4.F Config Store Adapter over HTTP.
type DesignHandler struct {
	store  *configstore.Store
	logger *utils.ServiceLogger
}

// NewDesignHandler creates a new design config handler.
func NewDesignHandler(store *configstore.Store, logger *zap.Logger) *DesignHandler {
	return &DesignHandler{
		store:  store,
		logger: utils.NewServiceLogger(logger, "design-handler"),
	}
}

// RegisterRoutes registers the design element config routes.
func (h *DesignHandler) RegisterRoutes(router *gin.RouterGroup) {
	designs := router.Group("/designs/:code")
	{
		designs.GET("/elements", h.ListElements)
		designs.PUT("/elements", h.UpsertElement)
		designs.DELETE("/elements", h.DeleteElement)
	}
}

func designKey(c *gin.Context) model.DesignKey {
	return model.DesignKey{Code: c.Param("code"), Revision: c.Query("revision")}
}

// ListElements returns every element config row for a design.
// @Summary List a design's element configuration
// @Tags Designs
// @Produce json
// @Param code path string true "4-letter design code"
// @Param revision query string false "Revision letter"
// @Success 200 {object} utils.APIResponse "Element configs"
// @Router /designs/{code}/elements [get]
func (h *DesignHandler) ListElements(c *gin.Context) {
	design := designKey(c)
	configs, err := h.store.GetForDesign(design)
	if err != nil {
		respondDomainError(c, "no element config found for design", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "element configs retrieved", configs)
}

type upsertElementRequest struct {
	Position           int      `json:"position" binding:"required"`
	Kind               string   `json:"kind" binding:"required"`
	OriginXMM          float64  `json:"origin_x_mm"`
	OriginYMM          float64  `json:"origin_y_mm"`
	RotationDeg        *float64 `json:"rotation_deg"`
	ElementSizeMM      *float64 `json:"element_size_mm"`
	TextHeightMM       *float64 `json:"text_height_mm"`
	TrackingMultiplier *float64 `json:"tracking_multiplier"`
}

// UpsertElement writes one element config row.
// @Summary Upsert a design element config row
// @Tags Designs
// @Accept json
// @Produce json
// @Param code path string true "4-letter design code"
// @Param revision query string false "Revision letter"
// @Param request body upsertElementRequest true "Element config"
// @Success 200 {object} utils.APIResponse "Element config written"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /designs/{code}/elements [put]
func (h *DesignHandler) UpsertElement(c *gin.Context) {
	design := designKey(c)

	var req upsertElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	cfg := model.ElementConfig{
		Design:             design,
		Position:           req.Position,
		Kind:               model.ElementKind(req.Kind),
		OriginXMM:          decimal.NewFromFloat(req.OriginXMM),
		OriginYMM:          decimal.NewFromFloat(req.OriginYMM),
		RotationDeg:        floatPtrToDecimal(req.RotationDeg),
		ElementSizeMM:      floatPtrToDecimal(req.ElementSizeMM),
		TextHeightMM:       floatPtrToDecimal(req.TextHeightMM),
		TrackingMultiplier: floatPtrToDecimal(req.TrackingMultiplier),
	}

	if err := cfg.Validate(); err != nil {
		respondDomainError(c, "invalid element config", err)
		return
	}

	if err := h.store.Upsert(c.Request.Context(), cfg); err != nil {
		respondDomainError(c, "failed to upsert element config", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "element config written", cfg)
}

// DeleteElement removes one element config row.
// @Summary Delete a design element config row
// @Tags Designs
// @Produce json
// @Param code path string true "4-letter design code"
// @Param revision query string false "Revision letter"
// @Param position query int true "Position index"
// @Param kind query string true "Element kind"
// @Success 200 {object} utils.APIResponse "Element config deleted"
// @Router /designs/{code}/elements [delete]
func (h *DesignHandler) DeleteElement(c *gin.Context) {
	design := designKey(c)
	position, err := strconv.Atoi(c.Query("position"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid position", err)
		return
	}
	kind := model.ElementKind(c.Query("kind"))

	if err := h.store.Delete(c.Request.Context(), design, position, kind); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "element config not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "element config deleted", nil)
}

func floatPtrToDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
